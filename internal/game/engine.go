package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/cards"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/coinflip"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/hooks"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// Defaults used when Options leave a field unset.
const (
	DefaultHandSize    = 7
	DefaultDrawPerTurn = 1
)

// Options tune match setup.
type Options struct {
	HandSize int
	// DrawPerTurn is the number of cards drawn at the end of a turn. Nil uses
	// DefaultDrawPerTurn; zero turns draws off.
	DrawPerTurn *int
	// MaxMatches caps concurrently held matches; zero means unlimited.
	MaxMatches int
	// CoinSource builds the flip source for a new match. Nil uses a random source.
	CoinSource func() coinflip.Source
	// ReplayDir is where finished matches are saved. Empty disables saving.
	ReplayDir string
}

func (o Options) withDefaults() Options {
	if o.HandSize <= 0 {
		o.HandSize = DefaultHandSize
	}
	draw := DefaultDrawPerTurn
	if o.DrawPerTurn != nil {
		draw = max(*o.DrawPerTurn, 0)
	}
	o.DrawPerTurn = &draw
	if o.CoinSource == nil {
		o.CoinSource = func() coinflip.Source { return coinflip.NewRandomSource(0) }
	}
	return o
}

// PlayerSetup names a player and the ordered card ids of their deck.
type PlayerSetup struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Deck []string `json:"deck"`
}

// Notification is emitted after every accepted action.
type Notification struct {
	Type      string
	MatchID   string
	Timestamp time.Time
	Snapshot  *Snapshot
}

// Notification types.
const (
	NotificationMatchCreated = "MATCH_CREATED"
	NotificationStateChanged = "STATE_CHANGED"
	NotificationMatchOver    = "MATCH_OVER"
)

// NotificationHandler receives match notifications.
type NotificationHandler func(notification Notification)

// matchState is everything the engine owns for one match. mu serializes
// actions: one resolution runs at a time per match. emitMu is taken before mu
// and held until the resolution's notification is delivered, so subscribers
// see notifications in resolution order.
type matchState struct {
	emitMu    sync.Mutex
	mu        sync.Mutex
	match     *model.Match
	pipeline  *hooks.Pipeline
	schema    *customstate.Schema
	flipper   *coinflip.Flipper
	replay    *Replay
	startedAt time.Time
}

// Engine hosts matches and resolves their actions.
type Engine struct {
	logger              *zap.Logger
	registry            *cards.Registry
	opts                Options
	mu                  sync.RWMutex
	matches             map[string]*matchState
	notificationHandler NotificationHandler
}

// NewEngine creates an engine over a card catalogue.
func NewEngine(logger *zap.Logger, registry *cards.Registry, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = cards.Builtin()
	}
	return &Engine{
		logger:   logger,
		registry: registry,
		opts:     opts.withDefaults(),
		matches:  make(map[string]*matchState),
	}
}

// Registry returns the card catalogue the engine was built with.
func (e *Engine) Registry() *cards.Registry {
	return e.registry
}

// SetNotificationHandler sets the handler for match notifications.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notificationHandler = handler
}

// emit calls the handler synchronously. Callers hold the match's emitMu but not
// its mu, so the handler may read snapshots but must not act on the same match.
func (e *Engine) emit(kind, matchID string, snapshot *Snapshot) {
	e.mu.RLock()
	handler := e.notificationHandler
	e.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(Notification{
		Type:      kind,
		MatchID:   matchID,
		Timestamp: time.Now(),
		Snapshot:  snapshot,
	})
}

// CreateMatch deals two decks onto a fresh board and starts the first turn.
func (e *Engine) CreateMatch(setups [2]PlayerSetup) (*Snapshot, error) {
	if setups[0].ID == "" || setups[1].ID == "" {
		return nil, illegal("both players need an id")
	}
	if setups[0].ID == setups[1].ID {
		return nil, illegal("player ids must differ")
	}
	for _, setup := range setups {
		for _, cardID := range setup.Deck {
			if _, err := e.registry.MustDefinition(cardID); err != nil {
				return nil, fmt.Errorf("%w: deck of %s: %v", ErrIllegalAction, setup.ID, err)
			}
		}
	}

	e.mu.RLock()
	full := e.opts.MaxMatches > 0 && len(e.matches) >= e.opts.MaxMatches
	e.mu.RUnlock()
	if full {
		return nil, ErrTooManyMatches
	}

	matchID := uuid.NewString()
	ms, err := e.newMatchState(matchID, setups)
	if err != nil {
		e.logger.Error("failed to set up match",
			zap.String("match_id", matchID),
			zap.Error(err),
		)
		return nil, err
	}

	// Held until MATCH_CREATED is out so no action is notified before it.
	ms.emitMu.Lock()
	defer ms.emitMu.Unlock()

	e.mu.Lock()
	if e.opts.MaxMatches > 0 && len(e.matches) >= e.opts.MaxMatches {
		e.mu.Unlock()
		return nil, ErrTooManyMatches
	}
	e.matches[matchID] = ms
	e.mu.Unlock()

	ms.mu.Lock()
	e.startTurn(ms)
	snapshot := e.record(ms)
	ms.mu.Unlock()

	e.logger.Info("match created",
		zap.String("match_id", matchID),
		zap.String("player_one", setups[0].ID),
		zap.String("player_two", setups[1].ID),
	)
	e.emit(NotificationMatchCreated, matchID, snapshot)
	return snapshot, nil
}

func (e *Engine) newMatchState(matchID string, setups [2]PlayerSetup) (*matchState, error) {
	schema := customstate.NewSchema()
	pipeline := hooks.NewPipeline()
	flipper := coinflip.NewFlipper(e.opts.CoinSource(), e.logger.With(zap.String("match_id", matchID)))

	err := e.registry.Attach(pipeline, cards.Services{
		Flipper: flipper,
		Schema:  schema,
		Logger:  e.logger.With(zap.String("match_id", matchID)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}

	match := &model.Match{
		ID:              matchID,
		Turn:            1,
		CurrentPlayerID: setups[0].ID,
		Phase:           model.PhaseAwaitingAction,
	}
	for i, setup := range setups {
		name := setup.Name
		if name == "" {
			name = setup.ID
		}
		player := model.NewPlayer(setup.ID, name, schema)
		for _, cardID := range setup.Deck {
			def, _ := e.registry.Definition(cardID)
			player.Pile = append(player.Pile, &model.CardInstance{
				CardID:   cardID,
				Instance: uuid.NewString(),
				Category: def.Category,
			})
		}
		player.Draw(e.opts.HandSize)
		match.Players[i] = player
	}

	return &matchState{
		match:     match,
		pipeline:  pipeline,
		schema:    schema,
		flipper:   flipper,
		replay:    NewReplay(matchID),
		startedAt: time.Now(),
	}, nil
}

func (e *Engine) lookup(matchID string) (*matchState, error) {
	e.mu.RLock()
	ms, ok := e.matches[matchID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return ms, nil
}

// Process resolves one player action. Illegal actions leave the match
// untouched; invariant violations abort it.
func (e *Engine) Process(matchID string, action Action) (*Snapshot, error) {
	ms, err := e.lookup(matchID)
	if err != nil {
		return nil, err
	}

	ms.emitMu.Lock()
	defer ms.emitMu.Unlock()
	snapshot, kind, err := e.processLocked(ms, action)
	if err != nil {
		if snapshot != nil {
			e.emit(NotificationMatchOver, matchID, snapshot)
			e.saveReplay(ms)
		}
		return snapshot, err
	}
	e.emit(kind, matchID, snapshot)
	if kind == NotificationMatchOver {
		e.saveReplay(ms)
	}
	return snapshot, nil
}

func (e *Engine) processLocked(ms *matchState, action Action) (snapshot *Snapshot, kind string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	match := ms.match
	if match.Over() {
		return nil, "", fmt.Errorf("%w: %s", ErrMatchOver, match.ID)
	}
	if err := action.Validate(); err != nil {
		return nil, "", err
	}
	if match.Player(action.PlayerID) == nil {
		return nil, "", illegal("player %s is not in match %s", action.PlayerID, match.ID)
	}
	if action.PlayerID != match.CurrentPlayerID {
		return nil, "", illegal("it is not %s's turn", action.PlayerID)
	}

	// A panicking handler is a card bug; the match cannot be trusted afterwards.
	defer func() {
		if r := recover(); r != nil {
			err = violation("panic while resolving %s: %v", action.Type, r)
			snapshot = e.abortLocked(ms, err.Error())
			kind = NotificationMatchOver
		}
	}()

	switch action.Type {
	case ActionPlayCard:
		err = e.playCard(ms, action.PlayCard)
	case ActionAttack:
		err = e.attack(ms, action.Attack)
	case ActionChangeActiveHermit:
		err = e.changeActive(ms, action.ChangeActive)
	case ActionEndTurn:
		err = e.endTurn(ms)
	}

	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			e.logger.Error("invariant violation, aborting match",
				zap.String("match_id", match.ID),
				zap.String("action", string(action.Type)),
				zap.Error(err),
			)
			return e.abortLocked(ms, err.Error()), NotificationMatchOver, err
		}
		e.logger.Debug("rejected action",
			zap.String("match_id", match.ID),
			zap.String("player_id", action.PlayerID),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
		return nil, "", err
	}

	e.logger.Debug("processed action",
		zap.String("match_id", match.ID),
		zap.String("player_id", action.PlayerID),
		zap.String("action", string(action.Type)),
		zap.String("phase", string(match.Phase)),
		zap.Int("turn", match.Turn),
	)
	kind = NotificationStateChanged
	if match.Over() {
		kind = NotificationMatchOver
	}
	return e.record(ms), kind, nil
}

// beginResolution resets the per-resolution coin flip history. It runs only
// after an action has passed validation.
func (e *Engine) beginResolution(ms *matchState) {
	coinflip.Reset(ms.match.Players[0], ms.match.Players[1])
}

func (e *Engine) record(ms *matchState) *Snapshot {
	snapshot := newSnapshot(ms.match)
	ms.replay.Append(snapshot)
	return snapshot
}

// Snapshot returns the current state of a match.
func (e *Engine) Snapshot(matchID string) (*Snapshot, error) {
	ms, err := e.lookup(matchID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return newSnapshot(ms.match), nil
}

// Replay returns the recorded snapshots of a match.
func (e *Engine) Replay(matchID string) (*Replay, error) {
	ms, err := e.lookup(matchID)
	if err != nil {
		return nil, err
	}
	return ms.replay, nil
}

// HookOrder lists, per channel, the owners of registered handlers in run order.
func (e *Engine) HookOrder(matchID string) (map[string][]string, error) {
	ms, err := e.lookup(matchID)
	if err != nil {
		return nil, err
	}
	return ms.pipeline.Order(), nil
}

// Abort ends a match without a winner.
func (e *Engine) Abort(matchID, reason string) (*Snapshot, error) {
	ms, err := e.lookup(matchID)
	if err != nil {
		return nil, err
	}
	ms.emitMu.Lock()
	defer ms.emitMu.Unlock()
	ms.mu.Lock()
	if ms.match.Over() {
		ms.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMatchOver, matchID)
	}
	snapshot := e.abortLocked(ms, reason)
	ms.mu.Unlock()

	e.logger.Info("match aborted",
		zap.String("match_id", matchID),
		zap.String("reason", reason),
	)
	e.emit(NotificationMatchOver, matchID, snapshot)
	e.saveReplay(ms)
	return snapshot, nil
}

func (e *Engine) abortLocked(ms *matchState, reason string) *Snapshot {
	ms.match.Phase = model.PhaseGameOver
	ms.match.Aborted = true
	ms.match.AbortReason = reason
	ms.match.Winner = ""
	return e.record(ms)
}

// Remove forgets a match.
func (e *Engine) Remove(matchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.matches[matchID]; !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	delete(e.matches, matchID)
	e.logger.Info("match removed", zap.String("match_id", matchID))
	return nil
}

// MatchIDs returns the ids of every held match, sorted.
func (e *Engine) MatchIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.matches))
	for id := range e.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) saveReplay(ms *matchState) {
	if e.opts.ReplayDir == "" {
		return
	}
	if err := ms.replay.Save(e.opts.ReplayDir); err != nil {
		e.logger.Warn("failed to save replay",
			zap.String("match_id", ms.match.ID),
			zap.Error(err),
		)
		return
	}
	e.logger.Info("saved replay to disk",
		zap.String("match_id", ms.match.ID),
		zap.Int("state_count", ms.replay.Len()),
		zap.String("directory", e.opts.ReplayDir),
	)
}
