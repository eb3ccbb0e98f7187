package game

import (
	"fmt"
	"testing"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/cards"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/coinflip"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap/zaptest"
)

const (
	alice = "alice"
	bob   = "bob"
)

// matchHarness drives one match through the engine and lets tests build boards
// directly instead of drawing the right cards.
type matchHarness struct {
	t       *testing.T
	engine  *Engine
	coins   *coinflip.Sequence
	matchID string
	next    int
}

func newMatchHarness(t *testing.T) *matchHarness {
	return newMatchHarnessWith(t, cards.Builtin(), Options{})
}

func newMatchHarnessWith(t *testing.T, registry *cards.Registry, opts Options) *matchHarness {
	t.Helper()
	coins := coinflip.NewSequence()
	opts.CoinSource = func() coinflip.Source { return coins }
	engine := NewEngine(zaptest.NewLogger(t), registry, opts)
	snapshot, err := engine.CreateMatch([2]PlayerSetup{
		{ID: alice, Name: "Alice"},
		{ID: bob, Name: "Bob"},
	})
	if err != nil {
		t.Fatalf("failed to create match: %v", err)
	}
	return &matchHarness{t: t, engine: engine, coins: coins, matchID: snapshot.MatchID}
}

func (h *matchHarness) state() *matchState {
	ms, err := h.engine.lookup(h.matchID)
	if err != nil {
		h.t.Fatalf("match missing: %v", err)
	}
	return ms
}

func (h *matchHarness) match() *model.Match {
	return h.state().match
}

func (h *matchHarness) player(id string) *model.Player {
	return h.match().Player(id)
}

func (h *matchHarness) row(playerID string, index int) *model.Row {
	return h.player(playerID).Row(index)
}

func (h *matchHarness) instance(cardID string) *model.CardInstance {
	def, err := h.engine.registry.MustDefinition(cardID)
	if err != nil {
		h.t.Fatalf("unknown card: %v", err)
	}
	h.next++
	return &model.CardInstance{CardID: cardID, Instance: fmt.Sprintf("%s-%d", cardID, h.next), Category: def.Category}
}

// place puts a card straight onto a row, bypassing the hand and turn limits.
func (h *matchHarness) place(playerID string, rowIndex int, cardID string) *model.CardInstance {
	h.t.Helper()
	ms := h.state()
	ms.mu.Lock()
	defer ms.mu.Unlock()

	card := h.instance(cardID)
	player := ms.match.Player(playerID)
	row := player.Row(rowIndex)
	switch card.Category {
	case model.CategoryHermit:
		def, _ := h.engine.registry.Definition(cardID)
		row.Hermit = card
		row.Health = def.Health
		if player.ActiveRow == model.NoRow {
			player.ActiveRow = rowIndex
		}
	case model.CategoryItem:
		slot := row.FreeItemSlot()
		if slot < 0 {
			h.t.Fatalf("row %d of %s has no free item slot", rowIndex, playerID)
		}
		row.Items[slot] = card
	case model.CategoryEffect:
		row.Effect = card
	}
	return card
}

// hermit places a hermit with the given items attached.
func (h *matchHarness) hermit(playerID string, rowIndex int, cardID string, items ...string) *model.CardInstance {
	h.t.Helper()
	card := h.place(playerID, rowIndex, cardID)
	for _, item := range items {
		h.place(playerID, rowIndex, item)
	}
	return card
}

// give adds a card to a player's hand.
func (h *matchHarness) give(playerID, cardID string) *model.CardInstance {
	ms := h.state()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	card := h.instance(cardID)
	player := ms.match.Player(playerID)
	player.Hand = append(player.Hand, card)
	return card
}

// recall moves a discarded card back into its owner's hand.
func (h *matchHarness) recall(playerID, instance string) *model.CardInstance {
	h.t.Helper()
	ms := h.state()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	player := ms.match.Player(playerID)
	for i, card := range player.Discarded {
		if card.Instance != instance {
			continue
		}
		player.Discarded = append(player.Discarded[:i], player.Discarded[i+1:]...)
		player.Hand = append(player.Hand, card)
		return card
	}
	h.t.Fatalf("%s has no discarded card %s", playerID, instance)
	return nil
}

func (h *matchHarness) setTurn(turn int, playerID string) {
	ms := h.state()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.match.Turn = turn
	ms.match.CurrentPlayerID = playerID
	ms.match.Flags = model.TurnFlags{}
	ms.match.Phase = model.PhaseAwaitingAction
}

func (h *matchHarness) setHealth(playerID string, rowIndex, health int) {
	ms := h.state()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.match.Player(playerID).Row(rowIndex).Health = health
}

func (h *matchHarness) process(action Action) (*Snapshot, error) {
	return h.engine.Process(h.matchID, action)
}

func (h *matchHarness) mustProcess(action Action) *Snapshot {
	h.t.Helper()
	snapshot, err := h.process(action)
	if err != nil {
		h.t.Fatalf("action %s by %s failed: %v", action.Type, action.PlayerID, err)
	}
	return snapshot
}

func (h *matchHarness) attack(playerID string, attackType model.AttackType) *Snapshot {
	h.t.Helper()
	return h.mustProcess(Action{Type: ActionAttack, PlayerID: playerID, Attack: &AttackPayload{AttackType: attackType}})
}

func (h *matchHarness) endTurn(playerID string) *Snapshot {
	h.t.Helper()
	return h.mustProcess(Action{Type: ActionEndTurn, PlayerID: playerID})
}

func (h *matchHarness) play(playerID string, card *model.CardInstance, rowIndex, slotIndex int, slot model.SlotType) (*Snapshot, error) {
	return h.process(Action{
		Type:     ActionPlayCard,
		PlayerID: playerID,
		PlayCard: &PlayCardPayload{CardInstance: card.Instance, RowIndex: rowIndex, SlotIndex: slotIndex, SlotType: slot},
	})
}

func (h *matchHarness) checksum() string {
	h.t.Helper()
	snapshot, err := h.engine.Snapshot(h.matchID)
	if err != nil {
		h.t.Fatalf("snapshot failed: %v", err)
	}
	sum, err := snapshot.Checksum()
	if err != nil {
		h.t.Fatalf("checksum failed: %v", err)
	}
	return sum.Hash
}
