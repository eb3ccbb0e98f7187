package cards

import (
	"errors"
	"fmt"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/coinflip"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/hooks"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// ErrUnknownCard is returned when a card id is not in the catalogue.
var ErrUnknownCard = errors.New("unknown card")

// Services are the shared helpers handed to every behavior at registration.
type Services struct {
	Flipper *coinflip.Flipper
	Schema  *customstate.Schema
	Logger  *zap.Logger
}

// Behavior is the capability a card exposes to attach its hook handlers.
// Register runs once per match. Per-match state must live in the closures it
// creates or in custom state, never on the behavior value itself.
type Behavior interface {
	Register(p *hooks.Pipeline, svc Services) error
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(p *hooks.Pipeline, svc Services) error

// Register implements Behavior.
func (f BehaviorFunc) Register(p *hooks.Pipeline, svc Services) error {
	return f(p, svc)
}

// Card pairs a static definition with its optional behavior.
type Card struct {
	Def      model.CardDefinition
	Behavior Behavior
}

// Registry is the ordered card catalogue of a match. Catalogue order is the
// order behaviors register, and therefore the order handlers run.
type Registry struct {
	order []string
	cards map[string]*Card
}

// NewRegistry creates an empty catalogue.
func NewRegistry() *Registry {
	return &Registry{cards: make(map[string]*Card)}
}

// Add appends a card to the catalogue.
func (r *Registry) Add(def model.CardDefinition, behavior Behavior) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.cards[def.ID]; exists {
		return fmt.Errorf("card %s already registered", def.ID)
	}
	r.cards[def.ID] = &Card{Def: def, Behavior: behavior}
	r.order = append(r.order, def.ID)
	return nil
}

// Definition returns the static record of a card.
func (r *Registry) Definition(id string) (*model.CardDefinition, bool) {
	card, ok := r.cards[id]
	if !ok {
		return nil, false
	}
	return &card.Def, true
}

// MustDefinition returns the static record of a card or an ErrUnknownCard error.
func (r *Registry) MustDefinition(id string) (*model.CardDefinition, error) {
	def, ok := r.Definition(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return def, nil
}

// IDs returns card ids in catalogue order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the catalogue size.
func (r *Registry) Len() int {
	return len(r.order)
}

// Reordered returns a copy of the catalogue with an explicit order. Every id
// must appear exactly once.
func (r *Registry) Reordered(ids []string) (*Registry, error) {
	if len(ids) != len(r.order) {
		return nil, fmt.Errorf("reorder: expected %d ids, got %d", len(r.order), len(ids))
	}
	out := NewRegistry()
	for _, id := range ids {
		card, ok := r.cards[id]
		if !ok {
			return nil, fmt.Errorf("reorder: %w: %s", ErrUnknownCard, id)
		}
		if _, dup := out.cards[id]; dup {
			return nil, fmt.Errorf("reorder: %s listed twice", id)
		}
		copied := *card
		out.cards[id] = &copied
		out.order = append(out.order, id)
	}
	return out, nil
}

// Attach registers the core handlers and then every card behavior, in
// catalogue order, into the pipeline.
func (r *Registry) Attach(p *hooks.Pipeline, svc Services) error {
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}
	if err := registerCore(p, svc); err != nil {
		return fmt.Errorf("register core handlers: %w", err)
	}
	for _, id := range r.order {
		card := r.cards[id]
		if card.Behavior == nil {
			continue
		}
		if err := card.Behavior.Register(p, svc); err != nil {
			return fmt.Errorf("register card %s: %w", id, err)
		}
	}
	return nil
}

// CoreOwner is the owner id of handlers the engine needs regardless of cards.
const CoreOwner = "core"

// registerCore attaches handlers every match needs: a re-placed hermit starts
// with no custom state from an earlier placement of the same instance.
func registerCore(p *hooks.Pipeline, svc Services) error {
	p.PlayCard.RegisterFor(CoreOwner, string(model.CategoryHermit), func(ctx model.PlayContext) {
		if ctx.Card == nil {
			return
		}
		if removed := ctx.Player.Custom.ClearInstance(ctx.Card.Instance); removed > 0 {
			svc.Logger.Debug("cleared stale custom state",
				zap.String("player_id", ctx.Player.ID),
				zap.String("card_instance", ctx.Card.Instance),
				zap.Int("entries", removed),
			)
		}
	})
	return nil
}
