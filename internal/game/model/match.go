package model

import (
	"fmt"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
)

// BoardSize is the number of rows on each player's board.
const BoardSize = 5

// MaxItemsPerRow is the number of item slots on a row.
const MaxItemsPerRow = 3

// NoRow marks the absence of an active row.
const NoRow = -1

// Phase is the turn/combat state of a match.
type Phase string

const (
	PhaseAwaitingAction Phase = "AWAITING_ACTION"
	PhaseCardPlayed     Phase = "CARD_PLAYED"
	PhaseAttackDeclared Phase = "ATTACK_DECLARED"
	PhaseAttackResolved Phase = "ATTACK_RESOLVED"
	PhaseTurnEnded      Phase = "TURN_ENDED"
	PhaseGameOver       Phase = "GAME_OVER"
)

// AilmentKind names a status effect.
type AilmentKind string

const (
	AilmentBurn   AilmentKind = "burn"
	AilmentPoison AilmentKind = "poison"
)

// DurationPermanent marks an ailment that lasts until cured or knocked out.
const DurationPermanent = -1

// Ailment is a status effect attached to a row.
type Ailment struct {
	Kind     AilmentKind `json:"kind"`
	Duration int         `json:"duration"`
}

// CoinSide is one flip outcome.
type CoinSide string

const (
	Heads CoinSide = "heads"
	Tails CoinSide = "tails"
)

// CoinFlip is the ordered outcome of one ability use.
type CoinFlip []CoinSide

// Heads reports whether the first flip landed heads.
func (c CoinFlip) Heads() bool {
	return len(c) > 0 && c[0] == Heads
}

// CountHeads returns the number of heads in the sequence.
func (c CoinFlip) CountHeads() int {
	n := 0
	for _, side := range c {
		if side == Heads {
			n++
		}
	}
	return n
}

// Row is one board slot.
type Row struct {
	Hermit   *CardInstance                 `json:"hermitCard"`
	Items    [MaxItemsPerRow]*CardInstance `json:"itemCards"`
	Effect   *CardInstance                 `json:"effectCard"`
	Health   int                           `json:"health"`
	Ailments []Ailment                     `json:"ailments"`
}

// Empty reports whether the row has no hermit.
func (r *Row) Empty() bool {
	return r == nil || r.Hermit == nil
}

// ItemList returns the attached item cards in slot order.
func (r *Row) ItemList() []*CardInstance {
	items := make([]*CardInstance, 0, MaxItemsPerRow)
	for _, item := range r.Items {
		if item != nil {
			items = append(items, item)
		}
	}
	return items
}

// FreeItemSlot returns the first empty item slot, or -1.
func (r *Row) FreeItemSlot() int {
	for i, item := range r.Items {
		if item == nil {
			return i
		}
	}
	return -1
}

// HasAilment reports whether an ailment of kind is attached.
func (r *Row) HasAilment(kind AilmentKind) bool {
	for _, a := range r.Ailments {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// AddAilment attaches an ailment; an existing ailment of the same kind keeps the
// longer duration.
func (r *Row) AddAilment(ailment Ailment) {
	for i, a := range r.Ailments {
		if a.Kind != ailment.Kind {
			continue
		}
		if a.Duration != DurationPermanent && (ailment.Duration == DurationPermanent || ailment.Duration > a.Duration) {
			r.Ailments[i].Duration = ailment.Duration
		}
		return
	}
	r.Ailments = append(r.Ailments, ailment)
}

// RemoveAilment cures every ailment of kind.
func (r *Row) RemoveAilment(kind AilmentKind) bool {
	kept := r.Ailments[:0]
	removed := false
	for _, a := range r.Ailments {
		if a.Kind == kind {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	r.Ailments = kept
	return removed
}

// Clear empties the row and returns every card that was on it.
func (r *Row) Clear() []*CardInstance {
	cards := make([]*CardInstance, 0, 2+MaxItemsPerRow)
	if r.Hermit != nil {
		cards = append(cards, r.Hermit)
	}
	cards = append(cards, r.ItemList()...)
	if r.Effect != nil {
		cards = append(cards, r.Effect)
	}
	r.Hermit = nil
	r.Items = [MaxItemsPerRow]*CardInstance{}
	r.Effect = nil
	r.Health = 0
	r.Ailments = nil
	return cards
}

// Player is one side of a match.
type Player struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Hand      []*CardInstance     `json:"hand"`
	Pile      []*CardInstance     `json:"pile"`
	Board     []*Row              `json:"board"`
	ActiveRow int                 `json:"activeRow"`
	Discarded []*CardInstance     `json:"discarded"`
	CoinFlips map[string]CoinFlip `json:"coinFlips"`
	Custom    *customstate.Store  `json:"-"`
}

// NewPlayer builds a player with an empty board.
func NewPlayer(id, name string, schema *customstate.Schema) *Player {
	board := make([]*Row, BoardSize)
	for i := range board {
		board[i] = &Row{}
	}
	return &Player{
		ID:        id,
		Name:      name,
		Hand:      make([]*CardInstance, 0),
		Pile:      make([]*CardInstance, 0),
		Board:     board,
		ActiveRow: NoRow,
		Discarded: make([]*CardInstance, 0),
		CoinFlips: make(map[string]CoinFlip),
		Custom:    customstate.NewStore(schema),
	}
}

// Row returns the row at index or nil.
func (p *Player) Row(index int) *Row {
	if index < 0 || index >= len(p.Board) {
		return nil
	}
	return p.Board[index]
}

// Active returns the active row or nil.
func (p *Player) Active() *Row {
	return p.Row(p.ActiveRow)
}

// HasHermits reports whether any row holds a hermit.
func (p *Player) HasHermits() bool {
	for _, row := range p.Board {
		if !row.Empty() {
			return true
		}
	}
	return false
}

// HandIndex returns the position of an instance in the hand, or -1.
func (p *Player) HandIndex(instance string) int {
	for i, card := range p.Hand {
		if card.Instance == instance {
			return i
		}
	}
	return -1
}

// TakeFromHand removes an instance from the hand.
func (p *Player) TakeFromHand(instance string) (*CardInstance, error) {
	idx := p.HandIndex(instance)
	if idx < 0 {
		return nil, fmt.Errorf("card instance %s not in hand", instance)
	}
	card := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return card, nil
}

// Draw moves up to n cards from the pile into the hand.
func (p *Player) Draw(n int) int {
	drawn := 0
	for drawn < n && len(p.Pile) > 0 {
		p.Hand = append(p.Hand, p.Pile[0])
		p.Pile = p.Pile[1:]
		drawn++
	}
	return drawn
}

// TurnFlags tracks what the current player already did this turn.
type TurnFlags struct {
	Attacked      bool `json:"attacked"`
	ItemAttached  bool `json:"itemAttached"`
	ActiveChanged bool `json:"activeChanged"`
}

// Match is the canonical state of one game between two players.
type Match struct {
	ID              string     `json:"id"`
	Players         [2]*Player `json:"players"`
	Turn            int        `json:"turn"`
	CurrentPlayerID string     `json:"currentPlayerId"`
	Phase           Phase      `json:"phase"`
	Flags           TurnFlags  `json:"flags"`
	Winner          string     `json:"winner,omitempty"`
	Aborted         bool       `json:"aborted,omitempty"`
	AbortReason     string     `json:"abortReason,omitempty"`
}

// Current returns the player whose turn it is.
func (m *Match) Current() *Player {
	return m.Player(m.CurrentPlayerID)
}

// Opponent returns the player waiting for their turn.
func (m *Match) Opponent() *Player {
	return m.OpponentOf(m.CurrentPlayerID)
}

// Player returns the player with the given id.
func (m *Match) Player(id string) *Player {
	for _, p := range m.Players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// OpponentOf returns the other player.
func (m *Match) OpponentOf(id string) *Player {
	for _, p := range m.Players {
		if p != nil && p.ID != id {
			return p
		}
	}
	return nil
}

// Over reports whether the match reached its terminal state.
func (m *Match) Over() bool {
	return m.Phase == PhaseGameOver
}
