package model

import "math"

// DerivedState is the read-only context computed for one in-flight action.
// Handlers must not mutate anything reachable from it; persistent changes are
// made by the engine's commit steps.
type DerivedState struct {
	Match    *Match
	Current  *Player
	Opponent *Player

	Attacker         *CardInstance
	AttackerDef      *CardDefinition
	AttackType       AttackType
	AttackerRow      *Row
	AttackerRowIndex int

	OpponentActiveRow      *Row
	OpponentActiveRowIndex int
	OpponentActiveHermit   *CardInstance
	OpponentEffect         *CardInstance
}

// IsAttacker reports whether the acting hermit is a copy of cardID.
func (d DerivedState) IsAttacker(cardID string) bool {
	return d.Attacker != nil && d.Attacker.CardID == cardID
}

// IsDefender reports whether the opposing active hermit is a copy of cardID.
func (d DerivedState) IsDefender(cardID string) bool {
	return d.OpponentActiveHermit != nil && d.OpponentActiveHermit.CardID == cardID
}

// AttackTarget is the accumulator threaded through the attack and attackResult
// channels. Row and Player point at live state and are read-only inside the
// pipeline.
type AttackTarget struct {
	Player     *Player
	Row        *Row
	RowIndex   int
	IsActive   bool
	BaseDamage int
	Multiplier float64
	Ailments   []Ailment

	// Set by the engine after damage is applied.
	Damage int
	Died   bool

	// Set by attackResult handlers that save the hermit.
	Revived       bool
	RecoverHealth int
	RevivedBy     string
}

// NewAttackTarget builds the initial accumulator for an attack on a row.
func NewAttackTarget(player *Player, rowIndex int, baseDamage int) AttackTarget {
	return AttackTarget{
		Player:     player,
		Row:        player.Row(rowIndex),
		RowIndex:   rowIndex,
		IsActive:   rowIndex == player.ActiveRow,
		BaseDamage: baseDamage,
		Multiplier: 1,
	}
}

// FinalDamage is base damage times multiplier, floored at zero.
func (t AttackTarget) FinalDamage() int {
	damage := int(math.Floor(float64(t.BaseDamage) * t.Multiplier))
	if damage < 0 {
		return 0
	}
	return damage
}

// WithAilment returns a copy carrying an extra pending ailment. The ailment slice
// is copied so earlier handlers' values are not aliased.
func (t AttackTarget) WithAilment(ailment Ailment) AttackTarget {
	ailments := make([]Ailment, 0, len(t.Ailments)+1)
	ailments = append(ailments, t.Ailments...)
	t.Ailments = append(ailments, ailment)
	return t
}

// WithoutAilment returns a copy with every pending ailment of kind removed.
func (t AttackTarget) WithoutAilment(kind AilmentKind) AttackTarget {
	ailments := make([]Ailment, 0, len(t.Ailments))
	for _, a := range t.Ailments {
		if a.Kind != kind {
			ailments = append(ailments, a)
		}
	}
	t.Ailments = ailments
	return t
}

// HasPendingAilment reports whether an ailment of kind is pending.
func (t AttackTarget) HasPendingAilment(kind AilmentKind) bool {
	for _, a := range t.Ailments {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Recovery is one knockout-recovery offer gathered by the hermitDeath channel.
type Recovery struct {
	Amount int
	Source string
	// DiscardEffect discards the row's effect card when this entry is used.
	DiscardEffect bool
}

// DeathContext describes a hermit about to be knocked out.
type DeathContext struct {
	Match    *Match
	Player   *Player
	Row      *Row
	RowIndex int
	// ByAilment is true when the knockout came from an end-of-turn tick.
	ByAilment bool
}

// TurnContext is handed to turnStart and turnEnd handlers.
type TurnContext struct {
	Match    *Match
	Player   *Player
	Opponent *Player
}

// SlotType names the board slot a played card goes into.
type SlotType string

const (
	SlotHermit SlotType = "hermit"
	SlotItem   SlotType = "item"
	SlotEffect SlotType = "effect"
)

// PlayContext is handed to playCard handlers after a card lands on the board.
type PlayContext struct {
	Match     *Match
	Player    *Player
	Opponent  *Player
	Card      *CardInstance
	Def       *CardDefinition
	RowIndex  int
	SlotIndex int
	SlotType  SlotType
}
