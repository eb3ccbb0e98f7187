package model

import (
	"testing"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttackTargetFinalDamage(t *testing.T) {
	player := NewPlayer("p1", "Alice", customstate.NewSchema())
	player.ActiveRow = 0

	target := NewAttackTarget(player, 0, 80)
	assert.True(t, target.IsActive)
	assert.Equal(t, 80, target.FinalDamage())

	target.Multiplier = 0
	assert.Equal(t, 0, target.FinalDamage())

	target.Multiplier = 1.5
	assert.Equal(t, 120, target.FinalDamage())

	target.BaseDamage = -40
	target.Multiplier = 1
	assert.Equal(t, 0, target.FinalDamage(), "damage is floored at zero")
}

func TestAttackTargetAilmentsAreCopied(t *testing.T) {
	player := NewPlayer("p1", "Alice", customstate.NewSchema())
	base := NewAttackTarget(player, 0, 10)

	burned := base.WithAilment(Ailment{Kind: AilmentBurn, Duration: DurationPermanent})
	assert.Empty(t, base.Ailments)
	assert.True(t, burned.HasPendingAilment(AilmentBurn))

	cured := burned.WithoutAilment(AilmentBurn)
	assert.False(t, cured.HasPendingAilment(AilmentBurn))
	assert.True(t, burned.HasPendingAilment(AilmentBurn))
}

func TestRowAilments(t *testing.T) {
	row := &Row{}
	row.AddAilment(Ailment{Kind: AilmentPoison, Duration: 2})
	row.AddAilment(Ailment{Kind: AilmentPoison, Duration: DurationPermanent})
	require.Len(t, row.Ailments, 1)
	assert.Equal(t, DurationPermanent, row.Ailments[0].Duration)

	row.AddAilment(Ailment{Kind: AilmentPoison, Duration: 3})
	assert.Equal(t, DurationPermanent, row.Ailments[0].Duration, "a permanent ailment is never shortened")

	assert.True(t, row.RemoveAilment(AilmentPoison))
	assert.False(t, row.HasAilment(AilmentPoison))
	assert.False(t, row.RemoveAilment(AilmentBurn))
}

func TestRowClear(t *testing.T) {
	row := &Row{
		Hermit: &CardInstance{CardID: "h", Instance: "1"},
		Items:  [MaxItemsPerRow]*CardInstance{nil, {CardID: "i", Instance: "2"}},
		Effect: &CardInstance{CardID: "e", Instance: "3"},
		Health: 100,
	}
	assert.Equal(t, 0, row.FreeItemSlot())
	require.Len(t, row.ItemList(), 1)

	cards := row.Clear()
	assert.Len(t, cards, 3)
	assert.Empty(t, row.ItemList())
	assert.True(t, row.Empty())
	assert.Equal(t, 0, row.Health)
}

func TestPlayerHandAndPile(t *testing.T) {
	player := NewPlayer("p1", "Alice", customstate.NewSchema())
	player.Pile = []*CardInstance{{Instance: "a"}, {Instance: "b"}}

	assert.Equal(t, 1, player.Draw(1))
	assert.Equal(t, 1, player.Draw(5))
	assert.Equal(t, 0, player.Draw(1))
	require.Len(t, player.Hand, 2)

	card, err := player.TakeFromHand("a")
	require.NoError(t, err)
	assert.Equal(t, "a", card.Instance)
	_, err = player.TakeFromHand("a")
	assert.Error(t, err)
}

func TestMatchPlayers(t *testing.T) {
	schema := customstate.NewSchema()
	m := &Match{
		Players:         [2]*Player{NewPlayer("p1", "A", schema), NewPlayer("p2", "B", schema)},
		CurrentPlayerID: "p1",
	}
	assert.Equal(t, "p1", m.Current().ID)
	assert.Equal(t, "p2", m.Opponent().ID)
	assert.Nil(t, m.Player("p3"))
}

func TestDefinitionValidate(t *testing.T) {
	def := &CardDefinition{ID: "x", Category: CategoryHermit, Health: 280, Primary: &AttackDefinition{Name: "Hit", Damage: 50}}
	assert.NoError(t, def.Validate())
	assert.Equal(t, def.Primary, def.Attack(AttackPrimary))
	assert.Nil(t, def.Attack(AttackSecondary))

	def.Health = 0
	assert.Error(t, def.Validate())

	item := &CardDefinition{ID: "item", Category: CategoryItem}
	assert.Error(t, item.Validate())

	_, err := ParseAttackType("tertiary")
	assert.Error(t, err)
	at, err := ParseAttackType(" Secondary ")
	require.NoError(t, err)
	assert.Equal(t, AttackSecondary, at)
}
