package cards

import (
	"fmt"
	"testing"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/coinflip"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/hooks"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	t        *testing.T
	reg      *Registry
	match    *model.Match
	p1, p2   *model.Player
	pipeline *hooks.Pipeline
	coins    *coinflip.Sequence
	next     int
}

func newFixture(t *testing.T, reg *Registry) *fixture {
	t.Helper()
	schema := customstate.NewSchema()
	p1 := model.NewPlayer("p1", "Alice", schema)
	p2 := model.NewPlayer("p2", "Bob", schema)
	f := &fixture{
		t:        t,
		reg:      reg,
		p1:       p1,
		p2:       p2,
		pipeline: hooks.NewPipeline(),
		coins:    coinflip.NewSequence(),
		match: &model.Match{
			ID:              "match-1",
			Players:         [2]*model.Player{p1, p2},
			Turn:            1,
			CurrentPlayerID: "p1",
			Phase:           model.PhaseAwaitingAction,
		},
	}
	logger := zaptest.NewLogger(t)
	err := reg.Attach(f.pipeline, Services{
		Flipper: coinflip.NewFlipper(f.coins, logger),
		Schema:  schema,
		Logger:  logger,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) place(p *model.Player, row int, cardID string) *model.CardInstance {
	f.t.Helper()
	def, ok := f.reg.Definition(cardID)
	require.True(f.t, ok, cardID)
	f.next++
	card := &model.CardInstance{CardID: cardID, Instance: fmt.Sprintf("inst-%d", f.next), Category: def.Category}
	switch def.Category {
	case model.CategoryHermit:
		p.Board[row].Hermit = card
		p.Board[row].Health = def.Health
		if p.ActiveRow == model.NoRow {
			p.ActiveRow = row
		}
	case model.CategoryEffect:
		p.Board[row].Effect = card
	case model.CategoryItem:
		slot := p.Board[row].FreeItemSlot()
		require.GreaterOrEqual(f.t, slot, 0)
		p.Board[row].Items[slot] = card
	}
	return card
}

func (f *fixture) derived(attackType model.AttackType) model.DerivedState {
	current := f.match.Current()
	opponent := f.match.Opponent()
	row := current.Active()
	def, _ := f.reg.Definition(row.Hermit.CardID)
	ds := model.DerivedState{
		Match:                  f.match,
		Current:                current,
		Opponent:               opponent,
		Attacker:               row.Hermit,
		AttackerDef:            def,
		AttackType:             attackType,
		AttackerRow:            row,
		AttackerRowIndex:       current.ActiveRow,
		OpponentActiveRowIndex: opponent.ActiveRow,
	}
	if target := opponent.Active(); target != nil {
		ds.OpponentActiveRow = target
		ds.OpponentActiveHermit = target.Hermit
		ds.OpponentEffect = target.Effect
	}
	return ds
}

func (f *fixture) attack(attackType model.AttackType) model.AttackTarget {
	ds := f.derived(attackType)
	target := model.NewAttackTarget(ds.Opponent, ds.Opponent.ActiveRow, ds.AttackerDef.Attack(attackType).Damage)
	return f.pipeline.Attack.Run(target, ds)
}

// resolve runs both attack passes without committing damage.
func (f *fixture) resolve(attackType model.AttackType) model.AttackTarget {
	return f.pipeline.AttackResult.Run(f.attack(attackType), f.derived(attackType))
}

func (f *fixture) turn(turn int, playerID string) {
	f.match.Turn = turn
	f.match.CurrentPlayerID = playerID
}

func (f *fixture) turnContext() model.TurnContext {
	return model.TurnContext{Match: f.match, Player: f.match.Current(), Opponent: f.match.Opponent()}
}

func TestBuiltinCatalogueOrder(t *testing.T) {
	reg := Builtin()
	ids := reg.IDs()
	require.NotEmpty(t, ids)
	assert.Equal(t, EthoslabRareID, ids[0])
	assert.Equal(t, len(BuiltinDefinitions()), reg.Len())

	f := newFixture(t, reg)
	assert.Equal(t,
		[]string{EthoslabRareID, PearlescentMoonID, XisumavoidRareID, WaterBucketID, MilkBucketID},
		f.pipeline.Attack.Owners(),
	)
	assert.Equal(t, []string{GoodTimesWithScarID, PearlescentMoonID}, f.pipeline.AttackResult.Owners())
	assert.Equal(t, []string{GoodTimesWithScarID, TotemID}, f.pipeline.HermitDeath.Owners())
	assert.Equal(t, []string{PearlescentMoonID}, f.pipeline.TurnStart.Owners())
	assert.Equal(t, []string{PearlescentMoonID}, f.pipeline.TurnEnd.Owners())
	assert.Equal(t, CoreOwner, f.pipeline.PlayCard.Owners()[0], "core handlers run before any card")
}

func TestRegistryReordered(t *testing.T) {
	reg := Builtin()
	ids := reg.IDs()
	reversed := make([]string, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}

	out, err := reg.Reordered(reversed)
	require.NoError(t, err)
	assert.Equal(t, reversed, out.IDs())

	_, err = reg.Reordered(ids[:2])
	assert.Error(t, err)

	dup := append([]string{ids[0]}, ids[:len(ids)-1]...)
	_, err = reg.Reordered(dup)
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicatesAndInvalid(t *testing.T) {
	reg := NewRegistry()
	def := BuiltinDefinitions()[0]
	require.NoError(t, reg.Add(def, nil))
	assert.Error(t, reg.Add(def, nil))
	assert.Error(t, reg.Add(model.CardDefinition{ID: "broken", Category: model.CategoryHermit}, nil))

	_, err := reg.MustDefinition("nope")
	assert.ErrorIs(t, err, ErrUnknownCard)
}

func TestFromDefinitionsBindsBehaviorsByID(t *testing.T) {
	defs := []model.CardDefinition{
		{ID: "custom_hermit", Name: "Custom", Category: model.CategoryHermit, Health: 200,
			Primary: &model.AttackDefinition{Name: "Poke", Damage: 30}},
		BuiltinDefinitions()[0],
	}
	reg, err := FromDefinitions(defs)
	require.NoError(t, err)

	f := newFixture(t, reg)
	assert.Equal(t, []string{EthoslabRareID}, f.pipeline.Attack.Owners())
}

func TestUnrelatedHermitsPassThroughEveryHandler(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, TangoTekCommonID)
	f.place(f.p2, 0, KeralisCommonID)

	for _, attackType := range []model.AttackType{model.AttackPrimary, model.AttackSecondary} {
		ds := f.derived(attackType)
		initial := model.NewAttackTarget(f.p2, 0, ds.AttackerDef.Attack(attackType).Damage)

		assert.Equal(t, initial, f.pipeline.Attack.Run(initial, ds), "attack channel cross-talk on %s", attackType)

		initial.Died = true
		assert.Equal(t, initial, f.pipeline.AttackResult.Run(initial, ds), "attackResult cross-talk on %s", attackType)
	}
	assert.Equal(t, 0, f.coins.Used(), "no ability flipped a coin")
	assert.Equal(t, 0, f.p1.Custom.Len())
	assert.Equal(t, 0, f.p2.Custom.Len())
}

func TestBlueFireBurnsOnHeads(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, EthoslabRareID)
	f.place(f.p2, 0, TangoTekCommonID)
	f.coins.Push(model.Heads)

	result := f.attack(model.AttackSecondary)
	require.Len(t, result.Ailments, 1)
	assert.Equal(t, model.Ailment{Kind: model.AilmentBurn, Duration: model.DurationPermanent}, result.Ailments[0])
	assert.Equal(t, model.CoinFlip{model.Heads}, f.p1.CoinFlips[EthoslabRareID])
	assert.Empty(t, f.p2.Board[0].Ailments, "the attack channel never commits")
}

func TestBlueFireTailsAndPrimary(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, EthoslabRareID)
	f.place(f.p2, 0, TangoTekCommonID)
	f.coins.Push(model.Tails)

	assert.Empty(t, f.attack(model.AttackSecondary).Ailments)
	assert.Empty(t, f.attack(model.AttackPrimary).Ailments)
	assert.Equal(t, 1, f.coins.Used(), "primary attack does not flip")
}

func TestBlueFireBlockedByWaterBucket(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, EthoslabRareID)
	f.place(f.p2, 0, TangoTekCommonID)
	f.place(f.p2, 0, WaterBucketID)
	f.coins.Push(model.Heads)

	result := f.attack(model.AttackSecondary)
	assert.False(t, result.HasPendingAilment(model.AilmentBurn))
}

func TestWaterBucketStripsBurnRegardlessOfOrder(t *testing.T) {
	reg := Builtin()
	ids := reg.IDs()
	// Move the water bucket ahead of Etho so its handler runs first.
	order := []string{WaterBucketID}
	for _, id := range ids {
		if id != WaterBucketID {
			order = append(order, id)
		}
	}
	reordered, err := reg.Reordered(order)
	require.NoError(t, err)

	f := newFixture(t, reordered)
	f.place(f.p1, 0, EthoslabRareID)
	f.place(f.p2, 0, TangoTekCommonID)
	f.place(f.p2, 0, WaterBucketID)
	f.coins.Push(model.Heads)

	assert.False(t, f.attack(model.AttackSecondary).HasPendingAilment(model.AilmentBurn))
}

func TestGoodnessMePoisonsUnlessMilk(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, XisumavoidRareID)
	f.place(f.p2, 0, KeralisCommonID)

	assert.True(t, f.attack(model.AttackSecondary).HasPendingAilment(model.AilmentPoison))

	f.place(f.p2, 0, MilkBucketID)
	assert.False(t, f.attack(model.AttackSecondary).HasPendingAilment(model.AilmentPoison))
}

func TestBucketCuresOnPlay(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p2, 1, KeralisCommonID)
	f.p2.Board[1].AddAilment(model.Ailment{Kind: model.AilmentBurn, Duration: model.DurationPermanent})
	bucket := f.place(f.p2, 1, WaterBucketID)

	def, _ := f.reg.Definition(WaterBucketID)
	f.pipeline.PlayCard.RunCategory(string(model.CategoryEffect), model.PlayContext{
		Match: f.match, Player: f.p2, Opponent: f.p1, Card: bucket, Def: def,
		RowIndex: 1, SlotType: model.SlotEffect,
	})
	assert.False(t, f.p2.Board[1].HasAilment(model.AilmentBurn))
}

func TestAussiePingMissesOnceThenGuards(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, PearlescentMoonID)
	f.place(f.p2, 0, TangoTekCommonID)
	ping := []string{PearlescentMoonID + ":aussie_ping"}
	guard := []string{PearlescentMoonID + ":aussie_ping_guard"}

	f.turn(2, "p1")
	assert.Empty(t, f.attack(model.AttackSecondary).Ailments)
	assert.Equal(t, 0, f.p1.Custom.Len(), "the attack pass does not arm")
	f.resolve(model.AttackSecondary)
	assert.Equal(t, ping, f.p1.Custom.Keys())
	assert.Equal(t, 0, f.coins.Used(), "arming does not flip")

	f.turn(3, "p2")
	f.coins.Push(model.Heads, model.Heads)
	missed := f.attack(model.AttackPrimary)
	assert.Equal(t, 0.0, missed.Multiplier)
	assert.Equal(t, 0, missed.FinalDamage())
	assert.Equal(t, ping, f.p1.Custom.Keys(), "the miss is committed in attackResult")
	assert.Equal(t, model.CoinFlip{model.Heads}, f.p2.CoinFlips[PearlescentMoonID])

	f.pipeline.AttackResult.Run(missed, f.derived(model.AttackPrimary))
	assert.Equal(t, guard, f.p1.Custom.Keys())

	// Pearl cannot arm again straight after a miss.
	f.turn(4, "p1")
	f.resolve(model.AttackSecondary)
	assert.Equal(t, guard, f.p1.Custom.Keys())

	f.turn(5, "p2")
	f.pipeline.TurnStart.Run(f.turnContext())
	assert.Equal(t, 0, f.p1.Custom.Len())
	assert.Equal(t, 1.0, f.attack(model.AttackPrimary).Multiplier)
	assert.Equal(t, 1, f.coins.Used())
}

func TestAussiePingTailsHits(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, PearlescentMoonID)
	f.place(f.p2, 0, KeralisCommonID)
	f.resolve(model.AttackSecondary)

	f.turn(2, "p2")
	f.coins.Push(model.Tails)
	result := f.resolve(model.AttackPrimary)
	assert.Equal(t, 1.0, result.Multiplier)
	assert.Equal(t, 0, f.p1.Custom.Len(), "the ping is consumed without setting the guard")
}

func TestAussiePingExpiresWithOpponentsTurn(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, PearlescentMoonID)
	f.place(f.p2, 0, KeralisCommonID)
	f.resolve(model.AttackSecondary)

	f.pipeline.TurnEnd.Run(f.turnContext())
	assert.Equal(t, 1, f.p1.Custom.Len(), "Pearl's own turn end keeps the ping")

	f.turn(2, "p2")
	f.pipeline.TurnEnd.Run(f.turnContext())
	assert.Equal(t, 0, f.p1.Custom.Len())
}

func TestPrimaryAttackDoesNotArmAussiePing(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, PearlescentMoonID)
	f.place(f.p2, 0, KeralisCommonID)

	f.resolve(model.AttackPrimary)
	assert.Equal(t, 0, f.p1.Custom.Len())
}

func TestDeathloopArmsAndRevivesOnce(t *testing.T) {
	f := newFixture(t, Builtin())
	scar := f.place(f.p1, 0, GoodTimesWithScarID)
	f.place(f.p2, 0, KeralisCommonID)

	// Scar attacks with Deathloop on turn 1.
	f.attack(model.AttackSecondary)
	assert.Equal(t, 0, f.p1.Custom.Len(), "the attack pass does not arm")
	f.resolve(model.AttackSecondary)
	assert.Len(t, f.p1.Custom.Keys(), 1)

	// Bob's turn: a lethal hit on Scar.
	f.match.Turn = 2
	f.match.CurrentPlayerID = "p2"
	f.coins.Push(model.Heads)
	ds := f.derived(model.AttackSecondary)
	hit := model.NewAttackTarget(f.p1, 0, 300)
	hit.Died = true
	result := f.pipeline.AttackResult.Run(hit, ds)
	assert.True(t, result.Revived)
	assert.Equal(t, DeathloopHealth, result.RecoverHealth)
	assert.Equal(t, GoodTimesWithScarID, result.RevivedBy)

	// Re-armed on turn 3, a second lethal hit on turn 4 is not revived.
	f.match.Turn = 3
	f.match.CurrentPlayerID = "p1"
	f.resolve(model.AttackSecondary)

	f.match.Turn = 4
	f.match.CurrentPlayerID = "p2"
	f.coins.Push(model.Heads)
	again := f.pipeline.AttackResult.Run(hit, f.derived(model.AttackSecondary))
	assert.False(t, again.Revived)

	// A fresh placement of the same instance forgets the revival.
	def, _ := f.reg.Definition(GoodTimesWithScarID)
	f.pipeline.PlayCard.RunCategory(string(model.CategoryHermit), model.PlayContext{
		Match: f.match, Player: f.p1, Opponent: f.p2, Card: scar, Def: def, SlotType: model.SlotHermit,
	})
	assert.Equal(t, 0, f.p1.Custom.Len())
}

func TestDeathloopNeedsArming(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, GoodTimesWithScarID)
	f.place(f.p2, 0, KeralisCommonID)
	f.match.CurrentPlayerID = "p2"
	f.coins.Push(model.Heads)

	hit := model.NewAttackTarget(f.p1, 0, 300)
	hit.Died = true
	result := f.pipeline.AttackResult.Run(hit, f.derived(model.AttackPrimary))
	assert.False(t, result.Revived)
	assert.Equal(t, 0, f.coins.Used())
}

func TestDeathloopAnswersAilmentKnockout(t *testing.T) {
	f := newFixture(t, Builtin())
	scar := f.place(f.p1, 0, GoodTimesWithScarID)
	f.place(f.p2, 0, KeralisCommonID)
	f.resolve(model.AttackSecondary)
	f.coins.Push(model.Heads)

	ctx := model.DeathContext{Match: f.match, Player: f.p1, Row: f.p1.Board[0], RowIndex: 0}
	assert.Empty(t, f.pipeline.HermitDeath.Run(nil, ctx), "attack knockouts are settled in attackResult")
	assert.Equal(t, 0, f.coins.Used())

	ctx.ByAilment = true
	recovery := f.pipeline.HermitDeath.Run(nil, ctx)
	require.Len(t, recovery, 1)
	assert.Equal(t, model.Recovery{Amount: DeathloopHealth, Source: GoodTimesWithScarID}, recovery[0])
	assert.Equal(t, []string{GoodTimesWithScarID + ":revived:" + scar.Instance}, f.p1.Custom.Keys())

	// Armed again, the same instance is not revived twice.
	f.resolve(model.AttackSecondary)
	f.coins.Push(model.Heads)
	assert.Empty(t, f.pipeline.HermitDeath.Run(nil, ctx))
	assert.Equal(t, 1, f.coins.Used())
}

func TestDeathloopAilmentTailsStaysDown(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p1, 0, GoodTimesWithScarID)
	f.place(f.p1, 0, TotemID)
	f.place(f.p2, 0, KeralisCommonID)
	f.resolve(model.AttackSecondary)
	f.coins.Push(model.Tails)

	ctx := model.DeathContext{Match: f.match, Player: f.p1, Row: f.p1.Board[0], RowIndex: 0, ByAilment: true}
	recovery := f.pipeline.HermitDeath.Run(nil, ctx)
	require.Len(t, recovery, 1, "only the totem offers a recovery")
	assert.Equal(t, TotemID, recovery[0].Source)
	assert.Equal(t, 0, f.p1.Custom.Len(), "the arm is spent on tails")
}

func TestTotemOffersRecovery(t *testing.T) {
	f := newFixture(t, Builtin())
	f.place(f.p2, 0, KeralisCommonID)

	ctx := model.DeathContext{Match: f.match, Player: f.p2, Row: f.p2.Board[0], RowIndex: 0}
	assert.Empty(t, f.pipeline.HermitDeath.Run(nil, ctx))

	f.place(f.p2, 0, TotemID)
	recovery := f.pipeline.HermitDeath.Run(nil, ctx)
	require.Len(t, recovery, 1)
	assert.Equal(t, model.Recovery{Amount: TotemHealth, Source: TotemID, DiscardEffect: true}, recovery[0])
}

func TestDeclarationCollisionFailsAttach(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(BuiltinDefinitions()[1], BehaviorFunc(registerDeathloop)))

	for _, owner := range []string{GoodTimesWithScarID, PearlescentMoonID} {
		schema := customstate.NewSchema()
		_, err := schema.Declare(owner, "revived", customstate.ClearOnTurnStart)
		require.NoError(t, err)

		err = reg.Attach(hooks.NewPipeline(), Services{
			Flipper: coinflip.NewFlipper(coinflip.NewSequence(), nil),
			Schema:  schema,
		})
		assert.ErrorIs(t, err, customstate.ErrKeyCollision, "revived already held by %s", owner)
	}
}
