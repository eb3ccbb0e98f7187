package cards

import (
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/hooks"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// DeathloopHealth is the health a hermit revived by Deathloop keeps.
const DeathloopHealth = 50

// TotemHealth is the health a hermit saved by a totem keeps.
const TotemHealth = 10

// registerDeathloop: Scar's secondary arms a revival for the opponent's next
// turn, answering both a lethal attack and an ailment knockout. Each instance
// can be revived at most once per placement.
func registerDeathloop(p *hooks.Pipeline, svc Services) error {
	armed, err := svc.Schema.Declare(GoodTimesWithScarID, "deathloop_armed", customstate.ClearOnTurnStart)
	if err != nil {
		return err
	}
	revived, err := svc.Schema.Declare(GoodTimesWithScarID, "revived", customstate.ClearOnReplace)
	if err != nil {
		return err
	}

	// revive takes the arm and flips. It reports whether the instance comes back.
	revive := func(player *model.Player, instance string) bool {
		if _, ok := player.Custom.Take(armed.For(instance)); !ok {
			return false
		}
		if player.Custom.Has(revived.For(instance)) {
			return false
		}
		if !svc.Flipper.Flip(player, GoodTimesWithScarID, 1).Heads() {
			return false
		}
		if err := player.Custom.Set(revived.For(instance), true); err != nil {
			svc.Logger.Error("failed to record deathloop revival", zap.Error(err))
			return false
		}
		return true
	}

	p.AttackResult.Register(GoodTimesWithScarID, func(target model.AttackTarget, ds model.DerivedState) model.AttackTarget {
		if target.IsActive && ds.IsAttacker(GoodTimesWithScarID) && ds.AttackType == model.AttackSecondary {
			if err := ds.Current.Custom.Set(armed.For(ds.Attacker.Instance), ds.Match.Turn); err != nil {
				svc.Logger.Error("failed to arm deathloop", zap.Error(err))
			}
		}

		if !target.Died || target.Revived || target.Row == nil || target.Row.Hermit == nil {
			return target
		}
		if target.Row.Hermit.CardID != GoodTimesWithScarID {
			return target
		}
		if !revive(target.Player, target.Row.Hermit.Instance) {
			return target
		}
		target.Revived = true
		target.RecoverHealth = DeathloopHealth
		target.RevivedBy = GoodTimesWithScarID
		return target
	})

	// Lethal attacks are settled in attackResult; this covers ailment ticks.
	p.HermitDeath.Register(GoodTimesWithScarID, func(recovery []model.Recovery, ctx model.DeathContext) []model.Recovery {
		if !ctx.ByAilment || ctx.Row == nil || ctx.Row.Hermit == nil {
			return recovery
		}
		if ctx.Row.Hermit.CardID != GoodTimesWithScarID {
			return recovery
		}
		if !revive(ctx.Player, ctx.Row.Hermit.Instance) {
			return recovery
		}
		out := make([]model.Recovery, 0, len(recovery)+1)
		out = append(out, recovery...)
		return append(out, model.Recovery{Amount: DeathloopHealth, Source: GoodTimesWithScarID})
	})
	return nil
}

// registerTotem offers a knockout recovery when a totem is attached.
func registerTotem(p *hooks.Pipeline, _ Services) error {
	p.HermitDeath.Register(TotemID, func(recovery []model.Recovery, ctx model.DeathContext) []model.Recovery {
		if ctx.Row == nil || ctx.Row.Effect == nil || ctx.Row.Effect.CardID != TotemID {
			return recovery
		}
		out := make([]model.Recovery, 0, len(recovery)+1)
		out = append(out, recovery...)
		return append(out, model.Recovery{Amount: TotemHealth, Source: TotemID, DiscardEffect: true})
	})
	return nil
}
