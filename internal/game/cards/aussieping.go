package cards

import (
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/coinflip"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/hooks"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// registerAussiePing: Pearl's secondary makes the opponent flip on their next
// attack, missing on heads. After a miss Pearl cannot arm again until the
// opponent's following turn starts, so the opponent never misses twice in a row.
//
// Both entries live in Pearl's player store and are cleared by Pearl's own
// turn hooks.
func registerAussiePing(p *hooks.Pipeline, svc Services) error {
	ping, err := svc.Schema.Declare(PearlescentMoonID, "aussie_ping", customstate.ClearOnConsume)
	if err != nil {
		return err
	}
	guard, err := svc.Schema.Declare(PearlescentMoonID, "aussie_ping_guard", customstate.ClearOnConsume)
	if err != nil {
		return err
	}

	// The opponent's attack flips against an armed ping. Only the accumulator
	// changes here.
	p.Attack.Register(PearlescentMoonID, func(target model.AttackTarget, ds model.DerivedState) model.AttackTarget {
		if !target.IsActive || !target.Player.Custom.Has(ping) {
			return target
		}
		if !svc.Flipper.Flip(ds.Current, PearlescentMoonID, 1).Heads() {
			return target
		}
		target.Multiplier = 0
		return target
	})

	p.AttackResult.Register(PearlescentMoonID, func(target model.AttackTarget, ds model.DerivedState) model.AttackTarget {
		// Consume a ping the attack was flipped against.
		if _, ok := target.Player.Custom.Take(ping); ok {
			if flip, ok := coinflip.Last(ds.Current, PearlescentMoonID); ok && flip.Heads() {
				if err := target.Player.Custom.Set(guard, ds.Match.Turn); err != nil {
					svc.Logger.Error("failed to set aussie ping guard", zap.Error(err))
				}
			}
		}

		if !target.IsActive || !ds.IsAttacker(PearlescentMoonID) || ds.AttackType != model.AttackSecondary {
			return target
		}
		if ds.Current.Custom.Has(guard) {
			return target
		}
		if err := ds.Current.Custom.Set(ping, true); err != nil {
			svc.Logger.Error("failed to arm aussie ping", zap.Error(err))
		}
		return target
	})

	// A ping the opponent never attacked into expires with their turn.
	p.TurnEnd.Register(PearlescentMoonID, func(ctx model.TurnContext) {
		ctx.Opponent.Custom.Delete(ping)
	})

	// The guard only has to outlive Pearl's next turn.
	p.TurnStart.Register(PearlescentMoonID, func(ctx model.TurnContext) {
		ctx.Opponent.Custom.Delete(guard)
	})
	return nil
}
