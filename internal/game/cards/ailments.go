package cards

import (
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/hooks"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// curedBy maps curing effect cards to the ailment they block.
var curedBy = map[string]model.AilmentKind{
	WaterBucketID: model.AilmentBurn,
	MilkBucketID:  model.AilmentPoison,
}

// protectedFrom reports whether the row's effect card blocks kind.
func protectedFrom(row *model.Row, kind model.AilmentKind) bool {
	if row == nil || row.Effect == nil {
		return false
	}
	cure, ok := curedBy[row.Effect.CardID]
	return ok && cure == kind
}

// registerEthoslab: Blue Fire burns the opposing hermit on heads.
func registerEthoslab(p *hooks.Pipeline, svc Services) error {
	p.Attack.Register(EthoslabRareID, func(target model.AttackTarget, ds model.DerivedState) model.AttackTarget {
		if !target.IsActive || !ds.IsAttacker(EthoslabRareID) || ds.AttackType != model.AttackSecondary {
			return target
		}
		if !svc.Flipper.Flip(ds.Current, EthoslabRareID, 1).Heads() {
			return target
		}
		if protectedFrom(target.Row, model.AilmentBurn) {
			return target
		}
		return target.WithAilment(model.Ailment{Kind: model.AilmentBurn, Duration: model.DurationPermanent})
	})
	return nil
}

// registerGoodnessMe: Xisuma's secondary always poisons.
func registerGoodnessMe(p *hooks.Pipeline, svc Services) error {
	p.Attack.Register(XisumavoidRareID, func(target model.AttackTarget, ds model.DerivedState) model.AttackTarget {
		if !target.IsActive || !ds.IsAttacker(XisumavoidRareID) || ds.AttackType != model.AttackSecondary {
			return target
		}
		if protectedFrom(target.Row, model.AilmentPoison) {
			return target
		}
		return target.WithAilment(model.Ailment{Kind: model.AilmentPoison, Duration: model.DurationPermanent})
	})
	return nil
}

// curingBucket builds the behavior of an effect card that blocks and cures one
// ailment kind on its row.
func curingBucket(id string, kind model.AilmentKind) Behavior {
	return BehaviorFunc(func(p *hooks.Pipeline, svc Services) error {
		p.Attack.Register(id, func(target model.AttackTarget, _ model.DerivedState) model.AttackTarget {
			if target.Row == nil || target.Row.Effect == nil || target.Row.Effect.CardID != id {
				return target
			}
			if !target.HasPendingAilment(kind) {
				return target
			}
			return target.WithoutAilment(kind)
		})

		p.PlayCard.RegisterFor(id, string(model.CategoryEffect), func(ctx model.PlayContext) {
			if ctx.Card == nil || ctx.Card.CardID != id {
				return
			}
			row := ctx.Player.Row(ctx.RowIndex)
			if row != nil && row.RemoveAilment(kind) {
				svc.Logger.Debug("ailment cured",
					zap.String("player_id", ctx.Player.ID),
					zap.Int("row_index", ctx.RowIndex),
					zap.String("ailment", string(kind)),
					zap.String("card_id", id),
				)
			}
		})
		return nil
	})
}
