package game

import (
	"math"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// canPay reports whether the items attached to a row cover an attack cost.
// Typed costs are paid first; each "any" is then paid by a leftover item.
func (e *Engine) canPay(cost []model.Element, row *model.Row) bool {
	pool := make(map[model.Element]int)
	total := 0
	for _, item := range row.ItemList() {
		def, ok := e.registry.Definition(item.CardID)
		if !ok {
			continue
		}
		pool[def.ItemType]++
		total++
	}
	anyCost := 0
	for _, element := range cost {
		if element == model.ElementAny {
			anyCost++
			continue
		}
		if pool[element] == 0 {
			return false
		}
		pool[element]--
		total--
	}
	return total >= anyCost
}

func (e *Engine) attack(ms *matchState, payload *AttackPayload) error {
	match := ms.match
	current := match.Current()
	opponent := match.Opponent()

	if !canAct(match) {
		return illegal("cannot attack in phase %s", match.Phase)
	}
	if match.Flags.Attacked {
		return illegal("already attacked this turn")
	}
	if match.Turn == 1 {
		return illegal("no attacks on the first turn of the match")
	}
	attackType, err := model.ParseAttackType(string(payload.AttackType))
	if err != nil {
		return illegal("%v", err)
	}
	row := current.Active()
	if row.Empty() {
		return illegal("no active hermit")
	}
	def, err := e.registry.MustDefinition(row.Hermit.CardID)
	if err != nil {
		return violation("active hermit has no definition: %v", err)
	}
	attackDef := def.Attack(attackType)
	if attackDef == nil {
		return illegal("%s has no %s attack", def.ID, attackType)
	}
	if !e.canPay(attackDef.Cost, row) {
		return illegal("items on row %d do not pay for %s", current.ActiveRow, attackDef.Name)
	}
	targetRow := opponent.Active()
	if targetRow.Empty() {
		return illegal("opponent has no active hermit to attack")
	}

	e.beginResolution(ms)
	match.Phase = model.PhaseAttackDeclared
	match.Flags.Attacked = true

	ds := model.DerivedState{
		Match:                  match,
		Current:                current,
		Opponent:               opponent,
		Attacker:               row.Hermit,
		AttackerDef:            def,
		AttackType:             attackType,
		AttackerRow:            row,
		AttackerRowIndex:       current.ActiveRow,
		OpponentActiveRow:      targetRow,
		OpponentActiveRowIndex: opponent.ActiveRow,
		OpponentActiveHermit:   targetRow.Hermit,
		OpponentEffect:         targetRow.Effect,
	}
	if err := e.resolveAttack(ms, ds, attackDef); err != nil {
		return err
	}
	if !match.Over() {
		match.Phase = model.PhaseAttackResolved
	}
	return nil
}

// resolveAttack runs the two-pass attack protocol: the attack channel shapes
// the accumulator without touching the board, the engine commits damage and
// ailments, then attackResult sees the outcome and may revive.
func (e *Engine) resolveAttack(ms *matchState, ds model.DerivedState, attackDef *model.AttackDefinition) error {
	match := ms.match
	initial := model.NewAttackTarget(ds.Opponent, ds.OpponentActiveRowIndex, attackDef.Damage)
	target := ms.pipeline.Attack.Run(initial, ds)

	if target.Player != ds.Opponent || target.Row != ds.OpponentActiveRow || target.RowIndex != ds.OpponentActiveRowIndex {
		return violation("attack handlers retargeted the attack")
	}
	if target.BaseDamage < 0 {
		return violation("negative base damage %d after attack pass", target.BaseDamage)
	}
	if target.Multiplier < 0 || math.IsNaN(target.Multiplier) || math.IsInf(target.Multiplier, 0) {
		return violation("invalid damage multiplier %v after attack pass", target.Multiplier)
	}

	row := target.Row
	if row.Empty() {
		return violation("attack target row %d emptied during the attack pass", target.RowIndex)
	}
	damage := target.FinalDamage()
	row.Health -= damage
	target.Damage = damage
	for _, ailment := range target.Ailments {
		row.AddAilment(ailment)
	}
	target.Died = row.Health <= 0

	e.logger.Debug("attack committed",
		zap.String("match_id", match.ID),
		zap.String("player_id", ds.Current.ID),
		zap.String("card_id", ds.Attacker.CardID),
		zap.String("attack_type", string(ds.AttackType)),
		zap.Int("row_index", target.RowIndex),
		zap.Int("damage", damage),
		zap.Int("health", row.Health),
		zap.Int("ailments", len(target.Ailments)),
	)

	target = ms.pipeline.AttackResult.Run(target, ds)
	if !target.Died {
		return nil
	}
	if target.Revived {
		if target.RecoverHealth <= 0 {
			return violation("revival by %s left %d health", target.RevivedBy, target.RecoverHealth)
		}
		row.Health = target.RecoverHealth
		row.Ailments = nil
		e.logger.Info("hermit revived",
			zap.String("match_id", match.ID),
			zap.String("player_id", ds.Opponent.ID),
			zap.String("card_id", row.Hermit.CardID),
			zap.String("revived_by", target.RevivedBy),
			zap.Int("health", row.Health),
		)
		return nil
	}
	e.knockout(ms, ds.Opponent, target.RowIndex, false)
	e.checkGameOver(ms)
	return nil
}

// knockout runs the hermitDeath channel for a row at or below zero health.
// The best recovery offer, if any, keeps the hermit on the board; otherwise the
// row is discarded. Replace-scoped state stays with the discarded instance until
// it is placed again. It reports whether the hermit survived.
func (e *Engine) knockout(ms *matchState, player *model.Player, rowIndex int, byAilment bool) bool {
	match := ms.match
	row := player.Row(rowIndex)
	offers := ms.pipeline.HermitDeath.Run(nil, model.DeathContext{
		Match:     match,
		Player:    player,
		Row:       row,
		RowIndex:  rowIndex,
		ByAilment: byAilment,
	})

	best := -1
	for i, offer := range offers {
		if offer.Amount <= 0 {
			continue
		}
		if best < 0 || offer.Amount > offers[best].Amount {
			best = i
		}
	}
	if best >= 0 {
		offer := offers[best]
		row.Health = offer.Amount
		row.Ailments = nil
		if offer.DiscardEffect && row.Effect != nil {
			player.Discarded = append(player.Discarded, row.Effect)
			row.Effect = nil
		}
		e.logger.Info("hermit recovered from knockout",
			zap.String("match_id", match.ID),
			zap.String("player_id", player.ID),
			zap.String("card_id", row.Hermit.CardID),
			zap.String("source", offer.Source),
			zap.Int("health", row.Health),
		)
		return true
	}

	hermit := row.Hermit
	player.Discarded = append(player.Discarded, row.Clear()...)
	if player.ActiveRow == rowIndex {
		player.ActiveRow = model.NoRow
	}
	e.logger.Info("hermit knocked out",
		zap.String("match_id", match.ID),
		zap.String("player_id", player.ID),
		zap.String("card_id", hermit.CardID),
		zap.Int("row_index", rowIndex),
		zap.Bool("by_ailment", byAilment),
	)
	return false
}

// checkGameOver ends the match when a player has no hermits left after a
// knockout.
func (e *Engine) checkGameOver(ms *matchState) bool {
	match := ms.match
	for _, player := range match.Players {
		if player.HasHermits() {
			continue
		}
		e.finish(ms, match.OpponentOf(player.ID).ID, "no hermits left")
		return true
	}
	return false
}

func (e *Engine) finish(ms *matchState, winner, reason string) {
	match := ms.match
	match.Phase = model.PhaseGameOver
	match.Winner = winner
	e.logger.Info("match over",
		zap.String("match_id", match.ID),
		zap.String("winner", winner),
		zap.String("reason", reason),
		zap.Int("turn", match.Turn),
		zap.Duration("duration", timeSince(ms.startedAt)),
	)
}
