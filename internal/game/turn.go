package game

import (
	"time"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/customstate"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// Ailment damage per end-of-turn tick.
const (
	BurnDamage   = 20
	PoisonDamage = 20
	// PoisonFloor is the lowest health poison can bring a hermit to.
	PoisonFloor = 10
)

var timeSince = time.Since

// endTurn runs the turn boundary:
//
//	turnEnd(current) -> ailment tick -> draw -> switch player
//	-> sweep turn-start keys -> turnStart(next)
func (e *Engine) endTurn(ms *matchState) error {
	match := ms.match
	current := match.Current()
	opponent := match.Opponent()

	if match.Phase == model.PhaseAttackDeclared || match.Phase == model.PhaseTurnEnded {
		return illegal("cannot end the turn in phase %s", match.Phase)
	}
	if current.HasHermits() && current.ActiveRow == model.NoRow {
		return illegal("choose an active hermit before ending the turn")
	}

	e.beginResolution(ms)
	match.Phase = model.PhaseTurnEnded
	ms.pipeline.TurnEnd.Run(model.TurnContext{Match: match, Player: current, Opponent: opponent})

	// Ailments on the opponent's rows were applied by the player ending the turn.
	e.tickAilments(ms, opponent)
	if match.Over() {
		return nil
	}
	if !current.HasHermits() {
		e.finish(ms, opponent.ID, "ended turn with no hermits")
		return nil
	}

	drawn := current.Draw(*e.opts.DrawPerTurn)
	e.logger.Debug("turn ended",
		zap.String("match_id", match.ID),
		zap.String("player_id", current.ID),
		zap.Int("turn", match.Turn),
		zap.Int("drawn", drawn),
	)

	match.CurrentPlayerID = opponent.ID
	match.Turn++
	e.startTurn(ms)
	return nil
}

// startTurn resets per-turn flags and runs the turnStart channel for the
// current player.
func (e *Engine) startTurn(ms *matchState) {
	match := ms.match
	player := match.Current()
	match.Flags = model.TurnFlags{}
	match.Phase = model.PhaseAwaitingAction
	player.Custom.Sweep(customstate.ClearOnTurnStart)
	ms.pipeline.TurnStart.Run(model.TurnContext{Match: match, Player: player, Opponent: match.Opponent()})
}

// tickAilments applies one round of ailment damage to every row of a player.
// A knockout from a tick runs the hermitDeath channel.
func (e *Engine) tickAilments(ms *matchState, player *model.Player) {
	for i, row := range player.Board {
		if row.Empty() || len(row.Ailments) == 0 {
			continue
		}
		for _, ailment := range row.Ailments {
			switch ailment.Kind {
			case model.AilmentBurn:
				row.Health -= BurnDamage
			case model.AilmentPoison:
				if row.Health > PoisonFloor {
					row.Health -= PoisonDamage
					if row.Health < PoisonFloor {
						row.Health = PoisonFloor
					}
				}
			}
		}
		row.Ailments = decrementAilments(row.Ailments)

		e.logger.Debug("ailments ticked",
			zap.String("match_id", ms.match.ID),
			zap.String("player_id", player.ID),
			zap.Int("row_index", i),
			zap.Int("health", row.Health),
		)
		if row.Health <= 0 {
			e.knockout(ms, player, i, true)
			if e.checkGameOver(ms) {
				return
			}
		}
	}
}

// decrementAilments counts down timed ailments and drops the expired ones.
// Permanent ailments are kept as they are.
func decrementAilments(ailments []model.Ailment) []model.Ailment {
	kept := ailments[:0]
	for _, a := range ailments {
		if a.Duration == model.DurationPermanent {
			kept = append(kept, a)
			continue
		}
		a.Duration--
		if a.Duration > 0 {
			kept = append(kept, a)
		}
	}
	return kept
}
