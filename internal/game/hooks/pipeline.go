package hooks

import (
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
)

// Channel names.
const (
	ChannelAttack       = "attack"
	ChannelAttackResult = "attackResult"
	ChannelHermitDeath  = "hermitDeath"
	ChannelTurnStart    = "turnStart"
	ChannelTurnEnd      = "turnEnd"
	ChannelPlayCard     = "playCard"
)

// Pipeline is the full set of hook channels of one match. Every card behavior
// registers into it once, in catalogue order.
type Pipeline struct {
	Attack       *Waterfall[model.AttackTarget, model.DerivedState]
	AttackResult *Waterfall[model.AttackTarget, model.DerivedState]
	HermitDeath  *Waterfall[[]model.Recovery, model.DeathContext]
	TurnStart    *Series[model.TurnContext]
	TurnEnd      *Series[model.TurnContext]
	PlayCard     *Series[model.PlayContext]
}

// NewPipeline creates a pipeline with empty channels.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Attack:       NewWaterfall[model.AttackTarget, model.DerivedState](ChannelAttack),
		AttackResult: NewWaterfall[model.AttackTarget, model.DerivedState](ChannelAttackResult),
		HermitDeath:  NewWaterfall[[]model.Recovery, model.DeathContext](ChannelHermitDeath),
		TurnStart:    NewSeries[model.TurnContext](ChannelTurnStart),
		TurnEnd:      NewSeries[model.TurnContext](ChannelTurnEnd),
		PlayCard:     NewSeries[model.PlayContext](ChannelPlayCard),
	}
}

// UnregisterOwner removes owner's handlers from every channel.
func (p *Pipeline) UnregisterOwner(owner string) int {
	return p.Attack.UnregisterOwner(owner) +
		p.AttackResult.UnregisterOwner(owner) +
		p.HermitDeath.UnregisterOwner(owner) +
		p.TurnStart.UnregisterOwner(owner) +
		p.TurnEnd.UnregisterOwner(owner) +
		p.PlayCard.UnregisterOwner(owner)
}

// Order returns each channel's owners in execution order, keyed by channel name.
func (p *Pipeline) Order() map[string][]string {
	return map[string][]string{
		ChannelAttack:       p.Attack.Owners(),
		ChannelAttackResult: p.AttackResult.Owners(),
		ChannelHermitDeath:  p.HermitDeath.Owners(),
		ChannelTurnStart:    p.TurnStart.Owners(),
		ChannelTurnEnd:      p.TurnEnd.Owners(),
		ChannelPlayCard:     p.PlayCard.Owners(),
	}
}
