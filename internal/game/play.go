package game

import (
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// slotFor maps a card category onto the board slot it must be played into.
var slotFor = map[model.Category]model.SlotType{
	model.CategoryHermit: model.SlotHermit,
	model.CategoryItem:   model.SlotItem,
	model.CategoryEffect: model.SlotEffect,
}

// canAct reports whether the current player may still place cards or attack.
func canAct(match *model.Match) bool {
	return match.Phase == model.PhaseAwaitingAction || match.Phase == model.PhaseCardPlayed
}

func (e *Engine) playCard(ms *matchState, payload *PlayCardPayload) error {
	match := ms.match
	player := match.Current()
	if !canAct(match) {
		return illegal("cannot play a card in phase %s", match.Phase)
	}

	idx := player.HandIndex(payload.CardInstance)
	if idx < 0 {
		return illegal("card instance %s is not in hand", payload.CardInstance)
	}
	card := player.Hand[idx]
	def, err := e.registry.MustDefinition(card.CardID)
	if err != nil {
		return violation("card in hand has no definition: %v", err)
	}
	if slotFor[def.Category] != payload.SlotType {
		return illegal("%s card %s cannot go into a %s slot", def.Category, def.ID, payload.SlotType)
	}
	row := player.Row(payload.RowIndex)
	if row == nil {
		return illegal("row %d is out of range", payload.RowIndex)
	}

	switch payload.SlotType {
	case model.SlotHermit:
		if !row.Empty() {
			return illegal("row %d already holds a hermit", payload.RowIndex)
		}
	case model.SlotItem:
		if row.Empty() {
			return illegal("row %d has no hermit to attach an item to", payload.RowIndex)
		}
		if match.Flags.ItemAttached {
			return illegal("an item was already attached this turn")
		}
		if payload.SlotIndex < 0 || payload.SlotIndex >= model.MaxItemsPerRow {
			return illegal("item slot %d is out of range", payload.SlotIndex)
		}
		if row.Items[payload.SlotIndex] != nil {
			return illegal("item slot %d of row %d is taken", payload.SlotIndex, payload.RowIndex)
		}
	case model.SlotEffect:
		if row.Empty() {
			return illegal("row %d has no hermit to attach an effect to", payload.RowIndex)
		}
		if row.Effect != nil {
			return illegal("row %d already has an effect", payload.RowIndex)
		}
	}

	e.beginResolution(ms)
	if _, err := player.TakeFromHand(card.Instance); err != nil {
		return violation("%v", err)
	}

	switch payload.SlotType {
	case model.SlotHermit:
		row.Hermit = card
		row.Health = def.Health
		row.Ailments = nil
		if player.ActiveRow == model.NoRow {
			player.ActiveRow = payload.RowIndex
		}
	case model.SlotItem:
		row.Items[payload.SlotIndex] = card
		match.Flags.ItemAttached = true
	case model.SlotEffect:
		row.Effect = card
	}
	match.Phase = model.PhaseCardPlayed

	ms.pipeline.PlayCard.RunCategory(string(def.Category), model.PlayContext{
		Match:     match,
		Player:    player,
		Opponent:  match.Opponent(),
		Card:      card,
		Def:       def,
		RowIndex:  payload.RowIndex,
		SlotIndex: payload.SlotIndex,
		SlotType:  payload.SlotType,
	})

	e.logger.Debug("card played",
		zap.String("match_id", match.ID),
		zap.String("player_id", player.ID),
		zap.String("card_id", def.ID),
		zap.Int("row_index", payload.RowIndex),
		zap.String("slot_type", string(payload.SlotType)),
	)
	return nil
}

func (e *Engine) changeActive(ms *matchState, payload *ChangeActivePayload) error {
	match := ms.match
	player := match.Current()
	if !canAct(match) {
		return illegal("cannot change the active hermit in phase %s", match.Phase)
	}
	row := player.Row(payload.RowIndex)
	if row == nil || row.Empty() {
		return illegal("row %d has no hermit", payload.RowIndex)
	}
	if payload.RowIndex == player.ActiveRow {
		return illegal("row %d is already active", payload.RowIndex)
	}
	// Replacing a knocked out active hermit is free.
	forced := player.ActiveRow == model.NoRow
	if !forced && match.Flags.ActiveChanged {
		return illegal("the active hermit was already changed this turn")
	}

	e.beginResolution(ms)
	player.ActiveRow = payload.RowIndex
	if !forced {
		match.Flags.ActiveChanged = true
	}

	e.logger.Debug("active hermit changed",
		zap.String("match_id", match.ID),
		zap.String("player_id", player.ID),
		zap.Int("row_index", payload.RowIndex),
		zap.Bool("forced", forced),
	)
	return nil
}
