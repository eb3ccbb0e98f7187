package game

import (
	"time"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
)

// Snapshot is a detached copy of a match, safe to hand to the transport layer.
type Snapshot struct {
	MatchID         string          `json:"matchId"`
	Turn            int             `json:"turn"`
	CurrentPlayerID string          `json:"currentPlayerId"`
	Phase           model.Phase     `json:"phase"`
	Flags           model.TurnFlags `json:"flags"`
	Winner          string          `json:"winner,omitempty"`
	Aborted         bool            `json:"aborted,omitempty"`
	AbortReason     string          `json:"abortReason,omitempty"`
	Players         []PlayerView    `json:"players"`
	Timestamp       time.Time       `json:"timestamp"`
}

// PlayerView is one player's side of a snapshot.
type PlayerView struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Hand        []model.CardInstance      `json:"hand"`
	PileCount   int                       `json:"pileCount"`
	Board       []RowView                 `json:"board"`
	ActiveRow   int                       `json:"activeRow"`
	Discarded   []model.CardInstance      `json:"discarded"`
	CoinFlips   map[string]model.CoinFlip `json:"coinFlips"`
	CustomState map[string]interface{}    `json:"customState"`
}

// RowView is one board row of a snapshot.
type RowView struct {
	Hermit   *model.CardInstance `json:"hermitCard"`
	Items    []ItemView          `json:"itemCards"`
	Effect   *model.CardInstance `json:"effectCard"`
	Health   int                 `json:"health"`
	Ailments []model.Ailment     `json:"ailments"`
}

// ItemView is an attached item and the slot it occupies. Empty slots are
// omitted, which keeps the view gob-encodable.
type ItemView struct {
	Slot int `json:"slot"`
	model.CardInstance
}

// Player returns the view of a player, or nil.
func (s *Snapshot) Player(id string) *PlayerView {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func newSnapshot(match *model.Match) *Snapshot {
	snapshot := &Snapshot{
		MatchID:         match.ID,
		Turn:            match.Turn,
		CurrentPlayerID: match.CurrentPlayerID,
		Phase:           match.Phase,
		Flags:           match.Flags,
		Winner:          match.Winner,
		Aborted:         match.Aborted,
		AbortReason:     match.AbortReason,
		Players:         make([]PlayerView, 0, len(match.Players)),
		Timestamp:       time.Now(),
	}
	for _, player := range match.Players {
		snapshot.Players = append(snapshot.Players, newPlayerView(player))
	}
	return snapshot
}

func newPlayerView(player *model.Player) PlayerView {
	view := PlayerView{
		ID:          player.ID,
		Name:        player.Name,
		Hand:        copyCards(player.Hand),
		PileCount:   len(player.Pile),
		Board:       make([]RowView, 0, len(player.Board)),
		ActiveRow:   player.ActiveRow,
		Discarded:   copyCards(player.Discarded),
		CoinFlips:   make(map[string]model.CoinFlip, len(player.CoinFlips)),
		CustomState: player.Custom.Entries(),
	}
	for cardID, flip := range player.CoinFlips {
		view.CoinFlips[cardID] = append(model.CoinFlip(nil), flip...)
	}
	for _, row := range player.Board {
		rv := RowView{
			Hermit:   copyCard(row.Hermit),
			Items:    make([]ItemView, 0, len(row.Items)),
			Effect:   copyCard(row.Effect),
			Health:   row.Health,
			Ailments: append([]model.Ailment(nil), row.Ailments...),
		}
		for slot, item := range row.Items {
			if item != nil {
				rv.Items = append(rv.Items, ItemView{Slot: slot, CardInstance: *item})
			}
		}
		view.Board = append(view.Board, rv)
	}
	return view
}

func copyCard(card *model.CardInstance) *model.CardInstance {
	if card == nil {
		return nil
	}
	copied := *card
	return &copied
}

func copyCards(cards []*model.CardInstance) []model.CardInstance {
	out := make([]model.CardInstance, 0, len(cards))
	for _, card := range cards {
		out = append(out, *card)
	}
	return out
}
