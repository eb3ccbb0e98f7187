package game

import (
	"fmt"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
)

// ActionType names a player action.
type ActionType string

const (
	ActionPlayCard           ActionType = "PLAY_CARD"
	ActionAttack             ActionType = "ATTACK"
	ActionChangeActiveHermit ActionType = "CHANGE_ACTIVE_HERMIT"
	ActionEndTurn            ActionType = "END_TURN"
)

// Action is one request from a player. Only the payload matching Type is read.
type Action struct {
	Type         ActionType           `json:"type"`
	PlayerID     string               `json:"playerId"`
	PlayCard     *PlayCardPayload     `json:"playCard,omitempty"`
	Attack       *AttackPayload       `json:"attack,omitempty"`
	ChangeActive *ChangeActivePayload `json:"changeActive,omitempty"`
}

// PlayCardPayload places a card from the hand onto the board.
type PlayCardPayload struct {
	CardInstance string         `json:"cardInstance"`
	RowIndex     int            `json:"rowIndex"`
	SlotIndex    int            `json:"slotIndex"`
	SlotType     model.SlotType `json:"slotType"`
}

// AttackPayload declares an attack with the active hermit.
type AttackPayload struct {
	AttackType model.AttackType `json:"attackType"`
}

// ChangeActivePayload switches the active row.
type ChangeActivePayload struct {
	RowIndex int `json:"rowIndex"`
}

// Validate checks that the payload for the action type is present.
func (a Action) Validate() error {
	if a.PlayerID == "" {
		return fmt.Errorf("%w: missing player id", ErrIllegalAction)
	}
	switch a.Type {
	case ActionPlayCard:
		if a.PlayCard == nil {
			return fmt.Errorf("%w: %s requires a playCard payload", ErrIllegalAction, a.Type)
		}
	case ActionAttack:
		if a.Attack == nil {
			return fmt.Errorf("%w: %s requires an attack payload", ErrIllegalAction, a.Type)
		}
		if _, err := model.ParseAttackType(string(a.Attack.AttackType)); err != nil {
			return fmt.Errorf("%w: %v", ErrIllegalAction, err)
		}
	case ActionChangeActiveHermit:
		if a.ChangeActive == nil {
			return fmt.Errorf("%w: %s requires a changeActive payload", ErrIllegalAction, a.Type)
		}
	case ActionEndTurn:
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrIllegalAction, a.Type)
	}
	return nil
}

func illegal(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, fmt.Sprintf(format, args...))
}

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
