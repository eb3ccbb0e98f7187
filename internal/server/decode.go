package server

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game"
	"github.com/mitchellh/mapstructure"
)

// decodeAction maps a loosely typed request body onto an action. Clients may
// send indexes as strings; unknown fields are rejected.
func decodeAction(input map[string]interface{}) (game.Action, error) {
	var action game.Action
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &action,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       stringToIntHookFunc(),
	})
	if err != nil {
		return action, err
	}
	if err := decoder.Decode(input); err != nil {
		return action, fmt.Errorf("%w: %v", game.ErrIllegalAction, err)
	}
	return action, nil
}

func stringToIntHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Kind, to reflect.Kind, data interface{}) (interface{}, error) {
		if from == reflect.String && to == reflect.Int {
			return strconv.Atoi(strings.TrimSpace(data.(string)))
		}
		return data, nil
	}
}

// createMatchRequest is the body of POST /matches.
type createMatchRequest struct {
	Players []game.PlayerSetup `json:"players" binding:"required"`
}

type abortRequest struct {
	Reason string `json:"reason"`
}
