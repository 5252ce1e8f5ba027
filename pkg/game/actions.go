package game

import (
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/gametable/pkg/events"
	"github.com/cbodonnell/gametable/pkg/rooms"
)

// ProcessAction validates an inbound gameplay action and emits it as a
// typed event on the room's dispatcher. Registered handlers react
// synchronously; state broadcasts follow from the store's change
// callbacks.
func ProcessAction(room *rooms.Room, action string, data json.RawMessage) error {
	payload, err := decodeActionPayload(action, data)
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %v", action, err)
	}
	room.Dispatcher.Emit(action, payload)
	return nil
}

// decodeActionPayload maps known action names to their typed payloads.
// Unrecognized actions pass through as raw JSON so custom handlers can
// still subscribe to them.
func decodeActionPayload(action string, data json.RawMessage) (interface{}, error) {
	switch action {
	case events.EventPlayerJoin:
		var p PlayerJoinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case events.EventPlayerLeave:
		var p PlayerLeavePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case events.EventPlayerMove:
		var p PlayerMovePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case events.EventPlayerUpdate:
		var p PlayerUpdatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case events.EventItemAdded:
		var p ItemAddedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case events.EventLocationEnter:
		var p LocationEnterPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return data, nil
	}
}
