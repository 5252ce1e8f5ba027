package messages

import (
	"encoding/json"
	"fmt"
)

const (
	// MessageBufferSize represents the maximum size of an inbound frame
	MessageBufferSize = 32768
)

// Client message types
const (
	MessageTypeClientJoin   = "client:join"
	MessageTypeClientAction = "client:action"
	MessageTypeClientPause  = "client:pause"
	MessageTypeClientStart  = "client:start"
	MessageTypeClientLeave  = "client:leave"
)

// Server message types
const (
	MessageTypeServerJoinSuccess  = "server:join-success"
	MessageTypeServerJoinFailure  = "server:join-failure"
	MessageTypeServerError        = "server:error"
	MessageTypeStateChanged       = "state:changed"
	MessageTypeRoomLogs           = "room:logs"
	MessageTypeRoomClosed         = "room:closed"
	MessageTypeRoomStarted        = "room:started"
	MessageTypeRoomPaused         = "room:paused"
	MessageTypeRoomResumed        = "room:resumed"
	MessageTypeRoomPlayerJoined   = "room:player-joined"
	MessageTypeRoomPlayerLeft     = "room:player-left"
	MessageTypeRoomMasterRejoined = "room:master-rejoined"
)

// Message represents a generic message for serialization/deserialization
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals a payload into a Message envelope.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	if payload == nil {
		return &Message{Type: msgType}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: b}, nil
}

// SerializeMessage serializes a Message
func SerializeMessage(msg *Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %v", err)
	}
	return b, nil
}

// DeserializeMessage deserializes a Message
func DeserializeMessage(b []byte) (*Message, error) {
	if len(b) > MessageBufferSize {
		return nil, fmt.Errorf("message exceeds maximum size of %d bytes", MessageBufferSize)
	}
	msg := &Message{}
	if err := json.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %v", err)
	}
	return msg, nil
}

// ClientJoin is sent by a client to enter a room by code.
type ClientJoin struct {
	Token       string `json:"token"`
	RoomCode    string `json:"roomCode"`
	CharacterID string `json:"characterId,omitempty"`
}

// ClientAction is a gameplay action forwarded to the room's dispatcher.
type ClientAction struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ClientPause toggles a room's pause. Master only.
type ClientPause struct {
	Paused bool `json:"paused"`
}

// ServerJoinSuccess confirms a join and carries the member's view.
type ServerJoinSuccess struct {
	RoomCode string      `json:"roomCode"`
	UserID   string      `json:"userId"`
	Role     string      `json:"role"`
	State    interface{} `json:"state"`
}

// ServerJoinFailure reports why a join was rejected.
type ServerJoinFailure struct {
	Reason string `json:"reason"`
}

// ServerError reports a rejected operation back to its caller.
type ServerError struct {
	Reason string `json:"reason"`
}

// RoomClosed notifies members that their room was closed.
type RoomClosed struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// RoomPresence notifies members about a join/leave/pause transition.
type RoomPresence struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
}

// RoomLogs carries a batch of game log entries.
type RoomLogs struct {
	LogType string      `json:"type"`
	Logs    interface{} `json:"logs"`
}
