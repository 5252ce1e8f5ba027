package messages

import (
	"bytes"
	"testing"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	msg, err := NewMessage(MessageTypeClientJoin, ClientJoin{
		Token:    "token",
		RoomCode: "ABC234",
	})
	if err != nil {
		t.Fatalf("failed to create message: %v", err)
	}

	b, err := SerializeMessage(msg)
	if err != nil {
		t.Fatalf("failed to serialize message: %v", err)
	}

	got, err := DeserializeMessage(b)
	if err != nil {
		t.Fatalf("failed to deserialize message: %v", err)
	}

	if got.Type != MessageTypeClientJoin {
		t.Errorf("expected type %s, got %s", MessageTypeClientJoin, got.Type)
	}
	if !bytes.Equal(got.Payload, msg.Payload) {
		t.Errorf("expected payload %s, got %s", msg.Payload, got.Payload)
	}
}

func TestDeserializeMessage_RejectsOversizedFrame(t *testing.T) {
	b := make([]byte, MessageBufferSize+1)
	if _, err := DeserializeMessage(b); err == nil {
		t.Error("expected an error for an oversized frame")
	}
}

func TestNewMessage_NilPayload(t *testing.T) {
	msg, err := NewMessage(MessageTypeRoomStarted, nil)
	if err != nil {
		t.Fatalf("failed to create message: %v", err)
	}
	if msg.Payload != nil {
		t.Errorf("expected nil payload, got %s", msg.Payload)
	}
}
