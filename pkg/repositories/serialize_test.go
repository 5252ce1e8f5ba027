package repositories

import (
	"testing"

	"github.com/cbodonnell/gametable/pkg/gamestate"
)

func TestEncodeDecodeState(t *testing.T) {
	state := gamestate.DefaultFullState()
	state.Public.Players = append(state.Public.Players, gamestate.Participant{
		ID:       "p1",
		Name:     "Alice",
		Location: "village",
	})
	state.Master.Notes = map[string]string{"twist": "the king is a mimic"}

	b, err := encodeState(state)
	if err != nil {
		t.Fatalf("encodeState() error = %v", err)
	}

	got, err := decodeState(b)
	if err != nil {
		t.Fatalf("decodeState() error = %v", err)
	}

	if len(got.Public.Players) != 1 || got.Public.Players[0].Name != "Alice" {
		t.Errorf("decodeState() public players = %v, want Alice", got.Public.Players)
	}
	if got.Master.Notes["twist"] != "the king is a mimic" {
		t.Errorf("decodeState() master notes = %v", got.Master.Notes)
	}
	if len(got.Public.Locations) != len(state.Public.Locations) {
		t.Errorf("decodeState() locations = %d, want %d", len(got.Public.Locations), len(state.Public.Locations))
	}
}
