package models

import (
	"time"

	"github.com/cbodonnell/gametable/pkg/gamestate"
)

// RoomSnapshot is a serialized copy of a room's full state plus the
// metadata needed to restore it. It is fully self-describing and safe to
// serialize as JSON.
type RoomSnapshot struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	MasterID    string              `json:"masterId"`
	MemberIDs   []string            `json:"memberIds"`
	State       gamestate.FullState `json:"state"`
	GameStarted bool                `json:"gameStarted"`
	CreatedAt   time.Time           `json:"createdAt"`
}
