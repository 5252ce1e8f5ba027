package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cbodonnell/gametable/pkg/events"
	"github.com/cbodonnell/gametable/pkg/queue"
	"github.com/cbodonnell/gametable/pkg/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessorTestRoom(t *testing.T) (*rooms.Registry, *rooms.Room) {
	t.Helper()
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{
		OnRoomCreated: RegisterHandlers,
	})
	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)
	room.Dispatcher.Emit(events.EventPlayerJoin, PlayerJoinPayload{UserID: "p1", Name: "Alice"})
	return reg, room
}

func TestProcessUserAction_StampsActingUser(t *testing.T) {
	_, room := newProcessorTestRoom(t)

	// the payload claims to act as the master, but the authenticated
	// user is p1
	data := json.RawMessage(`{"playerId":"master","to":"castle"}`)
	err := ProcessUserAction(room, "p1", events.EventPlayerMove, data)
	require.NoError(t, err)

	public := room.State.GetPublicState()
	require.Len(t, public.Players, 1)
	assert.Equal(t, "p1", public.Players[0].ID)
	assert.Equal(t, "castle", public.Players[0].Location)
}

func TestProcessUserAction_RejectsNonMember(t *testing.T) {
	_, room := newProcessorTestRoom(t)

	err := ProcessUserAction(room, "ghost", events.EventPlayerMove, json.RawMessage(`{"to":"castle"}`))
	assert.Error(t, err)
}

func TestProcessUserAction_RejectsPausedRoom(t *testing.T) {
	reg, room := newProcessorTestRoom(t)

	_, err := reg.SetPause(room.Code, "master", true)
	require.NoError(t, err)

	err = ProcessUserAction(room, "p1", events.EventPlayerMove, json.RawMessage(`{"to":"castle"}`))
	assert.Error(t, err)

	public := room.State.GetPublicState()
	require.Len(t, public.Players, 1)
	assert.NotEqual(t, "castle", public.Players[0].Location)
}

func TestProcessUserAction_RejectsClosedRoom(t *testing.T) {
	reg, room := newProcessorTestRoom(t)
	reg.CloseRoom(room.Code)

	err := ProcessUserAction(room, "p1", events.EventPlayerMove, json.RawMessage(`{"to":"castle"}`))
	assert.Error(t, err)
}

func TestActionProcessor_DrainsQueue(t *testing.T) {
	_, room := newProcessorTestRoom(t)

	actionQueue := queue.NewInMemoryQueue(10)
	require.NoError(t, actionQueue.Enqueue(&QueuedAction{
		Room:   room,
		UserID: "p1",
		Action: events.EventPlayerMove,
		Data:   json.RawMessage(`{"to":"castle"}`),
	}))
	require.NoError(t, actionQueue.Enqueue(&QueuedAction{
		Room:   room,
		UserID: "p1",
		Action: events.EventPlayerMove,
		Data:   json.RawMessage(`{"to":"village"}`),
	}))

	processor := NewActionProcessor(NewActionProcessorOptions{
		ActionQueue:  actionQueue,
		LoopInterval: time.Second,
	})
	processor.processQueuedActions()

	assert.Equal(t, 0, actionQueue.Size())
	public := room.State.GetPublicState()
	require.Len(t, public.Players, 1)
	assert.Equal(t, "village", public.Players[0].Location)
}

func TestActionProcessor_SkipsMalformedItems(t *testing.T) {
	_, room := newProcessorTestRoom(t)

	actionQueue := queue.NewInMemoryQueue(10)
	require.NoError(t, actionQueue.Enqueue("not an action"))
	require.NoError(t, actionQueue.Enqueue(&QueuedAction{
		Room:   room,
		UserID: "p1",
		Action: events.EventPlayerMove,
		Data:   json.RawMessage(`{"to":"castle"}`),
	}))

	processor := NewActionProcessor(NewActionProcessorOptions{
		ActionQueue:  actionQueue,
		LoopInterval: time.Second,
	})
	processor.processQueuedActions()

	public := room.State.GetPublicState()
	require.Len(t, public.Players, 1)
	assert.Equal(t, "castle", public.Players[0].Location)
}
