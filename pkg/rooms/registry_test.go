package rooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewRegistryOptions{})
}

func TestRegistry_CreateRoom(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master-1", "Gandalf", "conn-1", Settings{
		MaxPlayers:         4,
		CharacterSelection: CharacterSelectionInRoom,
	})
	require.NoError(t, err)

	assert.Len(t, room.Code, CodeLength)
	for _, c := range room.Code {
		assert.Contains(t, CodeAlphabet, string(c))
	}

	members := room.Members()
	require.Len(t, members, 1)
	assert.Equal(t, RoleMaster, members[0].Role)
	assert.Equal(t, "master-1", members[0].UserID)
	assert.True(t, members[0].Connected)

	status := room.Status()
	assert.True(t, status.Active)
	assert.False(t, status.Paused)
	assert.False(t, status.GameStarted)
}

func TestRegistry_CreateRoomDisconnectedMaster(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master-1", "Gandalf", "", Settings{})
	require.NoError(t, err)

	member, ok := room.GetMember("master-1")
	require.True(t, ok)
	assert.False(t, member.Connected)
}

func TestRegistry_CodesUniqueWhileActive(t *testing.T) {
	reg := newTestRegistry()

	codes := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		room, err := reg.CreateRoom("master", "Master", "conn", Settings{})
		require.NoError(t, err)
		if codes[room.Code] {
			t.Fatalf("duplicate code generated while active: %s", room.Code)
		}
		codes[room.Code] = true
	}
}

func TestRegistry_CodeReusableAfterRemoval(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn", Settings{})
	require.NoError(t, err)
	code := room.Code

	require.True(t, reg.RemoveRoom(code))
	assert.False(t, reg.RoomExists(code))

	// a freed code must be assignable again: collision checks run
	// against currently active codes only
	_, err = reg.GetRoomByCode(code)
	assert.True(t, IsRoomNotFound(err))
}

func TestRegistry_LookupIsCaseInsensitive(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn", Settings{})
	require.NoError(t, err)

	found, err := reg.GetRoomByCode(" " + room.Code + " ")
	require.NoError(t, err)
	assert.Equal(t, room.ID, found.ID)

	lower, err := reg.GetRoomByCode(toLower(room.Code))
	require.NoError(t, err)
	assert.Equal(t, room.ID, lower.ID)
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestRegistry_JoinRoom(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)

	joined, member, err := reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)
	assert.Equal(t, RolePlayer, member.Role)

	members := room.Members()
	assert.Len(t, members, 2)

	masters := 0
	players := 0
	for _, m := range members {
		switch m.Role {
		case RoleMaster:
			masters++
		case RolePlayer:
			players++
		}
	}
	assert.Equal(t, 1, masters)
	assert.Equal(t, 1, players)
}

func TestRegistry_JoinUnknownCode(t *testing.T) {
	reg := newTestRegistry()

	_, _, err := reg.JoinRoom("AB23CD", "p1", "Alice", "conn", "")
	assert.True(t, IsRoomNotFound(err))
}

func TestRegistry_JoinFullRoom(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{MaxPlayers: 1})
	require.NoError(t, err)

	// the master already occupies the only slot
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	assert.True(t, IsRoomFull(err))

	// reconnecting with the master's identity still succeeds
	_, member, err := reg.JoinRoom(room.Code, "master", "Master", "conn-m2", "")
	require.NoError(t, err)
	assert.Equal(t, RoleMaster, member.Role)
	assert.Equal(t, "conn-m2", member.ConnectionID)
	assert.Len(t, room.Members(), 1)
}

func TestRegistry_RejoinRebindsConnection(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-old", "char-7")
	require.NoError(t, err)

	_, member, err := reg.JoinRoom(room.Code, "p1", "Alice", "conn-new", "")
	require.NoError(t, err)
	assert.Equal(t, "conn-new", member.ConnectionID)
	assert.Equal(t, "char-7", member.CharacterID, "character kept on reconnect")
	assert.Len(t, room.Members(), 2)
}

func TestRegistry_LeaveRoom(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)

	left, wasMaster, err := reg.LeaveRoom("p1")
	require.NoError(t, err)
	assert.False(t, wasMaster)
	assert.Equal(t, room.ID, left.ID)
	assert.Len(t, room.Members(), 1)
}

func TestRegistry_LeaveNotAMember(t *testing.T) {
	reg := newTestRegistry()

	_, _, err := reg.LeaveRoom("nobody")
	assert.True(t, IsMemberNotFound(err))
}

func TestRegistry_MasterLeavePausesRoom(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)

	_, wasMaster, err := reg.LeaveRoom("master")
	require.NoError(t, err)
	assert.True(t, wasMaster)

	status := room.Status()
	assert.True(t, status.Paused)
	assert.Equal(t, "", room.MasterConnectionID())
	assert.Len(t, room.Members(), 1)
}

func TestRegistry_LastLeaveRemovesRoom(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)

	_, _, err = reg.LeaveRoom("master")
	require.NoError(t, err)

	assert.False(t, reg.RoomExists(room.Code))
}

func TestRegistry_MasterDisconnectAndReconnect(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)

	// disconnect pauses the room but keeps the member entry
	_, err = reg.UpdateConnection("master", "", false)
	require.NoError(t, err)

	status := room.Status()
	assert.True(t, status.Paused)
	assert.True(t, status.Active)
	member, ok := room.GetMember("master")
	require.True(t, ok)
	assert.False(t, member.Connected)

	// reconnect resumes atomically without a duplicate member
	_, err = reg.UpdateConnection("master", "conn-m2", true)
	require.NoError(t, err)

	status = room.Status()
	assert.False(t, status.Paused)
	member, ok = room.GetMember("master")
	require.True(t, ok)
	assert.True(t, member.Connected)
	assert.Equal(t, "conn-m2", member.ConnectionID)
	assert.Len(t, room.Members(), 1)
}

func TestRegistry_PlayerDisconnectDoesNotPause(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)

	_, err = reg.UpdateConnection("p1", "", false)
	require.NoError(t, err)

	assert.False(t, room.Status().Paused)
}

func TestRegistry_SetPauseRequiresMaster(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)

	_, err = reg.SetPause(room.Code, "p1", true)
	assert.True(t, IsNotMaster(err))
	assert.False(t, room.Status().Paused)

	_, err = reg.SetPause(room.Code, "master", true)
	require.NoError(t, err)
	assert.True(t, room.Status().Paused)
}

func TestRegistry_StartGame(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)

	_, err = reg.StartGame(room.Code, "p1")
	assert.True(t, IsNotMaster(err))

	_, err = reg.SetPause(room.Code, "master", true)
	require.NoError(t, err)

	_, err = reg.StartGame(room.Code, "master")
	require.NoError(t, err)

	status := room.Status()
	assert.True(t, status.GameStarted)
	assert.False(t, status.Paused, "starting the game clears a pause")

	// gameStarted is monotonic: pausing again does not revert it
	_, err = reg.SetPause(room.Code, "master", true)
	require.NoError(t, err)
	assert.True(t, room.Status().GameStarted)
}

func TestRegistry_CleanupEmptyRooms(t *testing.T) {
	reg := NewRegistry(NewRegistryOptions{EmptyRoomTimeout: 10 * time.Millisecond})

	stale, err := reg.CreateRoom("master-1", "Master", "conn-1", Settings{})
	require.NoError(t, err)
	occupied, err := reg.CreateRoom("master-2", "Master", "conn-2", Settings{})
	require.NoError(t, err)

	// empty the stale room without going through LeaveRoom, which would
	// remove it eagerly
	_, _, _, err = stale.leave("master-1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	removed := reg.CleanupEmptyRooms()
	assert.Equal(t, 1, removed)
	assert.False(t, reg.RoomExists(stale.Code))
	assert.True(t, reg.RoomExists(occupied.Code), "rooms with members are never removed by the idle sweep")

	// idempotent: a second sweep over unchanged state is a no-op
	assert.Equal(t, 0, reg.CleanupEmptyRooms())
}

func TestRegistry_CleanupKeepsYoungEmptyRooms(t *testing.T) {
	reg := NewRegistry(NewRegistryOptions{EmptyRoomTimeout: time.Hour})

	room, err := reg.CreateRoom("master-1", "Master", "conn-1", Settings{})
	require.NoError(t, err)
	_, _, _, err = room.leave("master-1")
	require.NoError(t, err)

	assert.Equal(t, 0, reg.CleanupEmptyRooms())
	assert.True(t, reg.RoomExists(room.Code))
}

func TestRegistry_CloseRoomIdempotent(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)

	assert.True(t, reg.CloseRoom(room.Code))
	assert.False(t, reg.CloseRoom(room.Code))
	assert.False(t, room.Status().Active)
}

func TestRegistry_Reset(t *testing.T) {
	reg := newTestRegistry()

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)

	reg.Reset()
	assert.False(t, reg.RoomExists(room.Code))
	assert.Empty(t, reg.ListRooms())
}

func TestRegistry_OnRoomCreatedHook(t *testing.T) {
	var hooked *Room
	reg := NewRegistry(NewRegistryOptions{
		OnRoomCreated: func(room *Room) {
			hooked = room
		},
	})

	room, err := reg.CreateRoom("master", "Master", "conn-m", Settings{})
	require.NoError(t, err)
	assert.Equal(t, room, hooked)
}
