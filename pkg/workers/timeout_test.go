package workers

import (
	"context"
	"testing"
	"time"

	"github.com/cbodonnell/gametable/pkg/messages"
	"github.com/cbodonnell/gametable/pkg/repositories/models"
	"github.com/cbodonnell/gametable/pkg/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	broadcasts []fakeBroadcast
}

type fakeBroadcast struct {
	roomCode string
	msgType  string
	payload  interface{}
}

func (n *fakeNotifier) BroadcastToRoom(room *rooms.Room, msgType string, payload interface{}) {
	n.broadcasts = append(n.broadcasts, fakeBroadcast{
		roomCode: room.Code,
		msgType:  msgType,
		payload:  payload,
	})
}

type fakeRepository struct {
	saved []*models.RoomSnapshot
	err   error
}

func (r *fakeRepository) Close(ctx context.Context) error { return nil }

func (r *fakeRepository) SaveSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, snapshot)
	return "snapshot-1", nil
}

func (r *fakeRepository) LoadSnapshot(ctx context.Context, id string) (*models.RoomSnapshot, error) {
	return nil, nil
}

func (r *fakeRepository) ListSnapshots(ctx context.Context, userID string) ([]*models.RoomSnapshot, error) {
	return nil, nil
}

func (r *fakeRepository) DeleteSnapshot(ctx context.Context, id string) error { return nil }

func newTimeoutWorker(reg *rooms.Registry, notifier Notifier, saveChan chan SaveSnapshotRequest) *MasterTimeoutWorker {
	return NewMasterTimeoutWorker(NewMasterTimeoutWorkerOptions{
		Registry:         reg,
		Notifier:         notifier,
		SaveSnapshotChan: saveChan,
		Interval:         time.Minute,
	})
}

func TestMasterTimeoutWorker_ClosesTimedOutRoom(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	notifier := &fakeNotifier{}
	saveChan := make(chan SaveSnapshotRequest, 8)
	worker := newTimeoutWorker(reg, notifier, saveChan)

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)

	_, err = reg.UpdateConnection("master", "", false)
	require.NoError(t, err)
	require.True(t, room.Status().Paused)
	require.True(t, room.Status().Active)

	// not yet past the timeout: nothing happens
	worker.Sweep(time.Now())
	assert.True(t, room.Status().Active)
	assert.Empty(t, notifier.broadcasts)

	// 5+ minutes with no reconnect
	worker.Sweep(time.Now().Add(reg.MasterTimeout() + time.Second))

	status := room.Status()
	assert.False(t, status.Active)
	assert.True(t, status.Paused)

	require.Len(t, notifier.broadcasts, 1)
	assert.Equal(t, messages.MessageTypeRoomClosed, notifier.broadcasts[0].msgType)
	closed, ok := notifier.broadcasts[0].payload.(messages.RoomClosed)
	require.True(t, ok)
	assert.Equal(t, "master-timeout", closed.Reason)

	// idempotent: a second sweep does not notify again
	worker.Sweep(time.Now().Add(reg.MasterTimeout() + time.Minute))
	assert.Len(t, notifier.broadcasts, 1)
}

func TestMasterTimeoutWorker_SnapshotsStartedGameOnClose(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	saveChan := make(chan SaveSnapshotRequest, 8)
	worker := newTimeoutWorker(reg, &fakeNotifier{}, saveChan)

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.StartGame(room.Code, "master")
	require.NoError(t, err)
	_, err = reg.UpdateConnection("master", "", false)
	require.NoError(t, err)

	worker.Sweep(time.Now().Add(reg.MasterTimeout() + time.Second))

	require.Len(t, saveChan, 1)
	req := <-saveChan
	assert.Equal(t, room.Code, req.Room.Code)
	assert.Equal(t, "master-timeout", req.Reason)
}

func TestMasterTimeoutWorker_NoSnapshotBeforeGameStart(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	saveChan := make(chan SaveSnapshotRequest, 8)
	worker := newTimeoutWorker(reg, &fakeNotifier{}, saveChan)

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.UpdateConnection("master", "", false)
	require.NoError(t, err)

	worker.Sweep(time.Now().Add(reg.MasterTimeout() + time.Second))

	assert.Len(t, saveChan, 0)
	assert.False(t, room.Status().Active, "the room still closes without a snapshot")
}

func TestMasterTimeoutWorker_EarlyWarningSnapshot(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	saveChan := make(chan SaveSnapshotRequest, 8)
	worker := newTimeoutWorker(reg, &fakeNotifier{}, saveChan)

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.StartGame(room.Code, "master")
	require.NoError(t, err)
	_, err = reg.UpdateConnection("master", "", false)
	require.NoError(t, err)

	// inside the warning window but before the timeout itself
	worker.Sweep(time.Now().Add(reg.MasterTimeout() - SnapshotWarningWindow/2))

	require.Len(t, saveChan, 1)
	req := <-saveChan
	assert.Equal(t, "pre-timeout", req.Reason)
	assert.True(t, room.Status().Active, "a warning snapshot must not close the room")
}

func TestMasterTimeoutWorker_IgnoresUnpausedRooms(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	notifier := &fakeNotifier{}
	saveChan := make(chan SaveSnapshotRequest, 8)
	worker := newTimeoutWorker(reg, notifier, saveChan)

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)

	worker.Sweep(time.Now().Add(24 * time.Hour))

	assert.True(t, room.Status().Active)
	assert.Empty(t, notifier.broadcasts)
}

func TestMasterTimeoutWorker_FullSnapshotQueueStillCloses(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	saveChan := make(chan SaveSnapshotRequest) // unbuffered and undrained
	worker := newTimeoutWorker(reg, &fakeNotifier{}, saveChan)

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.StartGame(room.Code, "master")
	require.NoError(t, err)
	_, err = reg.UpdateConnection("master", "", false)
	require.NoError(t, err)

	worker.Sweep(time.Now().Add(reg.MasterTimeout() + time.Second))

	assert.False(t, room.Status().Active, "a failed snapshot dispatch must not prevent closure")
}

func TestSaveSnapshotWorker_SaveRoom(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	repo := &fakeRepository{}
	worker := NewSaveSnapshotWorker(NewSaveSnapshotWorkerOptions{
		Repository:       repo,
		Registry:         reg,
		SaveSnapshotChan: make(chan SaveSnapshotRequest),
		AutosaveInterval: time.Minute,
	})

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(room.Code, "p1", "Alice", "conn-p1", "")
	require.NoError(t, err)
	_, err = reg.StartGame(room.Code, "master")
	require.NoError(t, err)

	worker.saveRoom(context.Background(), room, "test")

	require.Len(t, repo.saved, 1)
	snapshot := repo.saved[0]
	assert.Equal(t, room.Code, snapshot.Code)
	assert.Equal(t, "master", snapshot.MasterID)
	assert.ElementsMatch(t, []string{"master", "p1"}, snapshot.MemberIDs)
	assert.True(t, snapshot.GameStarted)
	assert.NotNil(t, snapshot.State.Public)
	assert.NotNil(t, snapshot.State.Master)
}

func TestSaveSnapshotWorker_AutosaveSelectsStartedActiveRooms(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	repo := &fakeRepository{}
	worker := NewSaveSnapshotWorker(NewSaveSnapshotWorkerOptions{
		Repository:       repo,
		Registry:         reg,
		SaveSnapshotChan: make(chan SaveSnapshotRequest),
		AutosaveInterval: time.Minute,
	})

	started, err := reg.CreateRoom("m1", "Master", "conn-1", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.StartGame(started.Code, "m1")
	require.NoError(t, err)

	// in the lobby, never started
	_, err = reg.CreateRoom("m2", "Master", "conn-2", rooms.Settings{})
	require.NoError(t, err)

	// started but closed
	closed, err := reg.CreateRoom("m3", "Master", "conn-3", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.StartGame(closed.Code, "m3")
	require.NoError(t, err)
	reg.CloseRoom(closed.Code)

	worker.autosave(context.Background())

	require.Len(t, repo.saved, 1)
	assert.Equal(t, started.Code, repo.saved[0].Code)
}

func TestSaveSnapshotWorker_PersistenceFailureIsSwallowed(t *testing.T) {
	reg := rooms.NewRegistry(rooms.NewRegistryOptions{})
	repo := &fakeRepository{err: assert.AnError}
	worker := NewSaveSnapshotWorker(NewSaveSnapshotWorkerOptions{
		Repository:       repo,
		Registry:         reg,
		SaveSnapshotChan: make(chan SaveSnapshotRequest),
		AutosaveInterval: time.Minute,
	})

	room, err := reg.CreateRoom("master", "Master", "conn-m", rooms.Settings{})
	require.NoError(t, err)
	_, err = reg.StartGame(room.Code, "master")
	require.NoError(t, err)

	// must not panic or propagate
	worker.autosave(context.Background())
	assert.Empty(t, repo.saved)
}
