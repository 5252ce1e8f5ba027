package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/repositories"
	"github.com/cbodonnell/gametable/pkg/repositories/models"
	"github.com/cbodonnell/gametable/pkg/rooms"
)

// SaveSnapshotRequest asks the save worker to persist one room.
type SaveSnapshotRequest struct {
	Room   *rooms.Room
	Reason string
}

type SaveSnapshotWorker struct {
	repository       repositories.Repository
	registry         *rooms.Registry
	saveSnapshotChan <-chan SaveSnapshotRequest
	autosaveInterval time.Duration
}

type NewSaveSnapshotWorkerOptions struct {
	Repository       repositories.Repository
	Registry         *rooms.Registry
	SaveSnapshotChan <-chan SaveSnapshotRequest
	AutosaveInterval time.Duration
}

// NewSaveSnapshotWorker creates a new SaveSnapshotWorker.
// The worker processes snapshot requests from the lifecycle sweeps and
// periodically autosaves every started, active room. Persistence
// failures are logged and swallowed: gameplay continuity takes
// precedence over durability.
func NewSaveSnapshotWorker(opts NewSaveSnapshotWorkerOptions) *SaveSnapshotWorker {
	return &SaveSnapshotWorker{
		repository:       opts.Repository,
		registry:         opts.Registry,
		saveSnapshotChan: opts.SaveSnapshotChan,
		autosaveInterval: opts.AutosaveInterval,
	}
}

func (w *SaveSnapshotWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.autosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case saveRequest := <-w.saveSnapshotChan:
			w.saveRoom(ctx, saveRequest.Room, saveRequest.Reason)
		case <-ticker.C:
			w.autosave(ctx)
		}
	}
}

func (w *SaveSnapshotWorker) autosave(ctx context.Context) {
	saved := 0
	for _, room := range w.registry.ListRooms() {
		status := room.Status()
		if !status.GameStarted || !status.Active {
			continue
		}
		w.saveRoom(ctx, room, "autosave")
		saved++
	}
	if saved > 0 {
		log.Debug("Auto-saved %d room(s)", saved)
	}
}

func (w *SaveSnapshotWorker) saveRoom(ctx context.Context, room *rooms.Room, reason string) {
	snapshot := SnapshotRoom(room)
	id, err := w.repository.SaveSnapshot(ctx, snapshot)
	if err != nil {
		log.Error("Failed to save snapshot for room %s (%s): %v", room.Code, reason, err)
		return
	}
	log.Debug("Room %s snapshot saved (%s): %s", room.Code, reason, id)
}

// SnapshotRoom captures a room's full state and metadata for the
// persistence gateway.
func SnapshotRoom(room *rooms.Room) *models.RoomSnapshot {
	status := room.Status()
	return &models.RoomSnapshot{
		Code:        room.Code,
		MasterID:    room.MasterID,
		MemberIDs:   room.MemberIDs(),
		State:       room.State.GetFullState(),
		GameStarted: status.GameStarted,
		CreatedAt:   time.Now(),
	}
}
