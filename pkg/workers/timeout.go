package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/messages"
	"github.com/cbodonnell/gametable/pkg/rooms"
)

const (
	// SnapshotWarningWindow is how long before the master timeout the
	// sweep starts taking pre-closure snapshots
	SnapshotWarningWindow = time.Minute
)

// Notifier carries outbound room notifications to connected members.
// The transport layer implements it.
type Notifier interface {
	BroadcastToRoom(room *rooms.Room, msgType string, payload interface{})
}

type MasterTimeoutWorker struct {
	registry         *rooms.Registry
	notifier         Notifier
	saveSnapshotChan chan<- SaveSnapshotRequest
	interval         time.Duration
}

type NewMasterTimeoutWorkerOptions struct {
	Registry         *rooms.Registry
	Notifier         Notifier
	SaveSnapshotChan chan<- SaveSnapshotRequest
	Interval         time.Duration
}

// NewMasterTimeoutWorker creates a new MasterTimeoutWorker.
// The worker watches paused rooms and closes those whose master has been
// gone longer than the registry's master timeout. Started games get a
// best-effort snapshot shortly before and again at closure. Snapshot
// requests go through a buffered channel so a slow persistence gateway
// never stalls the sweep; a full channel drops the request with a log
// line and the room still closes.
func NewMasterTimeoutWorker(opts NewMasterTimeoutWorkerOptions) *MasterTimeoutWorker {
	return &MasterTimeoutWorker{
		registry:         opts.Registry,
		notifier:         opts.Notifier,
		saveSnapshotChan: opts.SaveSnapshotChan,
		interval:         opts.Interval,
	}
}

func (w *MasterTimeoutWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(time.Now())
		}
	}
}

// Sweep runs one master-timeout pass. Exported so tests can drive it
// without waiting on the ticker. Running it twice on unchanged state is
// a no-op beyond re-evaluated timestamps.
func (w *MasterTimeoutWorker) Sweep(now time.Time) {
	timeout := w.registry.MasterTimeout()

	for _, room := range w.registry.ListRooms() {
		status := room.Status()
		if !status.Paused || !status.Active {
			continue
		}

		elapsed := now.Sub(status.MasterLastSeen)

		if elapsed > timeout {
			if status.GameStarted {
				w.requestSnapshot(room, "master-timeout")
			}
			if w.registry.CloseRoom(room.Code) {
				room.State.AppendPublicLog("Room closed: master did not return")
				room.State.AppendMasterLog("Room closed automatically after master timeout")
				if w.notifier != nil {
					w.notifier.BroadcastToRoom(room, messages.MessageTypeRoomClosed, messages.RoomClosed{
						Reason:  "master-timeout",
						Message: "Room closed because the master did not return",
					})
				}
				log.Info("Room %s closed due to master timeout", room.Code)
			}
			continue
		}

		// early-warning snapshot while the room can still be saved
		if status.GameStarted && elapsed > timeout-SnapshotWarningWindow {
			w.requestSnapshot(room, "pre-timeout")
		}
	}
}

func (w *MasterTimeoutWorker) requestSnapshot(room *rooms.Room, reason string) {
	select {
	case w.saveSnapshotChan <- SaveSnapshotRequest{Room: room, Reason: reason}:
	default:
		log.Error("Snapshot queue full, dropping %s snapshot for room %s", reason, room.Code)
	}
}
