package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/gametable/pkg/rooms"
)

type CleanupWorker struct {
	registry *rooms.Registry
	interval time.Duration
}

type NewCleanupWorkerOptions struct {
	Registry *rooms.Registry
	Interval time.Duration
}

// NewCleanupWorker creates a new CleanupWorker.
// The worker periodically removes empty rooms that have outlived the
// registry's empty-room timeout. Rooms with members are never touched.
func NewCleanupWorker(opts NewCleanupWorkerOptions) *CleanupWorker {
	return &CleanupWorker{
		registry: opts.Registry,
		interval: opts.Interval,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.registry.CleanupEmptyRooms()
		}
	}
}
