package repositories

import (
	"context"

	"github.com/cbodonnell/gametable/pkg/repositories/models"
)

type Repository interface {
	Close(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) (string, error)
	LoadSnapshot(ctx context.Context, id string) (*models.RoomSnapshot, error)
	ListSnapshots(ctx context.Context, userID string) ([]*models.RoomSnapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
}
