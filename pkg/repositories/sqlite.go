package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cbodonnell/gametable/pkg/repositories/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string, migrations string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	dir, err := os.ReadDir(migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return nil, fmt.Errorf("failed to execute migration %s: %v", migrationPath, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) (string, error) {
	stateBlob, err := encodeState(snapshot.State)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %v", err)
	}

	memberIDs, err := json.Marshal(snapshot.MemberIDs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal member ids: %v", err)
	}

	id := snapshot.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	q := `
	INSERT OR REPLACE INTO room_snapshots (id, code, master_id, member_ids, state, game_started, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`
	if _, err := r.db.ExecContext(ctx, q, id, snapshot.Code, snapshot.MasterID, string(memberIDs), stateBlob, snapshot.GameStarted, createdAt); err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %v", err)
	}

	return id, nil
}

func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, id string) (*models.RoomSnapshot, error) {
	q := `
	SELECT id, code, master_id, member_ids, state, game_started, created_at
	FROM room_snapshots WHERE id = ?;
	`
	row := r.db.QueryRowContext(ctx, q, id)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to load snapshot: %v", err)
	}
	return snapshot, nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, userID string) ([]*models.RoomSnapshot, error) {
	// member_ids is a JSON array of strings; the LIKE match is crude but
	// avoids a join table for a list that is rarely queried
	q := `
	SELECT id, code, master_id, member_ids, state, game_started, created_at
	FROM room_snapshots
	WHERE master_id = ? OR member_ids LIKE '%"' || ? || '"%'
	ORDER BY created_at DESC;
	`
	rows, err := r.db.QueryContext(ctx, q, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %v", err)
	}
	defer rows.Close()

	var snapshots []*models.RoomSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %v", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (r *SQLiteRepository) DeleteSnapshot(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM room_snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if affected == 0 {
		return &ErrNotFound{}
	}
	return nil
}
