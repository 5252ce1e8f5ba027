package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cbodonnell/gametable/pkg/repositories/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository creates a new PostgresRepository.
// It panics if it is unable to connect to the database.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) Repository {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("Unable to connect to database: %v\n", err))
	}

	return &PostgresRepository{
		conn: conn,
	}
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) SaveSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) (string, error) {
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
	INSERT INTO room_snapshots (id, code, master_id, member_ids, state, game_started, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET member_ids = $4, state = $5, game_started = $6;
	`
	if _, err := r.conn.Exec(ctx, q, id, snapshot.Code, snapshot.MasterID, memberIDs, stateBlob, snapshot.GameStarted, createdAt); err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %v", err)
	}

	return id, nil
}

func (r *PostgresRepository) LoadSnapshot(ctx context.Context, id string) (*models.RoomSnapshot, error) {
	q := `
	SELECT id, code, master_id, member_ids, state, game_started, created_at
	FROM room_snapshots WHERE id = $1;
	`
	row := r.conn.QueryRow(ctx, q, id)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to load snapshot: %v", err)
	}
	return snapshot, nil
}

func (r *PostgresRepository) ListSnapshots(ctx context.Context, userID string) ([]*models.RoomSnapshot, error) {
	q := `
	SELECT id, code, master_id, member_ids, state, game_started, created_at
	FROM room_snapshots
	WHERE master_id = $1 OR member_ids::jsonb ? $1
	ORDER BY created_at DESC;
	`
	rows, err := r.conn.Query(ctx, q, userID)
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

func (r *PostgresRepository) DeleteSnapshot(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM room_snapshots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.RoomSnapshot, error) {
	snapshot := &models.RoomSnapshot{}
	var memberIDs []byte
	var stateBlob []byte

	if err := row.Scan(&snapshot.ID, &snapshot.Code, &snapshot.MasterID, &memberIDs, &stateBlob, &snapshot.GameStarted, &snapshot.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(memberIDs, &snapshot.MemberIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal member ids: %v", err)
	}

	state, err := decodeState(stateBlob)
	if err != nil {
		return nil, err
	}
	snapshot.State = state

	return snapshot, nil
}
