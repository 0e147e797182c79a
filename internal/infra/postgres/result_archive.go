package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizroom-service/internal/domain"
)

// ResultArchive writes finished-quiz snapshots to Postgres as JSONB rows.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

// ArchiveResults upserts the snapshot; re-finishing a room (restart, early
// finish followed by the deferred path) overwrites the previous row.
func (a *ResultArchive) ArchiveResults(ctx context.Context, record domain.QuizRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal quiz record: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO quiz_results (room_id, room_code, title, data, finished_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_id) DO UPDATE
		SET data = EXCLUDED.data, finished_at = EXCLUDED.finished_at`,
		record.RoomID, record.RoomCode, record.Title, data, record.FinishedAt)
	if err != nil {
		return fmt.Errorf("archive quiz record: %w", err)
	}
	return nil
}

// Load retrieves an archived snapshot by room id.
func (a *ResultArchive) Load(ctx context.Context, roomID string) (domain.QuizRecord, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx, `SELECT data FROM quiz_results WHERE room_id=$1`, roomID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizRecord{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("load quiz record: %w", err)
	}
	var record domain.QuizRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("unmarshal quiz record: %w", err)
	}
	return record, nil
}
