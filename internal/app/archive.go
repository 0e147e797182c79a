package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quizroom-service/internal/domain"
)

// ResultArchiver persists a finished quiz snapshot. Implementations live in
// internal/infra; archival is best-effort and never blocks the quiz flow.
type ResultArchiver interface {
	ArchiveResults(ctx context.Context, record domain.QuizRecord) error
}

// Archiver fans a finished-quiz record out to the configured stores.
type Archiver struct {
	stores  []ResultArchiver
	logger  *zap.Logger
	timeout time.Duration
}

// NewArchiver builds an archiver over zero or more stores. A nil *Archiver
// is valid and stores nothing.
func NewArchiver(logger *zap.Logger, stores ...ResultArchiver) *Archiver {
	return &Archiver{stores: stores, logger: logger, timeout: 5 * time.Second}
}

// Store writes the record to every store in the background. Failures are
// logged and otherwise ignored; the live quiz result is already final.
func (a *Archiver) Store(record domain.QuizRecord) {
	if a == nil || len(a.stores) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		for _, store := range a.stores {
			if err := store.ArchiveResults(ctx, record); err != nil {
				a.logger.Warn("archive quiz results failed",
					zap.String("room_id", record.RoomID),
					zap.String("room_code", record.RoomCode),
					zap.Error(err))
			}
		}
	}()
}
