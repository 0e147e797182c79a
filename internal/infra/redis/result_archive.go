package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
)

// ResultArchive keeps finished-quiz snapshots in Redis as JSON with a TTL,
// so scoreboards survive a short while after their room is deleted.
type ResultArchive struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultArchive(client *redis.Client, ttl time.Duration) *ResultArchive {
	return &ResultArchive{client: client, ttl: ttl}
}

// ArchiveResults stores the snapshot under quiz:results:{roomID} and keeps
// a code -> id pointer so lookups by join code work too.
func (a *ResultArchive) ArchiveResults(ctx context.Context, record domain.QuizRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	pipe := a.client.Pipeline()
	pipe.Set(ctx, a.resultsKey(record.RoomID), data, a.ttl)
	pipe.Set(ctx, a.codeKey(record.RoomCode), record.RoomID, a.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Load retrieves an archived snapshot by room id.
func (a *ResultArchive) Load(ctx context.Context, roomID string) (domain.QuizRecord, error) {
	data, err := a.client.Get(ctx, a.resultsKey(roomID)).Bytes()
	if err == redis.Nil {
		return domain.QuizRecord{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.QuizRecord{}, err
	}
	var record domain.QuizRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.QuizRecord{}, err
	}
	return record, nil
}

// LoadByCode retrieves an archived snapshot by join code.
func (a *ResultArchive) LoadByCode(ctx context.Context, roomCode string) (domain.QuizRecord, error) {
	id, err := a.client.Get(ctx, a.codeKey(roomCode)).Result()
	if err == redis.Nil {
		return domain.QuizRecord{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.QuizRecord{}, err
	}
	return a.Load(ctx, id)
}

func (a *ResultArchive) resultsKey(roomID string) string {
	return "quiz:results:" + roomID
}

func (a *ResultArchive) codeKey(code string) string {
	return "quiz:results:code:" + code
}
