package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
)

// Queue implements coord.Queue on a Redis list.
type Queue struct {
	client goredis.UniversalClient
	key    string
	logger *slog.Logger
}

var _ coord.Queue = (*Queue)(nil)

// NewQueue creates a queue stored under key.
func NewQueue(client goredis.UniversalClient, key string, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		client: client,
		key:    key,
		logger: logger.With("component", "redis_queue"),
	}
}

// Push inserts the serialized task at the head of the list.
func (q *Queue) Push(ctx context.Context, task domain.Task) error {
	payload, err := domain.EncodeTask(task)
	if err != nil {
		return err
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("%w: push to %s: %v", coord.ErrStore, q.key, err)
	}
	return nil
}

// Restore inserts the serialized task at the tail of the list, where Pop
// takes from.
func (q *Queue) Restore(ctx context.Context, task domain.Task) error {
	payload, err := domain.EncodeTask(task)
	if err != nil {
		return err
	}

	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("%w: restore to %s: %v", coord.ErrStore, q.key, err)
	}
	return nil
}

// Pop removes the entry at the tail of the list. An entry that cannot be
// decoded is still removed and reported as domain.ErrMalformedTask.
func (q *Queue) Pop(ctx context.Context) (domain.Task, bool, error) {
	payload, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("%w: pop from %s: %v", coord.ErrStore, q.key, err)
	}

	task, err := domain.DecodeTask(payload)
	if err != nil {
		q.logger.Warn("dropping undecodable queue entry",
			"queue", q.key,
			"payload", string(payload),
			"error", err)
		return domain.Task{}, false, err
	}

	return task, true, nil
}

// Len returns the list length.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: length of %s: %v", coord.ErrStore, q.key, err)
	}
	return n, nil
}
