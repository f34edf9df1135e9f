// Package publisher turns insight requests from the request-serving process
// into queued tasks and wake-up notifications for the workers.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
)

// Publisher enqueues sprint insight tasks.
type Publisher struct {
	queue    coord.Queue
	claims   coord.ClaimRegistry
	notifier coord.Publisher
	channels coord.Channels
	logger   *slog.Logger
}

// New creates a Publisher. All collaborators are owned by the caller.
func New(
	queue coord.Queue,
	claims coord.ClaimRegistry,
	notifier coord.Publisher,
	channels coord.Channels,
	logger *slog.Logger,
) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		queue:    queue,
		claims:   claims,
		notifier: notifier,
		channels: channels,
		logger:   logger.With("component", "task_publisher"),
	}
}

// Enqueue appends a task for (projectID, sprintID, user) to the queue and then
// publishes a wake-up. The two steps are independent: if the process dies in
// between, the task stays queued until a worker's backstop poll finds it.
func (p *Publisher) Enqueue(ctx context.Context, projectID, sprintID int64, user string) error {
	task, err := domain.NewTask(projectID, sprintID, user)
	if err != nil {
		return err
	}

	if err := p.queue.Push(ctx, task); err != nil {
		p.logger.ErrorContext(ctx, "failed to queue task",
			"task", task.String(),
			"error", err)
		return fmt.Errorf("failed to queue task %s: %w", task, err)
	}
	p.logger.InfoContext(ctx, "task added to queue", "task", task.String())

	if err := p.notifier.Publish(ctx, p.channels.Notification, coord.WakeupMessage); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish wake-up notification",
			"task", task.String(),
			"error", err)
		return fmt.Errorf("failed to notify workers for task %s: %w", task, err)
	}
	p.logger.DebugContext(ctx, "notification published", "task", task.String())

	return nil
}

// IsGenerating reports whether a worker currently holds the claim for the sprint.
func (p *Publisher) IsGenerating(ctx context.Context, projectID, sprintID int64) (bool, error) {
	generating, err := p.claims.IsClaimed(ctx, domain.NewTaskKey(projectID, sprintID))
	if err != nil {
		return false, fmt.Errorf("failed to check generation state: %w", err)
	}
	return generating, nil
}
