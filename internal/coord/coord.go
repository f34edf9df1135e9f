package coord

import (
	"context"
	"time"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/domain"
)

// WakeupMessage is the content-free payload published on the notification channel.
const WakeupMessage = "new_task"

// Queue is the FIFO task queue shared by publishers and workers.
type Queue interface {
	// Push appends a task at the insertion end of the queue.
	Push(ctx context.Context, task domain.Task) error

	// Restore puts a popped task back at the pop end so that it is the
	// next entry popped.
	Restore(ctx context.Context, task domain.Task) error

	// Pop atomically removes the task at the opposite end from insertion.
	// It returns ok=false without error when the queue is empty and never
	// blocks. The same entry is never returned to two callers.
	Pop(ctx context.Context) (task domain.Task, ok bool, err error)

	// Len reports the number of queued entries.
	Len(ctx context.Context) (int64, error)
}

// Claim records that holder is processing key until ExpiresAt unless renewed.
type Claim struct {
	Key       domain.TaskKey
	Holder    string
	ExpiresAt time.Time
}

// ClaimRegistry admits at most one active claim per task key across all workers.
type ClaimRegistry interface {
	// TryClaim atomically acquires key for holder if no live claim exists.
	// ok=false means another holder is active; it is not an error.
	TryClaim(ctx context.Context, key domain.TaskKey, holder string, ttl time.Duration) (claim Claim, ok bool, err error)

	// Renew extends a claim still held by holder. It returns ErrClaimLost
	// once the lease expired or was taken over.
	Renew(ctx context.Context, claim Claim, ttl time.Duration) (Claim, error)

	// Release removes the claim. It is a no-op when the claim was already
	// taken over by another holder.
	Release(ctx context.Context, claim Claim) error

	// IsClaimed reports whether a live claim exists for key.
	IsClaimed(ctx context.Context, key domain.TaskKey) (bool, error)

	// ReapExpired removes registry entries whose lease has expired and
	// returns their keys.
	ReapExpired(ctx context.Context) ([]domain.TaskKey, error)
}

// Message is one payload received on a subscribed channel.
type Message struct {
	Channel string
	Payload string
}

// Publisher publishes fire-and-forget messages.
type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

// Subscription delivers messages until it is closed. Messages is closed
// when the subscription ends.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Subscriber opens subscriptions. Implementations use a connection that is
// dedicated to receiving and is never used for issuing other commands.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

// Channels names every collection and channel used by the protocol.
type Channels struct {
	Queue        string
	Notification string
	Completed    string
	Failed       string
	ClaimSet     string
	LeasePrefix  string
}

// DefaultChannels returns the identifiers used by the original product.
func DefaultChannels() Channels {
	return Channels{
		Queue:        "task_aiInsight_queue",
		Notification: "task_aiInsight_notifications",
		Completed:    "task_aiInsight_completed",
		Failed:       "task_aiInsight_failed",
		ClaimSet:     "sprint_processing_set",
		LeasePrefix:  "sprint_processing_lease:",
	}
}

// ChannelsFromConfig maps the coordination config section to Channels.
func ChannelsFromConfig(cfg config.CoordinationConfig) Channels {
	return Channels{
		Queue:        cfg.QueueKey,
		Notification: cfg.NotificationChannel,
		Completed:    cfg.CompletedChannel,
		Failed:       cfg.FailedChannel,
		ClaimSet:     cfg.ClaimSetKey,
		LeasePrefix:  cfg.LeaseKeyPrefix,
	}
}
