package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/events"
)

var (
	// ErrDropped is returned by Handle for messages that cannot be routed.
	ErrDropped = errors.New("notification dropped")

	// ErrSubscriptionClosed is returned by Run when the store ends the subscription.
	ErrSubscriptionClosed = errors.New("notification subscription closed")
)

// Notifier listens on the completed and failed channels and emits one
// insight event per message.
type Notifier struct {
	subscriber coord.Subscriber
	emitter    events.EventEmitter
	channels   coord.Channels
	logger     *slog.Logger
}

// New creates a Notifier. subscriber must own a connection that is not
// shared with command traffic.
func New(
	subscriber coord.Subscriber,
	emitter events.EventEmitter,
	channels coord.Channels,
	logger *slog.Logger,
) (*Notifier, error) {
	if subscriber == nil {
		return nil, errors.New("subscriber cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Notifier{
		subscriber: subscriber,
		emitter:    emitter,
		channels:   channels,
		logger:     logger.With("component", "completion_notifier"),
	}, nil
}

// Run receives messages until ctx is cancelled or the subscription ends.
// Cancellation returns nil.
func (n *Notifier) Run(ctx context.Context) error {
	sub, err := n.subscriber.Subscribe(ctx, n.channels.Completed, n.channels.Failed)
	if err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			n.logger.Warn("failed to close notification subscription", "error", err)
		}
	}()

	n.logger.Info("completion notifier started",
		"completed_channel", n.channels.Completed,
		"failed_channel", n.channels.Failed)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("completion notifier stopped")
			return nil

		case msg, ok := <-sub.Messages():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}

			if err := n.Handle(ctx, msg); err != nil {
				if errors.Is(err, ErrDropped) {
					n.logger.Warn("dropping notification", "error", err, "channel", msg.Channel)
				} else {
					n.logger.Error("failed to emit insight event", "error", err, "channel", msg.Channel)
				}
			}
		}
	}
}

// Handle routes one message. Payloads that do not decode, or that lack a
// positive sprintId, return ErrDropped.
func (n *Notifier) Handle(ctx context.Context, msg coord.Message) error {
	var eventType events.InsightEventType
	switch msg.Channel {
	case n.channels.Completed:
		eventType = events.InsightUpdated
	case n.channels.Failed:
		eventType = events.InsightFailed
	default:
		return fmt.Errorf("%w: unexpected channel %q", ErrDropped, msg.Channel)
	}

	task, err := domain.DecodeTask([]byte(msg.Payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDropped, err)
	}
	if task.SprintID <= 0 {
		return fmt.Errorf("%w: missing sprintId in %q", ErrDropped, msg.Payload)
	}

	event := events.NewInsightEvent(eventType, task)
	if err := n.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to emit %s event for sprint %d: %w", eventType, task.SprintID, err)
	}

	n.logger.Debug("emitted insight event",
		"event_type", string(eventType),
		"room", event.Room(),
		"task", task.String())
	return nil
}
