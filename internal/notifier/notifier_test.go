package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/events"
	"github.com/phrazzld/sprint-insights/internal/notifier"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
	"github.com/phrazzld/sprint-insights/internal/platform/redis"
)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []*events.InsightEvent
	err    error
}

func (r *recorder) EmitEvent(_ context.Context, event *events.InsightEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) snapshot() []*events.InsightEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.InsightEvent(nil), r.events...)
}

type subscriberFunc func(ctx context.Context, channels ...string) (coord.Subscription, error)

func (f subscriberFunc) Subscribe(ctx context.Context, channels ...string) (coord.Subscription, error) {
	return f(ctx, channels...)
}

type closedSubscription struct{ ch chan coord.Message }

func (s closedSubscription) Messages() <-chan coord.Message { return s.ch }
func (s closedSubscription) Close() error { return nil }

func newNotifier(t *testing.T, sub coord.Subscriber, emitter events.EventEmitter) *notifier.Notifier {
	t.Helper()
	n, err := notifier.New(sub, emitter, coord.DefaultChannels(), logger.Discard())
	require.NoError(t, err)
	return n
}

func TestHandle(t *testing.T) {
	t.Parallel()

	channels := coord.DefaultChannels()

	testCases := []struct {
		name     string
		msg      coord.Message
		wantType events.InsightEventType
		wantRoom string
		wantDrop bool
	}{
		{
			name:     "completed",
			msg:      coord.Message{Channel: channels.Completed, Payload: `{"projectId":1,"sprintId":10,"user":"alice"}`},
			wantType: events.InsightUpdated,
			wantRoom: "sprint-insight/10",
		},
		{
			name:     "failed",
			msg:      coord.Message{Channel: channels.Failed, Payload: `{"projectId":1,"sprintId":12,"user":"bob"}`},
			wantType: events.InsightFailed,
			wantRoom: "sprint-insight/12",
		},
		{
			name:     "sprint id is enough",
			msg:      coord.Message{Channel: channels.Completed, Payload: `{"sprintId":7}`},
			wantType: events.InsightUpdated,
			wantRoom: "sprint-insight/7",
		},
		{
			name:     "missing sprint id",
			msg:      coord.Message{Channel: channels.Completed, Payload: `{"projectId":1,"user":"alice"}`},
			wantDrop: true,
		},
		{
			name:     "string sprint id",
			msg:      coord.Message{Channel: channels.Completed, Payload: `{"projectId":1,"sprintId":"10"}`},
			wantDrop: true,
		},
		{
			name:     "not json",
			msg:      coord.Message{Channel: channels.Completed, Payload: "done"},
			wantDrop: true,
		},
		{
			name:     "unknown channel",
			msg:      coord.Message{Channel: "elsewhere", Payload: `{"sprintId":10}`},
			wantDrop: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			n := newNotifier(t, redis.NewSubscriber(nil), rec)

			err := n.Handle(context.Background(), tc.msg)
			if tc.wantDrop {
				assert.ErrorIs(t, err, notifier.ErrDropped)
				assert.Empty(t, rec.snapshot())
				return
			}

			require.NoError(t, err)
			got := rec.snapshot()
			require.Len(t, got, 1)
			assert.Equal(t, tc.wantType, got[0].Type)
			assert.Equal(t, tc.wantRoom, got[0].Room())
		})
	}
}

func TestHandleEmitterError(t *testing.T) {
	t.Parallel()

	rec := &recorder{err: errors.New("hub closed")}
	n := newNotifier(t, redis.NewSubscriber(nil), rec)

	err := n.Handle(context.Background(), coord.Message{
		Channel: coord.DefaultChannels().Completed,
		Payload: `{"projectId":1,"sprintId":10,"user":"alice"}`,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, notifier.ErrDropped)
	assert.Contains(t, err.Error(), "hub closed")
}

func TestRunDeliversFromRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	subClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = subClient.Close() })

	channels := coord.DefaultChannels()
	rec := &recorder{}
	n := newNotifier(t, redis.NewSubscriber(subClient), rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool {
		counts := mr.PubSubNumSub(channels.Completed, channels.Failed)
		return counts[channels.Completed] == 1 && counts[channels.Failed] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish(channels.Failed, "garbage")
	mr.Publish(channels.Completed, `{"projectId":1,"sprintId":10,"user":"alice"}`)
	mr.Publish(channels.Failed, `{"projectId":1,"sprintId":11,"user":"alice"}`)

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, events.InsightUpdated, got[0].Type)
	assert.Equal(t, int64(10), got[0].Task.SprintID)
	assert.Equal(t, events.InsightFailed, got[1].Type)
	assert.Equal(t, int64(11), got[1].Task.SprintID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop")
	}
}

func TestRunSubscribeFailure(t *testing.T) {
	t.Parallel()

	sub := subscriberFunc(func(context.Context, ...string) (coord.Subscription, error) {
		return nil, coord.ErrStore
	})
	n := newNotifier(t, sub, &recorder{})

	err := n.Run(context.Background())
	assert.ErrorIs(t, err, coord.ErrStore)
}

func TestRunSubscriptionClosed(t *testing.T) {
	t.Parallel()

	ch := make(chan coord.Message)
	close(ch)
	sub := subscriberFunc(func(context.Context, ...string) (coord.Subscription, error) {
		return closedSubscription{ch: ch}, nil
	})
	n := newNotifier(t, sub, &recorder{})

	err := n.Run(context.Background())
	assert.ErrorIs(t, err, notifier.ErrSubscriptionClosed)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	sub := redis.NewSubscriber(nil)
	_, err := notifier.New(nil, &recorder{}, coord.DefaultChannels(), logger.Discard())
	assert.Error(t, err)
	_, err = notifier.New(sub, nil, coord.DefaultChannels(), logger.Discard())
	assert.Error(t, err)
	_, err = notifier.New(sub, &recorder{}, coord.DefaultChannels(), nil)
	assert.Error(t, err)
}
