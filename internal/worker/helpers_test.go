package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/mocks"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
	"github.com/phrazzld/sprint-insights/internal/platform/redis"
)

// fixture wires consumers to an in-process Redis. Results are captured by a
// recording publisher so tests can assert on what was announced.
type fixture struct {
	mr        *miniredis.Miniredis
	client    *goredis.Client
	subClient *goredis.Client
	channels  coord.Channels
	queue     *redis.Queue
	claims    *redis.ClaimRegistry
	published *mocks.MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	subClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		_ = subClient.Close()
	})

	channels := coord.DefaultChannels()
	log := logger.Discard()

	return &fixture{
		mr:        mr,
		client:    client,
		subClient: subClient,
		channels:  channels,
		queue:     redis.NewQueue(client, channels.Queue, log),
		claims:    redis.NewClaimRegistry(client, channels.ClaimSet, channels.LeasePrefix, log),
		published: &mocks.MockPublisher{},
	}
}

func (f *fixture) deps(engine Engine) Dependencies {
	return Dependencies{
		Queue:      f.queue,
		Claims:     f.claims,
		Publisher:  f.published,
		Subscriber: redis.NewSubscriber(f.subClient),
		Engine:     engine,
		Channels:   f.channels,
	}
}

func (f *fixture) push(t *testing.T, tasks ...domain.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, f.queue.Push(context.Background(), task))
	}
}

func (f *fixture) queueLen(t *testing.T) int64 {
	t.Helper()
	n, err := f.queue.Len(context.Background())
	require.NoError(t, err)
	return n
}

func (f *fixture) isClaimed(t *testing.T, task domain.Task) bool {
	t.Helper()
	claimed, err := f.claims.IsClaimed(context.Background(), task.Key())
	require.NoError(t, err)
	return claimed
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Concurrency:       1,
		PollInterval:      time.Hour,
		GenerationTimeout: 5 * time.Second,
		LeaseTTL:          time.Minute,
		DuplicatePolicy:   config.DuplicatePolicyDiscard,
	}
}

func newTestConsumer(t *testing.T, deps Dependencies, holder string, mutate func(*config.WorkerConfig)) *Consumer {
	t.Helper()

	cfg := testWorkerConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := NewConsumer(deps, cfg, holder, logger.Discard())
	require.NoError(t, err)
	c.wait = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

func mustTask(t *testing.T, projectID, sprintID int64, user string) domain.Task {
	t.Helper()
	task, err := domain.NewTask(projectID, sprintID, user)
	require.NoError(t, err)
	return task
}

func encoded(t *testing.T, task domain.Task) string {
	t.Helper()
	b, err := domain.EncodeTask(task)
	require.NoError(t, err)
	return string(b)
}

// recordingEngine records every task it was asked to generate.
type recordingEngine struct {
	mu    sync.Mutex
	tasks []domain.Task
	fn    func(ctx context.Context, task domain.Task) error
}

func (e *recordingEngine) Generate(ctx context.Context, task domain.Task) error {
	e.mu.Lock()
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()

	if e.fn != nil {
		return e.fn(ctx, task)
	}
	return nil
}

func (e *recordingEngine) calls() []domain.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Task(nil), e.tasks...)
}

// subscriberFunc adapts a function to coord.Subscriber.
type subscriberFunc func(ctx context.Context, channels ...string) (coord.Subscription, error)

func (f subscriberFunc) Subscribe(ctx context.Context, channels ...string) (coord.Subscription, error) {
	return f(ctx, channels...)
}
