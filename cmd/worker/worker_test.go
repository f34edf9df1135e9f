package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/mocks"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
)

func testConfig() *config.Config {
	channels := coord.DefaultChannels()
	return &config.Config{
		Worker: config.WorkerConfig{
			Concurrency:       2,
			InstanceName:      "test-worker",
			PollInterval:      50 * time.Millisecond,
			GenerationTimeout: 5 * time.Second,
			LeaseTTL:          5 * time.Second,
			DuplicatePolicy:   config.DuplicatePolicyDiscard,
		},
		Coordination: config.CoordinationConfig{
			QueueKey:            channels.Queue,
			NotificationChannel: channels.Notification,
			CompletedChannel:    channels.Completed,
			FailedChannel:       channels.Failed,
			ClaimSetKey:         channels.ClaimSet,
			LeaseKeyPrefix:      channels.LeasePrefix,
		},
	}
}

// TestPoolProcessesQueuedTask runs the assembled pool against an in-process
// Redis and checks that a queued task ends up stored and released.
func TestPoolProcessesQueuedTask(t *testing.T) {
	mr := miniredis.RunT(t)
	cmdClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	subClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = cmdClient.Close()
		_ = subClient.Close()
	})

	cfg := testConfig()
	insights := mocks.NewMockInsightStore()
	generator := mocks.NewMockTextGeneratorWithText("The sprint went well.")

	pool, err := newPool(cfg, cmdClient, subClient, generator, insights, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Size())

	_, err = mr.Lpush(cfg.Coordination.QueueKey, `{"projectId":1,"sprintId":10,"user":"alice"}`)
	require.NoError(t, err)

	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Stop)

	require.Eventually(t, func() bool {
		return insights.Calls() == 1
	}, 5*time.Second, 20*time.Millisecond)

	stored, err := insights.ListBySprint(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	require.Eventually(t, func() bool {
		return !mr.Exists(cfg.Coordination.ClaimSetKey)
	}, 2*time.Second, 20*time.Millisecond)

	assert.False(t, mr.Exists(cfg.Coordination.QueueKey), "queue must be drained")
}
