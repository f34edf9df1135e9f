package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
)

// MockQueue implements coord.Queue. Without function overrides it keeps an
// in-memory FIFO.
type MockQueue struct {
	PushFn    func(ctx context.Context, task domain.Task) error
	RestoreFn func(ctx context.Context, task domain.Task) error
	PopFn     func(ctx context.Context) (domain.Task, bool, error)
	LenFn     func(ctx context.Context) (int64, error)

	mu       sync.Mutex
	tasks    []domain.Task
	pushed   []domain.Task
	restored []domain.Task
}

var _ coord.Queue = (*MockQueue)(nil)

// Push implements coord.Queue
func (m *MockQueue) Push(ctx context.Context, task domain.Task) error {
	m.mu.Lock()
	m.pushed = append(m.pushed, task)
	m.mu.Unlock()

	if m.PushFn != nil {
		return m.PushFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

// Restore implements coord.Queue
func (m *MockQueue) Restore(ctx context.Context, task domain.Task) error {
	m.mu.Lock()
	m.restored = append(m.restored, task)
	m.mu.Unlock()

	if m.RestoreFn != nil {
		return m.RestoreFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append([]domain.Task{task}, m.tasks...)
	return nil
}

// Pop implements coord.Queue
func (m *MockQueue) Pop(ctx context.Context) (domain.Task, bool, error) {
	if m.PopFn != nil {
		return m.PopFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return domain.Task{}, false, nil
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	return task, true, nil
}

// Len implements coord.Queue
func (m *MockQueue) Len(ctx context.Context) (int64, error) {
	if m.LenFn != nil {
		return m.LenFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tasks)), nil
}

// Pushed returns every task passed to Push, including failed pushes.
func (m *MockQueue) Pushed() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Task(nil), m.pushed...)
}

// Restored returns every task passed to Restore.
func (m *MockQueue) Restored() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Task(nil), m.restored...)
}

// MockClaimRegistry implements coord.ClaimRegistry. Without function
// overrides it holds claims in memory and never expires them.
type MockClaimRegistry struct {
	TryClaimFn    func(ctx context.Context, key domain.TaskKey, holder string, ttl time.Duration) (coord.Claim, bool, error)
	RenewFn       func(ctx context.Context, claim coord.Claim, ttl time.Duration) (coord.Claim, error)
	ReleaseFn     func(ctx context.Context, claim coord.Claim) error
	IsClaimedFn   func(ctx context.Context, key domain.TaskKey) (bool, error)
	ReapExpiredFn func(ctx context.Context) ([]domain.TaskKey, error)

	mu       sync.Mutex
	holders  map[domain.TaskKey]string
	released []coord.Claim
}

var _ coord.ClaimRegistry = (*MockClaimRegistry)(nil)

// TryClaim implements coord.ClaimRegistry
func (m *MockClaimRegistry) TryClaim(
	ctx context.Context,
	key domain.TaskKey,
	holder string,
	ttl time.Duration,
) (coord.Claim, bool, error) {
	if m.TryClaimFn != nil {
		return m.TryClaimFn(ctx, key, holder, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.holders[key]; held {
		return coord.Claim{}, false, nil
	}
	if m.holders == nil {
		m.holders = make(map[domain.TaskKey]string)
	}
	m.holders[key] = holder
	return coord.Claim{Key: key, Holder: holder, ExpiresAt: time.Now().Add(ttl)}, true, nil
}

// Renew implements coord.ClaimRegistry
func (m *MockClaimRegistry) Renew(ctx context.Context, claim coord.Claim, ttl time.Duration) (coord.Claim, error) {
	if m.RenewFn != nil {
		return m.RenewFn(ctx, claim, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holders[claim.Key] != claim.Holder {
		return claim, coord.ErrClaimLost
	}
	claim.ExpiresAt = time.Now().Add(ttl)
	return claim, nil
}

// Release implements coord.ClaimRegistry
func (m *MockClaimRegistry) Release(ctx context.Context, claim coord.Claim) error {
	m.mu.Lock()
	m.released = append(m.released, claim)
	m.mu.Unlock()

	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, claim)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holders[claim.Key] == claim.Holder {
		delete(m.holders, claim.Key)
	}
	return nil
}

// IsClaimed implements coord.ClaimRegistry
func (m *MockClaimRegistry) IsClaimed(ctx context.Context, key domain.TaskKey) (bool, error) {
	if m.IsClaimedFn != nil {
		return m.IsClaimedFn(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.holders[key]
	return held, nil
}

// ReapExpired implements coord.ClaimRegistry
func (m *MockClaimRegistry) ReapExpired(ctx context.Context) ([]domain.TaskKey, error) {
	if m.ReapExpiredFn != nil {
		return m.ReapExpiredFn(ctx)
	}
	return nil, nil
}

// Released returns every claim passed to Release.
func (m *MockClaimRegistry) Released() []coord.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coord.Claim(nil), m.released...)
}

// MockPublisher implements coord.Publisher and records what it published.
type MockPublisher struct {
	PublishFn func(ctx context.Context, channel, payload string) error

	mu       sync.Mutex
	messages []coord.Message
}

var _ coord.Publisher = (*MockPublisher)(nil)

// Publish implements coord.Publisher
func (m *MockPublisher) Publish(ctx context.Context, channel, payload string) error {
	m.mu.Lock()
	m.messages = append(m.messages, coord.Message{Channel: channel, Payload: payload})
	m.mu.Unlock()

	if m.PublishFn != nil {
		return m.PublishFn(ctx, channel, payload)
	}
	return nil
}

// Messages returns every message passed to Publish, in order.
func (m *MockPublisher) Messages() []coord.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coord.Message(nil), m.messages...)
}

// MessagesOn returns the payloads published on channel.
func (m *MockPublisher) MessagesOn(channel string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payloads []string
	for _, msg := range m.messages {
		if msg.Channel == channel {
			payloads = append(payloads, msg.Payload)
		}
	}
	return payloads
}
