package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/store"
)

// MockInsightStore implements store.InsightStore. Without function overrides
// it behaves as an in-memory store keyed by (sprint ID, category).
type MockInsightStore struct {
	UpsertFn       func(ctx context.Context, insight *domain.SprintInsight) error
	UpsertAllFn    func(ctx context.Context, insights []*domain.SprintInsight) error
	ListBySprintFn func(ctx context.Context, sprintID int64) ([]*domain.SprintInsight, error)

	mu       sync.Mutex
	insights map[int64]map[domain.InsightCategory]*domain.SprintInsight

	// UpsertAllCount counts UpsertAll calls.
	UpsertAllCount int
}

var _ store.InsightStore = (*MockInsightStore)(nil)

// NewMockInsightStore creates an empty in-memory MockInsightStore
func NewMockInsightStore() *MockInsightStore {
	return &MockInsightStore{}
}

// Upsert implements store.InsightStore
func (m *MockInsightStore) Upsert(ctx context.Context, insight *domain.SprintInsight) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, insight)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(insight)
	return nil
}

// UpsertAll implements store.InsightStore
func (m *MockInsightStore) UpsertAll(ctx context.Context, insights []*domain.SprintInsight) error {
	m.mu.Lock()
	m.UpsertAllCount++
	m.mu.Unlock()

	if m.UpsertAllFn != nil {
		return m.UpsertAllFn(ctx, insights)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, insight := range insights {
		m.put(insight)
	}
	return nil
}

// ListBySprint implements store.InsightStore
func (m *MockInsightStore) ListBySprint(ctx context.Context, sprintID int64) ([]*domain.SprintInsight, error) {
	if m.ListBySprintFn != nil {
		return m.ListBySprintFn(ctx, sprintID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*domain.SprintInsight, 0)
	for _, category := range domain.AllCategories() {
		if insight, ok := m.insights[sprintID][category]; ok {
			copied := *insight
			result = append(result, &copied)
		}
	}
	return result, nil
}

// Calls returns how many times UpsertAll was called.
func (m *MockInsightStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpsertAllCount
}

// put requires m.mu.
func (m *MockInsightStore) put(insight *domain.SprintInsight) {
	if m.insights == nil {
		m.insights = make(map[int64]map[domain.InsightCategory]*domain.SprintInsight)
	}
	bySprint, ok := m.insights[insight.SprintID]
	if !ok {
		bySprint = make(map[domain.InsightCategory]*domain.SprintInsight)
		m.insights[insight.SprintID] = bySprint
	}
	copied := *insight
	bySprint[insight.Category] = &copied
}
