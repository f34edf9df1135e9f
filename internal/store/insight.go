package store

import (
	"context"

	"github.com/phrazzld/sprint-insights/internal/domain"
)

// InsightStore persists sprint insights keyed by (sprint ID, category).
type InsightStore interface {
	// Upsert inserts the insight or overwrites the content of the existing
	// row for the same sprint and category.
	Upsert(ctx context.Context, insight *domain.SprintInsight) error

	// UpsertAll upserts every insight in one transaction so that readers
	// never observe a partially regenerated report.
	UpsertAll(ctx context.Context, insights []*domain.SprintInsight) error

	// ListBySprint returns the stored insights of a sprint ordered by
	// category. A sprint without insights yields an empty slice.
	ListBySprint(ctx context.Context, sprintID int64) ([]*domain.SprintInsight, error)
}
