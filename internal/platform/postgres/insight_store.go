package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
	"github.com/phrazzld/sprint-insights/internal/store"
)

const (
	upsertInsightQuery = `
		INSERT INTO sprint_insights (sprint_id, category, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sprint_id, category)
		DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
	`

	listInsightsQuery = `
		SELECT sprint_id, category, content, created_at, updated_at
		FROM sprint_insights
		WHERE sprint_id = $1
		ORDER BY category
	`
)

// PostgresInsightStore implements store.InsightStore.
type PostgresInsightStore struct {
	db store.DBTX
}

var _ store.InsightStore = (*PostgresInsightStore)(nil)

// NewPostgresInsightStore creates a store running its queries on db, which
// may be a *sql.DB or a *sql.Tx.
func NewPostgresInsightStore(db store.DBTX) *PostgresInsightStore {
	return &PostgresInsightStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *PostgresInsightStore) WithTx(tx *sql.Tx) *PostgresInsightStore {
	return &PostgresInsightStore{db: tx}
}

// Upsert inserts insight or overwrites the content of the existing
// (sprint_id, category) row. created_at of an existing row is preserved.
func (s *PostgresInsightStore) Upsert(ctx context.Context, insight *domain.SprintInsight) error {
	log := logger.FromContext(ctx)

	if insight == nil {
		return fmt.Errorf("%w: insight cannot be nil", store.ErrInvalidEntity)
	}
	if err := insight.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	createdAt := insight.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := insight.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.ExecContext(ctx, upsertInsightQuery,
		insight.SprintID,
		string(insight.Category),
		insight.Content,
		createdAt,
		updatedAt,
	)
	if err != nil {
		log.Error("failed to upsert sprint insight",
			"sprint_id", insight.SprintID,
			"category", string(insight.Category),
			"error", err)
		return store.NewStoreError("sprint_insight", "upsert", "query failed", MapError(err))
	}

	log.Debug("sprint insight upserted",
		"sprint_id", insight.SprintID,
		"category", string(insight.Category),
		"content_length", len(insight.Content))
	return nil
}

// UpsertAll upserts insights atomically. On a *sql.DB it opens its own
// transaction; on a *sql.Tx it joins the caller's.
func (s *PostgresInsightStore) UpsertAll(ctx context.Context, insights []*domain.SprintInsight) error {
	if len(insights) == 0 {
		return nil
	}

	db, ok := s.db.(*sql.DB)
	if !ok {
		return s.upsertEach(ctx, insights)
	}

	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return s.WithTx(tx).upsertEach(ctx, insights)
	})
}

func (s *PostgresInsightStore) upsertEach(ctx context.Context, insights []*domain.SprintInsight) error {
	for _, insight := range insights {
		if err := s.Upsert(ctx, insight); err != nil {
			return err
		}
	}
	return nil
}

// ListBySprint returns the insights of sprintID ordered by category.
func (s *PostgresInsightStore) ListBySprint(ctx context.Context, sprintID int64) ([]*domain.SprintInsight, error) {
	if sprintID <= 0 {
		return nil, fmt.Errorf("%w: sprint ID must be positive", store.ErrInvalidEntity)
	}

	rows, err := s.db.QueryContext(ctx, listInsightsQuery, sprintID)
	if err != nil {
		return nil, store.NewStoreError("sprint_insight", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	insights := make([]*domain.SprintInsight, 0, len(domain.AllCategories()))
	for rows.Next() {
		var (
			insight  domain.SprintInsight
			category string
		)
		if err := rows.Scan(
			&insight.SprintID,
			&category,
			&insight.Content,
			&insight.CreatedAt,
			&insight.UpdatedAt,
		); err != nil {
			return nil, store.NewStoreError("sprint_insight", "list", "scan failed", MapError(err))
		}
		insight.Category = domain.InsightCategory(category)
		insights = append(insights, &insight)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("sprint_insight", "list", "row iteration failed", MapError(err))
	}

	return insights, nil
}
