package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/store"
)

var (
	upsertPattern = regexp.QuoteMeta("INSERT INTO sprint_insights (sprint_id, category, content, created_at, updated_at)")
	listPattern   = regexp.QuoteMeta("SELECT sprint_id, category, content, created_at, updated_at")
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func mustInsight(t *testing.T, sprintID int64, category domain.InsightCategory, content string) *domain.SprintInsight {
	t.Helper()
	insight, err := domain.NewSprintInsight(sprintID, category, content)
	require.NoError(t, err)
	return insight
}

func TestPostgresInsightStore_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)
	insight := mustInsight(t, 10, domain.CategoryBacklog, "Backlog shrank by 20%.")

	mock.ExpectExec(upsertPattern).
		WithArgs(int64(10), "Backlog", "Backlog shrank by 20%.", insight.CreatedAt, insight.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Upsert(context.Background(), insight))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsightStore_UpsertRejectsInvalid(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	err := s.Upsert(context.Background(), nil)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	err = s.Upsert(context.Background(), &domain.SprintInsight{SprintID: 1, Category: domain.CategoryBacklog})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	assert.NoError(t, mock.ExpectationsWereMet(), "no query should run for invalid insights")
}

func TestPostgresInsightStore_UpsertMapsErrors(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	mock.ExpectExec(upsertPattern).
		WillReturnError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "sprint_insights_sprint_id_check"})

	err := s.Upsert(context.Background(), mustInsight(t, 3, domain.CategoryContributions, "text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	var storeErr *store.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "upsert", storeErr.Operation)
}

func TestPostgresInsightStore_UpsertAllUsesTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	insights := []*domain.SprintInsight{
		mustInsight(t, 7, domain.CategoryBacklog, "a"),
		mustInsight(t, 7, domain.CategoryContributions, "b"),
		mustInsight(t, 7, domain.CategoryAgileCeremony, "c"),
	}

	mock.ExpectBegin()
	for _, in := range insights {
		mock.ExpectExec(upsertPattern).
			WithArgs(int64(7), string(in.Category), in.Content, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, s.UpsertAll(context.Background(), insights))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsightStore_UpsertAllRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	insights := []*domain.SprintInsight{
		mustInsight(t, 7, domain.CategoryBacklog, "a"),
		mustInsight(t, 7, domain.CategoryContributions, "b"),
	}

	mock.ExpectBegin()
	mock.ExpectExec(upsertPattern).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertPattern).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.UpsertAll(context.Background(), insights)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsightStore_UpsertAllEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	require.NoError(t, s.UpsertAll(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsightStore_ListBySprint(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"sprint_id", "category", "content", "created_at", "updated_at"}).
		AddRow(int64(4), "Agile ceremonies", "Retros ran long.", created, updated).
		AddRow(int64(4), "Backlog", "Backlog grew.", created, created)

	mock.ExpectQuery(listPattern).WithArgs(int64(4)).WillReturnRows(rows)

	insights, err := s.ListBySprint(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, insights, 2)

	assert.Equal(t, domain.CategoryAgileCeremony, insights[0].Category)
	assert.Equal(t, "Retros ran long.", insights[0].Content)
	assert.Equal(t, updated, insights[0].UpdatedAt)
	assert.Equal(t, domain.CategoryBacklog, insights[1].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsightStore_ListBySprintEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	mock.ExpectQuery(listPattern).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"sprint_id", "category", "content", "created_at", "updated_at"}))

	insights, err := s.ListBySprint(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, insights)
	assert.Empty(t, insights)
}

func TestPostgresInsightStore_ListBySprintErrors(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresInsightStore(db)

	_, err := s.ListBySprint(context.Background(), 0)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	mock.ExpectQuery(listPattern).WillReturnError(&pgconn.PgError{Code: connectionFailureCode})
	_, err = s.ListBySprint(context.Background(), 5)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
