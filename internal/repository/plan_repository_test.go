package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printfleet/printfleet-api/internal/models"
)

func newPlanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPlanRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM plans")).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plans")).
		WithArgs(sqlmock.AnyArg(), 3, string(models.PlanStatusDraft), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.Plan{
		Meta:        types.JSONText(`{"cycleCount":4}`),
		GeneratedAt: time.Now().UTC(),
	}
	err := repo.CreateVersioned(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Version)
	assert.NotEmpty(t, payload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryListFiltersStatus(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	rows := sqlmock.NewRows([]string{"id", "version", "status", "meta", "generated_at", "created_at", "updated_at"}).
		AddRow("plan-1", 2, string(models.PlanStatusPublished), types.JSONText(`{}`), time.Now(), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, version, status, meta, generated_at, created_at, updated_at FROM plans WHERE 1=1 AND status = \\$1 ORDER BY version DESC").
		WithArgs(string(models.PlanStatusPublished)).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM plans WHERE 1=1 AND status = \\$1").
		WithArgs(string(models.PlanStatusPublished)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	plans, total, err := repo.List(context.Background(), string(models.PlanStatusPublished), 1, 20)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM plans WHERE id = $1")).
		WithArgs("plan-1").
		WillReturnResult(sqlmock.NewResult(1, 0))

	err := repo.Delete(context.Background(), "plan-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE plans SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(string(models.PlanStatusPublished), sqlmock.AnyArg(), "plan-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpdateStatus(context.Background(), nil, "plan-1", models.PlanStatusPublished, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
