package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitatrack/health-sync/internal/model"
)

func newMetricRepo(t *testing.T) (*HealthMetricRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHealthMetricRepo(db), mock
}

func ptrI64(v int64) *int64 { return &v }

func TestMetricUpsert_OmittedFieldsAreNull(t *testing.T) {
	repo, mock := newMetricRepo(t)

	// Steps present, everything else omitted: the statement must carry
	// NULLs so a re-sync overwrites stale values instead of keeping them.
	mock.ExpectExec("INSERT INTO health_metrics").
		WithArgs(uint64(7), "2024-01-01", ptrI64(5000), nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), model.HealthMetric{
		UserID:     7,
		MetricDate: "2024-01-01",
		Steps:      ptrI64(5000),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricQueryRange_ArgBuilding(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		repo, mock := newMetricRepo(t)
		mock.ExpectQuery("FROM health_metrics WHERE user_id=. AND metric_date>=. AND metric_date<=.").
			WithArgs(uint64(7), "2024-01-01", "2024-01-31", 30).
			WillReturnRows(metricRows())
		_, err := repo.QueryRange(context.Background(), 7, "2024-01-01", "2024-01-31", 30)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no bounds", func(t *testing.T) {
		repo, mock := newMetricRepo(t)
		mock.ExpectQuery("FROM health_metrics WHERE user_id=. ORDER BY metric_date DESC").
			WithArgs(uint64(7), 30).
			WillReturnRows(metricRows())
		_, err := repo.QueryRange(context.Background(), 7, "", "", 30)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("start only", func(t *testing.T) {
		repo, mock := newMetricRepo(t)
		mock.ExpectQuery("FROM health_metrics WHERE user_id=. AND metric_date>=. ORDER BY").
			WithArgs(uint64(7), "2024-01-01", 10).
			WillReturnRows(metricRows())
		_, err := repo.QueryRange(context.Background(), 7, "2024-01-01", "", 10)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func metricRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "metric_date", "steps", "heart_rate",
		"sleep_hours", "calories", "created_at", "updated_at"}).
		AddRow(1, 7, "2024-01-15", 5000, nil, 7.5, nil, now, now)
}

func TestMetricQueryRange_NullableScan(t *testing.T) {
	repo, mock := newMetricRepo(t)

	mock.ExpectQuery("FROM health_metrics WHERE").
		WillReturnRows(metricRows())

	out, err := repo.QueryRange(context.Background(), 7, "", "", 30)
	require.NoError(t, err)
	require.Len(t, out, 1)
	m := out[0]
	assert.Equal(t, "2024-01-15", m.MetricDate)
	require.NotNil(t, m.Steps)
	assert.EqualValues(t, 5000, *m.Steps)
	assert.Nil(t, m.HeartRate)
	require.NotNil(t, m.SleepHours)
	assert.Equal(t, 7.5, *m.SleepHours)
	assert.Nil(t, m.Calories)
}
