package database

import (
	"context"
	"os"
	"testing"
	"time"

	"app/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepository connects to DATABASE_URL, or skips when it is not set.
func newTestRepository(t *testing.T) *ForecastRepository {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(Close)

	repo := NewForecastRepository(pool)
	require.NoError(t, repo.EnsureTableExists(ctx))
	return repo
}

func cohort(tenantID string, forecastDate time.Time, runID string, values ...float64) []models.StoredForecast {
	rows := make([]models.StoredForecast, 0, len(values))
	for i, v := range values {
		rows = append(rows, models.StoredForecast{
			TenantID:        tenantID,
			ForecastDate:    forecastDate,
			PredictedDate:   forecastDate.AddDate(0, 0, i+1),
			MetricType:      models.MetricRevenue,
			Algorithm:       models.AlgorithmLinearRegression,
			PredictedValue:  v,
			ConfidenceLower: v - 5,
			ConfidenceUpper: v + 5,
			RSquared:        0.9,
			AlgorithmParams: models.JSONB{"historical_days_used": 30, "run_id": runID},
		})
	}
	return rows
}

func TestForecastRepositoryUpsertRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tenantID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = repo.db.Exec(context.Background(), "DELETE FROM sales_forecasts WHERE tenant_id = $1", tenantID)
	})

	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertForecasts(ctx, cohort(tenantID, today, "first", 100, 110, 120)))
	require.NoError(t, repo.UpsertForecasts(ctx, cohort(tenantID, today, "second", 200, 210, 220)))

	rows, err := repo.ListForecasts(ctx, tenantID, models.MetricRevenue, today, today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for i, row := range rows {
		assert.Equal(t, today.AddDate(0, 0, i+1), row.PredictedDate.UTC())
		assert.Equal(t, 200+10*float64(i), row.PredictedValue)
		assert.Equal(t, "second", row.AlgorithmParams["run_id"])
		assert.Equal(t, 30, row.HistoricalDaysUsed())
		assert.Equal(t, models.MetricRevenue, row.MetricType)
		assert.NotEmpty(t, row.ID)
	}

	// A different forecast date is a separate cohort.
	rows, err = repo.ListForecasts(ctx, tenantID, models.MetricRevenue, today.AddDate(0, 0, 1), today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestForecastRepositoryListIsAscending(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tenantID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = repo.db.Exec(context.Background(), "DELETE FROM sales_forecasts WHERE tenant_id = $1", tenantID)
	})

	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	rows := cohort(tenantID, today, "run", 1, 2, 3, 4, 5)
	reversed := make([]models.StoredForecast, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		reversed = append(reversed, rows[i])
	}
	require.NoError(t, repo.UpsertForecasts(ctx, reversed))

	got, err := repo.ListForecasts(ctx, tenantID, models.MetricRevenue, today, today, today.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].PredictedDate.Before(got[i].PredictedDate))
	}
}
