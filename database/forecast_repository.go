package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"app/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

const forecastTableSchema = `
	CREATE TABLE IF NOT EXISTS sales_forecasts (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		forecast_date DATE NOT NULL,
		predicted_date DATE NOT NULL,
		metric_type TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		predicted_value NUMERIC(14, 2) NOT NULL,
		confidence_lower NUMERIC(14, 2) NOT NULL,
		confidence_upper NUMERIC(14, 2) NOT NULL,
		r_squared DOUBLE PRECISION NOT NULL,
		algorithm_params JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_sales_forecasts_cohort_day
			UNIQUE (tenant_id, forecast_date, predicted_date, metric_type, algorithm)
	);
	CREATE INDEX IF NOT EXISTS idx_sales_forecasts_lookup
		ON sales_forecasts (tenant_id, metric_type, forecast_date, predicted_date);
`

const upsertForecastQuery = `
	INSERT INTO sales_forecasts
		(id, tenant_id, forecast_date, predicted_date, metric_type, algorithm,
		 predicted_value, confidence_lower, confidence_upper, r_squared, algorithm_params)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (tenant_id, forecast_date, predicted_date, metric_type, algorithm)
	DO UPDATE SET
		predicted_value = EXCLUDED.predicted_value,
		confidence_lower = EXCLUDED.confidence_lower,
		confidence_upper = EXCLUDED.confidence_upper,
		r_squared = EXCLUDED.r_squared,
		algorithm_params = EXCLUDED.algorithm_params,
		updated_at = NOW()
`

const listForecastsQuery = `
	SELECT id::text, tenant_id, forecast_date, predicted_date, metric_type, algorithm,
	       predicted_value::float8, confidence_lower::float8, confidence_upper::float8,
	       r_squared, algorithm_params::text, created_at, updated_at
	FROM sales_forecasts
	WHERE tenant_id = $1 AND metric_type = $2 AND forecast_date = $3
	  AND predicted_date BETWEEN $4 AND $5
	ORDER BY predicted_date ASC
`

// ForecastRepository is the Postgres implementation of forecast.Store.
type ForecastRepository struct {
	db *pgxpool.Pool
}

func NewForecastRepository(db *pgxpool.Pool) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// EnsureTableExists creates the forecast table and its unique key when missing.
func (r *ForecastRepository) EnsureTableExists(ctx context.Context) error {
	_, err := r.db.Exec(ctx, forecastTableSchema)
	return err
}

// UpsertForecasts writes the batch in one transaction.
func (r *ForecastRepository) UpsertForecasts(ctx context.Context, rows []models.StoredForecast) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		params := row.AlgorithmParams
		if params == nil {
			params = models.JSONB{}
		}
		if _, err := tx.Exec(ctx, upsertForecastQuery,
			id, row.TenantID, sqlDate(row.ForecastDate), sqlDate(row.PredictedDate),
			string(row.MetricType), row.Algorithm,
			row.PredictedValue, row.ConfidenceLower, row.ConfidenceUpper, row.RSquared, params,
		); err != nil {
			log.Printf("❌ [FORECAST REPOSITORY] Upsert failed for tenant %s, %s on %s: %v",
				row.TenantID, row.MetricType, row.PredictedDate.Format(models.DateLayout), err)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListForecasts returns one cohort's rows whose predicted date is in [from, to].
func (r *ForecastRepository) ListForecasts(ctx context.Context, tenantID string, metric models.MetricType, forecastDate, from, to time.Time) ([]models.StoredForecast, error) {
	rows, err := r.db.Query(ctx, listForecastsQuery,
		tenantID, string(metric), sqlDate(forecastDate), sqlDate(from), sqlDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredForecast
	for rows.Next() {
		var f models.StoredForecast
		var metricType, params string
		if err := rows.Scan(
			&f.ID, &f.TenantID, &f.ForecastDate, &f.PredictedDate, &metricType, &f.Algorithm,
			&f.PredictedValue, &f.ConfidenceLower, &f.ConfidenceUpper,
			&f.RSquared, &params, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := f.AlgorithmParams.Scan(params); err != nil {
			return nil, fmt.Errorf("invalid algorithm_params for forecast %s: %w", f.ID, err)
		}
		f.MetricType = models.MetricType(metricType)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// sqlDate drops the clock and zone so a DATE parameter is the calendar day the caller sees.
func sqlDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
