package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"app/models"

	"github.com/google/uuid"
)

// Service exposes the forecast operations used by the HTTP handlers and the CLI.
// It holds no per-request state; every call is driven by its arguments.
type Service struct {
	trends    *TrendExtractor
	projector *Projector
	store     Store
	now       func() time.Time
}

// NewService wires a trend source and an optional store. now may be nil.
func NewService(source TrendSource, store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	trends := NewTrendExtractor(source, now)
	return &Service{
		trends:    trends,
		projector: NewProjector(trends, now),
		store:     store,
		now:       now,
	}
}

// HistoricalTrends returns the trend series a forecast would be fitted on.
func (s *Service) HistoricalTrends(ctx context.Context, tenantID string, metric models.MetricType, days int) ([]models.TrendPoint, error) {
	return s.trends.GetHistoricalTrends(ctx, tenantID, metric, days)
}

// GenerateForecast runs a linear regression forecast. Zero values for
// daysAhead and historicalDays select the defaults (30 and 90).
func (s *Service) GenerateForecast(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, error) {
	result, _, err := s.ForecastWithTrends(ctx, tenantID, metric, daysAhead, historicalDays)
	return result, err
}

// ForecastWithTrends is GenerateForecast that also returns the trend series
// the forecast was fitted on.
func (s *Service) ForecastWithTrends(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, []models.TrendPoint, error) {
	result, trends, err := s.projector.ForecastWithTrends(ctx, tenantID, metric, daysAhead, historicalDays)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientData):
			log.Printf("⚠️ [FORECAST] Tenant %s metric %s: %v", tenantID, metric, err)
		case errors.Is(err, ErrDegenerateRegression):
			log.Printf("❌ [FORECAST] Tenant %s metric %s: %v", tenantID, metric, err)
		}
		return nil, nil, err
	}

	log.Printf("📈 [FORECAST] Tenant %s metric %s: %d points from %d days of history, r²=%.4f",
		tenantID, metric, len(result.Forecasts), result.HistoricalDaysUsed, result.RSquared)
	return result, trends, nil
}

// PersistForecast upserts one row per forecast point into today's cohort and
// returns the number of points written.
func (s *Service) PersistForecast(ctx context.Context, tenantID string, metric models.MetricType, result *models.ForecastResult) (int, error) {
	if s.store == nil {
		return 0, errors.New("forecast store is not configured")
	}
	if !metric.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}
	if tenantID == "" {
		return 0, ErrMissingTenant
	}
	if result == nil || len(result.Forecasts) == 0 {
		return 0, nil
	}

	algorithm := result.Algorithm
	if algorithm == "" {
		algorithm = models.AlgorithmLinearRegression
	}

	today := StartOfDay(s.now())
	runID := uuid.NewString()
	rows := make([]models.StoredForecast, 0, len(result.Forecasts))
	for _, p := range result.Forecasts {
		rows = append(rows, models.StoredForecast{
			TenantID:        tenantID,
			ForecastDate:    today,
			PredictedDate:   StartOfDay(p.PredictedDate),
			MetricType:      metric,
			Algorithm:       algorithm,
			PredictedValue:  p.PredictedValue,
			ConfidenceLower: p.ConfidenceLower,
			ConfidenceUpper: p.ConfidenceUpper,
			RSquared:        result.RSquared,
			AlgorithmParams: models.JSONB{
				"historical_days_used": result.HistoricalDaysUsed,
				"days_ahead":           len(result.Forecasts),
				"run_id":               runID,
			},
		})
	}

	if err := s.store.UpsertForecasts(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store %s forecast: %w", metric, err)
	}

	log.Printf("💾 [FORECAST] Tenant %s metric %s: stored %d points (run %s)", tenantID, metric, len(rows), runID)
	return len(rows), nil
}

// GetForecast returns today's stored forecast for the next daysAhead days.
// A nil result with a nil error means no forecast has been stored today.
func (s *Service) GetForecast(ctx context.Context, tenantID string, metric models.MetricType, daysAhead int) (*models.ForecastResult, error) {
	if s.store == nil {
		return nil, errors.New("forecast store is not configured")
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if daysAhead == 0 {
		daysAhead = DefaultDaysAhead
	}
	if daysAhead < 0 || daysAhead > MaxDaysAhead {
		return nil, fmt.Errorf("%w: days ahead must be between 1 and %d, got %d", ErrInvalidWindow, MaxDaysAhead, daysAhead)
	}

	today := StartOfDay(s.now())
	rows, err := s.store.ListForecasts(ctx, tenantID, metric, today, today, today.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s forecast: %w", metric, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Rows of one cohort share r² and algorithm.
	first := rows[0]
	result := &models.ForecastResult{
		Forecasts:          make([]models.ForecastPoint, 0, len(rows)),
		RSquared:           first.RSquared,
		Algorithm:          first.Algorithm,
		HistoricalDaysUsed: first.HistoricalDaysUsed(),
	}
	for _, row := range rows {
		result.Forecasts = append(result.Forecasts, models.ForecastPoint{
			PredictedDate:   row.PredictedDate,
			PredictedValue:  row.PredictedValue,
			ConfidenceLower: row.ConfidenceLower,
			ConfidenceUpper: row.ConfidenceUpper,
		})
	}
	return result, nil
}
