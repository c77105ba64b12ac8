package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"app/models"
)

// DefaultHistoricalDays is the lookback window used when none is given.
const DefaultHistoricalDays = 90

// TrendSource returns per-day aggregates of a tenant's sales created on or after since,
// ascending by date. Days without sales must be omitted, not zero-filled.
type TrendSource interface {
	DailyAggregates(ctx context.Context, tenantID string, metric models.MetricType, since time.Time) ([]models.TrendPoint, error)
}

// TrendExtractor reads a tenant's daily metric history over a lookback window.
type TrendExtractor struct {
	source TrendSource
	now    func() time.Time
}

func NewTrendExtractor(source TrendSource, now func() time.Time) *TrendExtractor {
	if now == nil {
		now = time.Now
	}
	return &TrendExtractor{source: source, now: now}
}

// GetHistoricalTrends returns the trend series for the last days days.
// The metric and tenant are validated before the source is touched.
func (e *TrendExtractor) GetHistoricalTrends(ctx context.Context, tenantID string, metric models.MetricType, days int) ([]models.TrendPoint, error) {
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if days == 0 {
		days = DefaultHistoricalDays
	}
	if days < 0 || days > MaxHistoricalDays {
		return nil, fmt.Errorf("%w: historical days must be between 1 and %d, got %d", ErrInvalidWindow, MaxHistoricalDays, days)
	}

	since := StartOfDay(e.now()).AddDate(0, 0, -days)
	points, err := e.source.DailyAggregates(ctx, tenantID, metric, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s trends: %w", metric, err)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
