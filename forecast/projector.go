package forecast

import (
	"context"
	"fmt"
	"time"

	"app/models"
	"app/utils"
)

const (
	DefaultDaysAhead  = 30
	MaxDaysAhead      = 365
	MaxHistoricalDays = 730

	// ConfidenceZ is the two-sided 95% normal multiplier applied to the standard error.
	ConfidenceZ = 1.96
)

// Projector extrapolates a fitted trend line into future days.
type Projector struct {
	trends *TrendExtractor
	now    func() time.Time
}

func NewProjector(trends *TrendExtractor, now func() time.Time) *Projector {
	if now == nil {
		now = time.Now
	}
	return &Projector{trends: trends, now: now}
}

// LinearRegressionForecast fits the tenant's metric history and projects it
// daysAhead days from today. Either the full result or an error is returned.
func (p *Projector) LinearRegressionForecast(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, error) {
	result, _, err := p.ForecastWithTrends(ctx, tenantID, metric, daysAhead, historicalDays)
	return result, err
}

// ForecastWithTrends is LinearRegressionForecast that also returns the series
// the model was fitted on, read once.
func (p *Projector) ForecastWithTrends(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, []models.TrendPoint, error) {
	if daysAhead == 0 {
		daysAhead = DefaultDaysAhead
	}
	if daysAhead < 0 || daysAhead > MaxDaysAhead {
		return nil, nil, fmt.Errorf("%w: days ahead must be between 1 and %d, got %d", ErrInvalidWindow, MaxDaysAhead, daysAhead)
	}

	trends, err := p.trends.GetHistoricalTrends(ctx, tenantID, metric, historicalDays)
	if err != nil {
		return nil, nil, err
	}
	if len(trends) < MinHistoricalPoints {
		return nil, nil, fmt.Errorf("%w (found %d)", ErrInsufficientData, len(trends))
	}

	model, err := Fit(trends)
	if err != nil {
		return nil, nil, err
	}

	points := Project(model, trends, StartOfDay(p.now()), daysAhead)
	for _, pt := range points {
		if !isFinite(pt.PredictedValue) || !isFinite(pt.ConfidenceUpper) {
			return nil, nil, fmt.Errorf("%w: projection for %s overflowed",
				ErrDegenerateRegression, pt.PredictedDate.Format(models.DateLayout))
		}
	}

	return &models.ForecastResult{
		Forecasts:          points,
		RSquared:           model.RSquared,
		Algorithm:          models.AlgorithmLinearRegression,
		HistoricalDaysUsed: len(trends),
	}, trends, nil
}

// Project extends the model past the fitted series. Day i lands on today+i at
// position n+i; the confidence band is ±1.96 standard errors for every day.
func Project(model models.RegressionModel, trends []models.TrendPoint, today time.Time, daysAhead int) []models.ForecastPoint {
	n := len(trends)
	halfWidth := ConfidenceZ * StandardError(model, trends)

	points := make([]models.ForecastPoint, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		predicted := model.Predict(float64(n + i))
		points = append(points, models.ForecastPoint{
			PredictedDate:   today.AddDate(0, 0, i),
			PredictedValue:  utils.RoundMoney(utils.FloorZero(predicted)),
			ConfidenceLower: utils.RoundMoney(utils.FloorZero(predicted - halfWidth)),
			ConfidenceUpper: utils.RoundMoney(predicted + halfWidth),
		})
	}
	return points
}
