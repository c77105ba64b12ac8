package forecast

import "errors"

// MinHistoricalPoints is the fewest trend points a forecast will be fitted on.
const MinHistoricalPoints = 7

var (
	// ErrInvalidMetric is returned before any data access when the metric is not supported.
	ErrInvalidMetric = errors.New("invalid metric type: must be one of revenue, transactions, average_ticket")

	// ErrInsufficientData is returned when fewer than MinHistoricalPoints days have sales.
	ErrInsufficientData = errors.New("insufficient historical data: at least 7 days of sales are required to generate a forecast")

	// ErrDegenerateRegression is returned when a series cannot be fitted: fewer
	// than 2 points, a non-finite value, or a fit that overflows float64.
	ErrDegenerateRegression = errors.New("degenerate regression: the sales series cannot be fitted")

	ErrMissingTenant = errors.New("tenant id is required")
	ErrInvalidWindow = errors.New("invalid forecast window")
)
