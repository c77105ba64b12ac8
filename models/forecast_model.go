package models

import (
	"encoding/json"
	"strings"
	"time"
)

// MetricType identifies which daily sales aggregate a forecast is built on.
type MetricType string

const (
	MetricRevenue       MetricType = "revenue"
	MetricTransactions  MetricType = "transactions"
	MetricAverageTicket MetricType = "average_ticket"
)

// AlgorithmLinearRegression is the tag stored with every linear regression forecast.
const AlgorithmLinearRegression = "linear_regression"

var ValidMetricTypes = map[MetricType]bool{
	MetricRevenue:       true,
	MetricTransactions:  true,
	MetricAverageTicket: true,
}

// AllMetricTypes lists the supported metrics in a stable order.
func AllMetricTypes() []MetricType {
	return []MetricType{MetricRevenue, MetricTransactions, MetricAverageTicket}
}

// ParseMetricType normalizes a metric string and reports whether it is supported.
func ParseMetricType(s string) (MetricType, bool) {
	m := MetricType(strings.ToLower(strings.TrimSpace(s)))
	return m, ValidMetricTypes[m]
}

// IsValid reports whether m is one of the supported metrics.
func (m MetricType) IsValid() bool {
	return ValidMetricTypes[m]
}

// TrendPoint is one day's aggregated metric value. Days without sales have no point.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (p TrendPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}{p.Date.Format(DateLayout), p.Value})
}

// RegressionModel is a fitted least-squares line over positional x values.
type RegressionModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

// Predict returns the fitted value at position x.
func (m RegressionModel) Predict(x float64) float64 {
	return m.Slope*x + m.Intercept
}

// ForecastPoint is the prediction for a single future day.
type ForecastPoint struct {
	PredictedDate   time.Time `json:"predicted_date"`
	PredictedValue  float64   `json:"predicted_value"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
}

// MarshalJSON renders the predicted date as YYYY-MM-DD.
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PredictedDate   string  `json:"predicted_date"`
		PredictedValue  float64 `json:"predicted_value"`
		ConfidenceLower float64 `json:"confidence_lower"`
		ConfidenceUpper float64 `json:"confidence_upper"`
	}{p.PredictedDate.Format(DateLayout), p.PredictedValue, p.ConfidenceLower, p.ConfidenceUpper})
}

// ForecastResult is the output of a single forecast run.
type ForecastResult struct {
	Forecasts          []ForecastPoint `json:"forecasts"`
	RSquared           float64         `json:"r_squared"`
	Algorithm          string          `json:"algorithm"`
	HistoricalDaysUsed int             `json:"historical_days_used"`
}

// StoredForecast is one persisted forecast row.
// Unique on (tenant_id, forecast_date, predicted_date, metric_type, algorithm).
type StoredForecast struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	ForecastDate    time.Time  `json:"forecast_date"`
	PredictedDate   time.Time  `json:"predicted_date"`
	MetricType      MetricType `json:"metric_type"`
	Algorithm       string     `json:"algorithm"`
	PredictedValue  float64    `json:"predicted_value"`
	ConfidenceLower float64    `json:"confidence_lower"`
	ConfidenceUpper float64    `json:"confidence_upper"`
	RSquared        float64    `json:"r_squared"`
	AlgorithmParams JSONB      `json:"algorithm_params"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HistoricalDaysUsed reads historical_days_used back out of the algorithm params.
// JSON numbers decode as float64, values set in Go stay int.
func (s StoredForecast) HistoricalDaysUsed() int {
	switch v := s.AlgorithmParams["historical_days_used"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"
