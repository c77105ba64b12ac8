package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/forecast"
	"app/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

type stubSource struct {
	points []models.TrendPoint
	err    error
	calls  int
}

func (s *stubSource) DailyAggregates(ctx context.Context, tenantID string, metric models.MetricType, since time.Time) ([]models.TrendPoint, error) {
	s.calls++
	return s.points, s.err
}

type stubInsights struct {
	err    error
	trends []models.TrendPoint
}

func (s *stubInsights) Summarize(ctx context.Context, metric models.MetricType, trends []models.TrendPoint, result *models.ForecastResult) (*models.AiAnalysis, error) {
	s.trends = trends
	if s.err != nil {
		return nil, s.err
	}
	return &models.AiAnalysis{Summary: "Revenue grows by about 10 a day", PositiveFactors: []string{"steady growth"}}, nil
}

func weekOf(values ...float64) []models.TrendPoint {
	points := make([]models.TrendPoint, 0, len(values))
	for i, v := range values {
		points = append(points, models.TrendPoint{Date: today.AddDate(0, 0, i-len(values)), Value: v})
	}
	return points
}

type envelope struct {
	Status       string          `json:"status"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	StoredPoints int             `json:"storedPoints"`
}

type wireResult struct {
	Forecasts []struct {
		PredictedDate   string  `json:"predicted_date"`
		PredictedValue  float64 `json:"predicted_value"`
		ConfidenceLower float64 `json:"confidence_lower"`
		ConfidenceUpper float64 `json:"confidence_upper"`
	} `json:"forecasts"`
	RSquared           float64 `json:"r_squared"`
	Algorithm          string  `json:"algorithm"`
	HistoricalDaysUsed int     `json:"historical_days_used"`
}

func setupApp(source *stubSource, store *forecast.MemoryStore, insights InsightGenerator) *fiber.App {
	svc := forecast.NewService(source, store, func() time.Time { return today.Add(9 * time.Hour) })
	h := NewForecastHandlers(svc, insights)

	app := fiber.New()
	api := app.Group("/forecasts", func(c *fiber.Ctx) error {
		c.Locals("tenantID", "merchant-1")
		return c.Next()
	})
	api.Post("/:metric", h.HandleGenerateForecast)
	api.Get("/:metric", h.HandleGetForecast)
	api.Get("/:metric/trends", h.HandleGetTrends)
	api.Post("/:metric/insights", h.HandleGetForecastInsights)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestGenerateForecastEndpoint(t *testing.T) {
	source := &stubSource{points: weekOf(100, 110, 120, 130, 140, 150, 160)}
	app := setupApp(source, forecast.NewMemoryStore(), nil)

	status, env := do(t, app, http.MethodPost, "/forecasts/revenue?daysAhead=1&historicalDays=7", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	var result wireResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1.0, result.RSquared)
	assert.Equal(t, "linear_regression", result.Algorithm)
	assert.Equal(t, 7, result.HistoricalDaysUsed)
	require.Len(t, result.Forecasts, 1)
	assert.Equal(t, "2026-10-16", result.Forecasts[0].PredictedDate)
	assert.Equal(t, 170.0, result.Forecasts[0].PredictedValue)
	assert.Equal(t, 170.0, result.Forecasts[0].ConfidenceLower)
	assert.Equal(t, 170.0, result.Forecasts[0].ConfidenceUpper)
}

func TestGenerateAndPersistThenGet(t *testing.T) {
	source := &stubSource{points: weekOf(100, 110, 120, 130, 140, 150, 160)}
	store := forecast.NewMemoryStore()
	app := setupApp(source, store, nil)

	status, _ := do(t, app, http.MethodGet, "/forecasts/revenue", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, env := do(t, app, http.MethodPost, "/forecasts/revenue", `{"daysAhead":5,"persist":true}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 5, env.StoredPoints)

	// Same-day rerun overwrites instead of appending.
	status, _ = do(t, app, http.MethodPost, "/forecasts/revenue", `{"daysAhead":5,"persist":true}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 5, store.Len())

	status, env = do(t, app, http.MethodGet, "/forecasts/Revenue?daysAhead=5", "")
	require.Equal(t, http.StatusOK, status)

	var result wireResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Forecasts, 5)
	assert.Equal(t, "2026-10-16", result.Forecasts[0].PredictedDate)
	assert.Equal(t, 7, result.HistoricalDaysUsed)
}

func TestGenerateForecastErrors(t *testing.T) {
	cases := []struct {
		name    string
		source  *stubSource
		target  string
		body    string
		status  int
		message string
		reads   int
	}{
		{
			name:    "invalid metric",
			source:  &stubSource{points: weekOf(1, 2, 3, 4, 5, 6, 7)},
			target:  "/forecasts/bogus_metric",
			status:  http.StatusBadRequest,
			message: "invalid metric",
		},
		{
			name:    "insufficient data",
			source:  &stubSource{points: weekOf(1, 2, 3)},
			target:  "/forecasts/transactions?persist=true",
			status:  http.StatusUnprocessableEntity,
			message: "at least 7 days",
			reads:   1,
		},
		{
			name:    "unfittable series",
			source:  &stubSource{points: weekOf(1, 2, 3, math.NaN(), 5, 6, 7)},
			target:  "/forecasts/revenue?persist=true",
			status:  http.StatusUnprocessableEntity,
			message: "cannot be fitted",
			reads:   1,
		},
		{
			name:    "negative horizon",
			source:  &stubSource{points: weekOf(1, 2, 3, 4, 5, 6, 7)},
			target:  "/forecasts/revenue?daysAhead=-3",
			status:  http.StatusBadRequest,
			message: "invalid forecast window",
		},
		{
			name:    "malformed body",
			source:  &stubSource{points: weekOf(1, 2, 3, 4, 5, 6, 7)},
			target:  "/forecasts/revenue",
			body:    `{"daysAhead":`,
			status:  http.StatusBadRequest,
			message: "Invalid request body",
		},
		{
			name:    "data source failure",
			source:  &stubSource{err: errors.New("connection reset")},
			target:  "/forecasts/average_ticket",
			status:  http.StatusInternalServerError,
			message: "Failed to generate forecast",
			reads:   1,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := forecast.NewMemoryStore()
			app := setupApp(c.source, store, nil)

			status, env := do(t, app, http.MethodPost, c.target, c.body)
			assert.Equal(t, c.status, status)
			assert.Equal(t, "error", env.Status)
			assert.Contains(t, env.Message, c.message)
			assert.Equal(t, c.reads, c.source.calls)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestGetTrendsEndpoint(t *testing.T) {
	source := &stubSource{points: weekOf(5, 7, 9)}
	app := setupApp(source, forecast.NewMemoryStore(), nil)

	status, env := do(t, app, http.MethodGet, "/forecasts/transactions/trends?days=30", "")
	require.Equal(t, http.StatusOK, status)

	var data struct {
		MetricType string `json:"metricType"`
		Days       int    `json:"days"`
		Points     []struct {
			Date  string  `json:"date"`
			Value float64 `json:"value"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "transactions", data.MetricType)
	assert.Equal(t, 30, data.Days)
	require.Len(t, data.Points, 3)
	assert.Equal(t, "2026-10-12", data.Points[0].Date)
	assert.Equal(t, 9.0, data.Points[2].Value)
}

func TestInsightsEndpoint(t *testing.T) {
	points := weekOf(100, 110, 120, 130, 140, 150, 160)

	status, _ := do(t, setupApp(&stubSource{points: points}, forecast.NewMemoryStore(), nil),
		http.MethodPost, "/forecasts/revenue/insights", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = do(t, setupApp(&stubSource{points: points}, forecast.NewMemoryStore(), &stubInsights{err: errors.New("quota")}),
		http.MethodPost, "/forecasts/revenue/insights", "")
	assert.Equal(t, http.StatusBadGateway, status)

	source := &stubSource{points: points}
	insights := &stubInsights{}
	status, env := do(t, setupApp(source, forecast.NewMemoryStore(), insights),
		http.MethodPost, "/forecasts/revenue/insights", "")
	require.Equal(t, http.StatusOK, status)

	// The narrative is written over the same single read the model was fitted on.
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, points, insights.trends)

	var data struct {
		ReportName     string                `json:"reportName"`
		MetricType     models.MetricType     `json:"metricType"`
		ForecastPeriod models.ForecastPeriod `json:"forecastPeriod"`
		AiAnalysis     models.AiAnalysis     `json:"aiAnalysis"`
		Forecast       wireResult            `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Sales Forecast Insights", data.ReportName)
	assert.Equal(t, models.MetricRevenue, data.MetricType)
	assert.Equal(t, "Revenue grows by about 10 a day", data.AiAnalysis.Summary)
	assert.Equal(t, today.AddDate(0, 0, 1), data.ForecastPeriod.StartDate.UTC())
	assert.Equal(t, today.AddDate(0, 0, 7), data.ForecastPeriod.EndDate.UTC())
	assert.Len(t, data.Forecast.Forecasts, 7)
}
