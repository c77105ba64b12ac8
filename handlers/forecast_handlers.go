package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"app/forecast"
	"app/middleware"
	"app/models"

	"github.com/gofiber/fiber/v2"
)

// ForecastService is the set of forecast operations the handlers call.
type ForecastService interface {
	GenerateForecast(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, error)
	ForecastWithTrends(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, []models.TrendPoint, error)
	PersistForecast(ctx context.Context, tenantID string, metric models.MetricType, result *models.ForecastResult) (int, error)
	GetForecast(ctx context.Context, tenantID string, metric models.MetricType, daysAhead int) (*models.ForecastResult, error)
	HistoricalTrends(ctx context.Context, tenantID string, metric models.MetricType, days int) ([]models.TrendPoint, error)
}

// InsightGenerator turns a computed forecast into a written analysis.
type InsightGenerator interface {
	Summarize(ctx context.Context, metric models.MetricType, trends []models.TrendPoint, result *models.ForecastResult) (*models.AiAnalysis, error)
}

// ForecastHandlers serves the sales forecast endpoints. insights may be nil.
type ForecastHandlers struct {
	service  ForecastService
	insights InsightGenerator
}

func NewForecastHandlers(service ForecastService, insights InsightGenerator) *ForecastHandlers {
	return &ForecastHandlers{service: service, insights: insights}
}

// GenerateForecastInput defines the optional body of a generate request.
type GenerateForecastInput struct {
	DaysAhead      *int  `json:"daysAhead"`
	HistoricalDays *int  `json:"historicalDays"`
	Persist        *bool `json:"persist"`
}

// HandleGenerateForecast runs a forecast and optionally stores it.
// POST /api/v1/merchant/forecasts/:metric
func (h *ForecastHandlers) HandleGenerateForecast(c *fiber.Ctx) error {
	ctx := c.UserContext()
	tenantID := middleware.TenantID(c)
	metric, _ := models.ParseMetricType(c.Params("metric"))

	daysAhead := c.QueryInt("daysAhead", 0)
	historicalDays := c.QueryInt("historicalDays", 0)
	persist := c.QueryBool("persist", false)

	if len(c.Body()) > 0 {
		var input GenerateForecastInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request body"})
		}
		if input.DaysAhead != nil {
			daysAhead = *input.DaysAhead
		}
		if input.HistoricalDays != nil {
			historicalDays = *input.HistoricalDays
		}
		if input.Persist != nil {
			persist = *input.Persist
		}
	}

	log.Printf("📊 [FORECAST HANDLER] Generate - Tenant: %s, Metric: %s, DaysAhead: %d, HistoricalDays: %d, Persist: %t",
		tenantID, metric, daysAhead, historicalDays, persist)

	result, err := h.service.GenerateForecast(ctx, tenantID, metric, daysAhead, historicalDays)
	if err != nil {
		return forecastError(c, err, "Failed to generate forecast")
	}

	if !persist {
		return c.JSON(fiber.Map{"status": "success", "data": result})
	}

	stored, err := h.service.PersistForecast(ctx, tenantID, metric, result)
	if err != nil {
		return forecastError(c, err, "Failed to store forecast")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": result, "storedPoints": stored})
}

// HandleGetForecast returns the forecast stored today.
// GET /api/v1/merchant/forecasts/:metric
func (h *ForecastHandlers) HandleGetForecast(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)
	metric, _ := models.ParseMetricType(c.Params("metric"))
	daysAhead := c.QueryInt("daysAhead", 0)

	result, err := h.service.GetForecast(c.UserContext(), tenantID, metric, daysAhead)
	if err != nil {
		return forecastError(c, err, "Failed to retrieve forecast")
	}
	if result == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "No forecast has been generated today for this metric"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": result})
}

// HandleGetTrends returns the daily history a forecast is fitted on.
// GET /api/v1/merchant/forecasts/:metric/trends
func (h *ForecastHandlers) HandleGetTrends(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)
	metric, _ := models.ParseMetricType(c.Params("metric"))
	days := c.QueryInt("days", forecast.DefaultHistoricalDays)

	trends, err := h.service.HistoricalTrends(c.UserContext(), tenantID, metric, days)
	if err != nil {
		return forecastError(c, err, "Failed to retrieve sales trends")
	}
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{
		"metricType": metric,
		"days":       days,
		"points":     trends,
	}})
}

// HandleGetForecastInsights generates a forecast and asks the AI service to explain it.
// POST /api/v1/merchant/forecasts/:metric/insights
func (h *ForecastHandlers) HandleGetForecastInsights(c *fiber.Ctx) error {
	if h.insights == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "error", "message": "AI insights are not configured"})
	}

	ctx := c.UserContext()
	tenantID := middleware.TenantID(c)
	metric, _ := models.ParseMetricType(c.Params("metric"))
	daysAhead := c.QueryInt("daysAhead", 7)
	historicalDays := c.QueryInt("historicalDays", 0)

	result, trends, err := h.service.ForecastWithTrends(ctx, tenantID, metric, daysAhead, historicalDays)
	if err != nil {
		return forecastError(c, err, "Failed to generate forecast")
	}

	analysis, err := h.insights.Summarize(ctx, metric, trends, result)
	if err != nil {
		log.Printf("❌ [FORECAST HANDLER] Insights failed for tenant %s: %v", tenantID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"status": "error", "message": "Failed to generate forecast insights"})
	}

	response := models.ForecastInsightResponse{
		ReportName:  "Sales Forecast Insights",
		GeneratedAt: time.Now(),
		MetricType:  metric,
		Forecast:    result,
		AiAnalysis:  *analysis,
	}
	if n := len(result.Forecasts); n > 0 {
		response.ForecastPeriod = models.ForecastPeriod{
			StartDate: result.Forecasts[0].PredictedDate,
			EndDate:   result.Forecasts[n-1].PredictedDate,
		}
	}
	return c.JSON(fiber.Map{"status": "success", "data": response})
}

// forecastError maps forecast errors onto distinct, actionable responses.
func forecastError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, forecast.ErrInvalidMetric),
		errors.Is(err, forecast.ErrMissingTenant),
		errors.Is(err, forecast.ErrInvalidWindow):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": err.Error()})
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, forecast.ErrDegenerateRegression):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"status": "error", "message": err.Error()})
	}
	log.Printf("❌ [FORECAST HANDLER] %s: %v", fallback, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": fallback})
}
