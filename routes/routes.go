package routes

import (
	"app/handlers"
	"app/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App, forecasts *handlers.ForecastHandlers) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "success", "message": "ok"})
	})

	// --- Merchant Routes ---
	merchant := api.Group("/merchant", middleware.JWTMiddleware, middleware.MerchantRequired)
	registerForecastRoutes(merchant.Group("/forecasts"), middleware.MerchantTenant, forecasts)

	// --- Admin Routes ---
	// Admins look at any merchant's forecasts through the merchant id in the path.
	admin := api.Group("/admin", middleware.JWTMiddleware, middleware.AdminRequired)
	registerForecastRoutes(admin.Group("/merchants/:merchantId/forecasts"), middleware.AdminTenant, forecasts)
}

// registerForecastRoutes mounts the forecast endpoints; tenant resolves whose data they touch.
func registerForecastRoutes(group fiber.Router, tenant fiber.Handler, h *handlers.ForecastHandlers) {
	group.Get("/:metric/trends", tenant, h.HandleGetTrends) // Must be before /:metric
	group.Post("/:metric/insights", tenant, h.HandleGetForecastInsights)
	group.Post("/:metric", tenant, h.HandleGenerateForecast)
	group.Get("/:metric", tenant, h.HandleGetForecast)
}
