package main

import (
	"app/config"
	"app/database"
	"app/forecast"
	"app/handlers"
	"app/insights"
	"app/middleware"
	"app/routes"
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	middleware.JWTSecret = []byte(cfg.JWTSecret)

	// Initialize database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	salesRepo := database.NewSalesRepository(pool)
	forecastRepo := database.NewForecastRepository(pool)
	if err := forecastRepo.EnsureTableExists(ctx); err != nil {
		log.Fatalf("❌ Failed to prepare forecast table: %v", err)
	}

	service := forecast.NewService(salesRepo, forecastRepo, cfg.Now)

	var summarizer handlers.InsightGenerator
	if cfg.GeminiAPIKey != "" {
		summarizer = insights.NewGeminiSummarizer(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		log.Println("⚠️ GEMINI_API_KEY is not set, forecast insights are disabled")
	}

	app := fiber.New()

	// Recover from panics in handlers
	app.Use(recover.New())

	// Add CORS middleware
	app.Use(cors.New())

	// Setup routes
	routes.SetupRoutes(app, handlers.NewForecastHandlers(service, summarizer))

	// Start server
	log.Fatal(app.Listen(fmt.Sprintf(":%d", cfg.Port)))
}
