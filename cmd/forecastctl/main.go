// forecastctl runs sales forecasts outside the HTTP server.
//
// Usage:
//
//	forecastctl generate --tenant <merchant-id> --metric revenue [--days-ahead 14] [--persist]
//	forecastctl show --tenant <merchant-id> --metric transactions [--days-ahead 7]
//	forecastctl run-all [--days-ahead 14] [--historical-days 180]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"app/config"
	"app/database"
	"app/forecast"
	"app/models"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "forecastctl",
		Usage:   "Generate and inspect per-merchant sales forecasts",
		Version: version,
		Commands: []*cli.Command{
			generateCommand(),
			showCommand(),
			runAllCommand(),
		},
	}
}

var (
	daysAheadFlag = &cli.IntFlag{
		Name:  "days-ahead",
		Usage: "Number of future days to forecast (0 uses the default of 30)",
	}
	historicalDaysFlag = &cli.IntFlag{
		Name:  "historical-days",
		Usage: "Lookback window in days (0 uses the default of 90)",
	}
	tenantFlag = &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    "Merchant id whose sales are forecast",
		Required: true,
	}
	metricFlag = &cli.StringFlag{
		Name:    "metric",
		Aliases: []string{"m"},
		Value:   string(models.MetricRevenue),
		Usage:   "Metric to forecast (revenue, transactions, average_ticket)",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the result as JSON",
	}
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Fit a forecast for one merchant and metric",
		Flags: []cli.Flag{
			tenantFlag,
			metricFlag,
			daysAheadFlag,
			historicalDaysFlag,
			jsonFlag,
			&cli.BoolFlag{
				Name:  "persist",
				Usage: "Store the forecast, replacing today's run for the same metric",
			},
		},
		Action: runGenerate,
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:   "show",
		Usage:  "Print the forecast stored today for one merchant and metric",
		Flags:  []cli.Flag{tenantFlag, metricFlag, daysAheadFlag, jsonFlag},
		Action: runShow,
	}
}

func runAllCommand() *cli.Command {
	return &cli.Command{
		Name:   "run-all",
		Usage:  "Generate and store every metric for every active merchant",
		Flags:  []cli.Flag{daysAheadFlag, historicalDaysFlag},
		Action: runAll,
	}
}

func parseMetric(s string) (models.MetricType, error) {
	metric, ok := models.ParseMetricType(s)
	if !ok {
		return "", forecast.ErrInvalidMetric
	}
	return metric, nil
}

// openService connects to the database and returns a service backed by it.
func openService(ctx context.Context) (*forecast.Service, *database.SalesRepository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	sales := database.NewSalesRepository(pool)
	store := database.NewForecastRepository(pool)
	if err := store.EnsureTableExists(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to prepare forecast table: %w", err)
	}
	return forecast.NewService(sales, store, cfg.Now), sales, nil
}

func runGenerate(c *cli.Context) error {
	ctx := context.Background()
	metric, err := parseMetric(c.String("metric"))
	if err != nil {
		return err
	}

	svc, _, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	tenant := c.String("tenant")
	result, err := svc.GenerateForecast(ctx, tenant, metric, c.Int("days-ahead"), c.Int("historical-days"))
	if err != nil {
		return err
	}

	if c.Bool("persist") {
		stored, err := svc.PersistForecast(ctx, tenant, metric, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "💾 Stored %d forecast points\n", stored)
	}
	return printResult(os.Stdout, metric, result, c.Bool("json"))
}

func runShow(c *cli.Context) error {
	ctx := context.Background()
	metric, err := parseMetric(c.String("metric"))
	if err != nil {
		return err
	}

	svc, _, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := svc.GetForecast(ctx, c.String("tenant"), metric, c.Int("days-ahead"))
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("no %s forecast has been stored today for %s", metric, c.String("tenant"))
	}
	return printResult(os.Stdout, metric, result, c.Bool("json"))
}

func runAll(c *cli.Context) error {
	ctx := context.Background()
	svc, sales, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	tenants, err := sales.ListActiveMerchantIDs(ctx)
	if err != nil {
		return err
	}

	report := sweep(ctx, svc, tenants, models.AllMetricTypes(), c.Int("days-ahead"), c.Int("historical-days"))
	fmt.Fprintf(os.Stderr, "✅ %d forecasts stored, %d skipped for lack of history, %d failed\n",
		report.Stored, report.Skipped, len(report.Failed))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d forecasts failed", len(report.Failed))
	}
	return nil
}

// forecaster is the part of forecast.Service the sweep needs.
type forecaster interface {
	GenerateForecast(ctx context.Context, tenantID string, metric models.MetricType, daysAhead, historicalDays int) (*models.ForecastResult, error)
	PersistForecast(ctx context.Context, tenantID string, metric models.MetricType, result *models.ForecastResult) (int, error)
}

type sweepReport struct {
	Stored  int
	Skipped int
	Failed  []error
}

// sweep forecasts and stores every tenant/metric pair. Tenants without enough
// history are skipped; any other failure is recorded and the sweep carries on.
func sweep(ctx context.Context, svc forecaster, tenants []string, metrics []models.MetricType, daysAhead, historicalDays int) sweepReport {
	var report sweepReport
	for _, tenant := range tenants {
		for _, metric := range metrics {
			result, err := svc.GenerateForecast(ctx, tenant, metric, daysAhead, historicalDays)
			if errors.Is(err, forecast.ErrInsufficientData) {
				report.Skipped++
				continue
			}
			if err == nil {
				_, err = svc.PersistForecast(ctx, tenant, metric, result)
			}
			if err != nil {
				log.Printf("❌ [FORECASTCTL] %s/%s: %v", tenant, metric, err)
				report.Failed = append(report.Failed, fmt.Errorf("%s/%s: %w", tenant, metric, err))
				continue
			}
			report.Stored++
		}
	}
	return report
}

func printResult(w io.Writer, metric models.MetricType, result *models.ForecastResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "%s forecast (%s, r²=%.4f, %d days of history)\n",
		metric, result.Algorithm, result.RSquared, result.HistoricalDaysUsed)
	for _, p := range result.Forecasts {
		fmt.Fprintf(w, "%s  %12.2f  [%.2f, %.2f]\n",
			p.PredictedDate.Format(models.DateLayout), p.PredictedValue, p.ConfidenceLower, p.ConfidenceUpper)
	}
	return nil
}
