package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"app/models"

	"github.com/jackc/pgx/v4/pgxpool"
)

// SalesRepository reads daily sales aggregates from the sales table.
// merchant_id is the tenant.
type SalesRepository struct {
	db *pgxpool.Pool
}

func NewSalesRepository(db *pgxpool.Pool) *SalesRepository {
	return &SalesRepository{db: db}
}

// aggregateExpr maps a metric to the per-day SQL aggregate over total_amount.
func aggregateExpr(metric models.MetricType) (string, error) {
	switch metric {
	case models.MetricRevenue:
		return "COALESCE(SUM(total_amount), 0)::float8", nil
	case models.MetricTransactions:
		return "COUNT(*)::float8", nil
	case models.MetricAverageTicket:
		return "COALESCE(AVG(total_amount), 0)::float8", nil
	}
	return "", fmt.Errorf("unsupported metric type %q", metric)
}

// dailyAggregateQuery builds the grouped query. Days without sales produce no row.
// Sales are bucketed by sale_date, the time of the sale, not created_at, which
// is the sync time for sales recorded offline.
func dailyAggregateQuery(metric models.MetricType) (string, error) {
	expr, err := aggregateExpr(metric)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		SELECT DATE(sale_date) AS sale_day, %s AS value
		FROM sales
		WHERE merchant_id = $1 AND sale_date >= $2
		GROUP BY DATE(sale_date)
		ORDER BY sale_day ASC
	`, expr), nil
}

// DailyAggregates implements forecast.TrendSource.
func (r *SalesRepository) DailyAggregates(ctx context.Context, tenantID string, metric models.MetricType, since time.Time) ([]models.TrendPoint, error) {
	query, err := dailyAggregateQuery(metric)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, tenantID, since)
	if err != nil {
		log.Printf("❌ [SALES REPOSITORY] Daily %s query failed for merchant %s: %v", metric, tenantID, err)
		return nil, err
	}
	defer rows.Close()

	points := make([]models.TrendPoint, 0, 90)
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// ListActiveMerchantIDs returns every tenant a scheduled forecast run should cover.
func (r *SalesRepository) ListActiveMerchantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text FROM users
		WHERE role = 'merchant' AND is_active = true
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
