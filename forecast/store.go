package forecast

import (
	"context"
	"sort"
	"sync"
	"time"

	"app/models"

	"github.com/google/uuid"
)

// Store persists forecast rows keyed by
// (tenant_id, forecast_date, predicted_date, metric_type, algorithm).
type Store interface {
	// UpsertForecasts writes every row, overwriting values of rows whose key already exists.
	UpsertForecasts(ctx context.Context, rows []models.StoredForecast) error
	// ListForecasts returns the tenant's rows for one forecast date whose
	// predicted date lies in [from, to], ascending by predicted date.
	ListForecasts(ctx context.Context, tenantID string, metric models.MetricType, forecastDate, from, to time.Time) ([]models.StoredForecast, error)
}

type forecastKey struct {
	tenantID      string
	forecastDate  string
	predictedDate string
	metric        models.MetricType
	algorithm     string
}

func keyOf(row models.StoredForecast) forecastKey {
	return forecastKey{
		tenantID:      row.TenantID,
		forecastDate:  row.ForecastDate.Format(models.DateLayout),
		predictedDate: row.PredictedDate.Format(models.DateLayout),
		metric:        row.MetricType,
		algorithm:     row.Algorithm,
	}
}

// MemoryStore is an in-process Store, used by tests and the CLI dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[forecastKey]models.StoredForecast
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[forecastKey]models.StoredForecast), now: time.Now}
}

func (s *MemoryStore) UpsertForecasts(ctx context.Context, rows []models.StoredForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	for _, row := range rows {
		k := keyOf(row)
		if existing, ok := s.rows[k]; ok {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
		} else {
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			row.CreatedAt = ts
		}
		row.UpdatedAt = ts
		s.rows[k] = row
	}
	return nil
}

func (s *MemoryStore) ListForecasts(ctx context.Context, tenantID string, metric models.MetricType, forecastDate, from, to time.Time) ([]models.StoredForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := forecastDate.Format(models.DateLayout)
	lo, hi := from.Format(models.DateLayout), to.Format(models.DateLayout)

	var out []models.StoredForecast
	for k, row := range s.rows {
		if k.tenantID != tenantID || k.metric != metric || k.forecastDate != day {
			continue
		}
		if k.predictedDate < lo || k.predictedDate > hi {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PredictedDate.Before(out[j].PredictedDate)
	})
	return out, nil
}

// Len reports the number of stored rows across all tenants.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
