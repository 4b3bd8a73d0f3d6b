package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/datifyy/datifyy-service/internal/cache"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
	"github.com/datifyy/datifyy-service/internal/service"
	"github.com/datifyy/datifyy-service/pkg/format"
)

type memMetrics struct {
	mu       sync.Mutex
	values   map[string]float64
	stored   map[string]domain.DashboardMetric
	computed int
}

func newMemMetrics(values map[string]float64) *memMetrics {
	return &memMetrics{values: values, stored: map[string]domain.DashboardMetric{}}
}

func (m *memMetrics) Compute(_ context.Context, key string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.computed++
	return m.values[key], nil
}

func (m *memMetrics) Upsert(_ context.Context, metric *domain.DashboardMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored[metric.Key] = *metric
	return nil
}

func (m *memMetrics) List(context.Context) ([]domain.DashboardMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DashboardMetric, 0, len(m.stored))
	for _, metric := range m.stored {
		out = append(out, metric)
	}
	return out, nil
}

// memCache stores JSON like the Redis-backed cache does.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func TestDashboardOverviewIsCached(t *testing.T) {
	clk := newClock()
	metrics := newMemMetrics(map[string]float64{
		repository.MetricUsersTotal:     120,
		repository.MetricUsersBanned:    2,
		repository.MetricDatesTotal:     3,
		repository.MetricDatesCompleted: 1,
		repository.MetricRevenueMonth:   4999.5,
		repository.MetricAdminsLocked:   1,
	})
	store := &memCache{entries: map[string][]byte{}}
	svc := service.NewDashboardService(config.DashboardConfig{OverviewCacheTTL: time.Minute, MetricTTL: time.Hour},
		service.DashboardDependencies{MetricsRepo: metrics, Cache: store, Now: clk.Now})
	ctx := context.Background()

	overview, cached, err := svc.Overview(ctx)
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, 120, overview.Users.Total)
	require.Equal(t, 2, overview.Users.Banned)
	require.Equal(t, 33.33, overview.Dates.CompletionRate)
	require.Equal(t, 4999.5, overview.Revenue.Month)
	require.Equal(t, 1, overview.Alerts.AdminsLocked)
	computed := metrics.computed

	again, cached, err := svc.Overview(ctx)
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, overview.Users, again.Users)
	require.Equal(t, computed, metrics.computed)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	_, cached, err = svc.Overview(ctx)
	require.NoError(t, err)
	require.False(t, cached, "refresh drops the cached overview")
}

func TestDashboardMetricsRecomputeExpired(t *testing.T) {
	clk := newClock()
	metrics := newMemMetrics(map[string]float64{repository.MetricWaitlistTotal: 7})
	svc := service.NewDashboardService(config.DashboardConfig{MetricTTL: time.Hour},
		service.DashboardDependencies{MetricsRepo: metrics, Now: clk.Now})
	ctx := context.Background()

	first, err := svc.Metrics(ctx)
	require.NoError(t, err)
	require.Len(t, first, len(repository.MetricKeys()))
	require.Equal(t, len(repository.MetricKeys()), metrics.computed)

	_, err = svc.Metrics(ctx)
	require.NoError(t, err)
	require.Equal(t, len(repository.MetricKeys()), metrics.computed, "fresh metrics are served from storage")

	clk.Advance(2 * time.Hour)
	metrics.values[repository.MetricWaitlistTotal] = 9
	refreshed, err := svc.Metrics(ctx)
	require.NoError(t, err)
	require.Equal(t, 2*len(repository.MetricKeys()), metrics.computed)
	for _, m := range refreshed {
		require.Equal(t, clk.Now().Add(time.Hour), m.ExpiresAt)
		if m.Key == repository.MetricWaitlistTotal {
			require.Equal(t, 9.0, m.Value)
		}
	}
}

type memRevenue struct {
	mu   sync.Mutex
	rows map[time.Time]domain.RevenueAnalytics
	agg  func(day time.Time) domain.RevenueAnalytics
}

func (m *memRevenue) AggregateDay(_ context.Context, day time.Time) (*domain.RevenueAnalytics, error) {
	row := m.agg(day)
	row.AnalyticsDate = day
	return &row, nil
}

func (m *memRevenue) Upsert(_ context.Context, analytics *domain.RevenueAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[analytics.AnalyticsDate] = *analytics
	return nil
}

func (m *memRevenue) ListRange(_ context.Context, from, to time.Time) ([]domain.RevenueAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RevenueAnalytics
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if row, ok := m.rows[day]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memRevenue) RecordTransaction(context.Context, *domain.Transaction) error { return nil }

func TestRevenueRecalculateAndSummarize(t *testing.T) {
	clk := newClock()
	repo := &memRevenue{
		rows: map[time.Time]domain.RevenueAnalytics{},
		agg: func(time.Time) domain.RevenueAnalytics {
			return domain.RevenueAnalytics{
				TotalRevenue:      1000,
				TotalTransactions: 4,
				RefundsAmount:     100,
				RefundsCount:      1,
				NewPayingUsers:    2,
				ConversionRate:    12.5,
				RevenueByType:     map[string]float64{"date_booking": 1000},
				RevenueByCity:     map[string]float64{"Bengaluru": 600, "Pune": 400},
			}
		},
	}
	svc := service.NewRevenueService(service.RevenueDependencies{RevenueRepo: repo, Now: clk.Now})
	ctx := context.Background()

	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -2)
	rows, err := svc.Recalculate(ctx, service.RecalculateInput{From: &from, To: &today})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	summary, err := svc.Summary(ctx, service.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 30, summary.Days)
	require.Equal(t, today, summary.To)
	require.Equal(t, 3000.0, summary.TotalRevenue)
	require.Equal(t, 12, summary.TotalTransactions)
	require.Equal(t, 2700.0, summary.NetRevenue)
	require.Equal(t, 250.0, summary.AverageTransactionValue)
	require.Equal(t, 12.5, summary.AverageConversionRate)
	require.Equal(t, 1800.0, summary.RevenueByCity["Bengaluru"])
	require.Equal(t, format.Currency(2700), summary.Formatted["net_revenue"])

	analytics, err := svc.Analytics(ctx, service.DateRange{From: &today, To: &today})
	require.NoError(t, err)
	require.Len(t, analytics, 1)
}

func TestRevenueRangeValidation(t *testing.T) {
	clk := newClock()
	svc := service.NewRevenueService(service.RevenueDependencies{
		RevenueRepo: &memRevenue{rows: map[time.Time]domain.RevenueAnalytics{}, agg: func(time.Time) domain.RevenueAnalytics {
			return domain.RevenueAnalytics{}
		}},
		Now: clk.Now,
	})
	ctx := context.Background()
	now := clk.Now()
	tomorrow := now.AddDate(0, 0, 1)
	longAgo := now.AddDate(-2, 0, 0)
	quarterAgo := now.AddDate(0, 0, -100)

	_, err := svc.Summary(ctx, service.DateRange{From: &tomorrow, To: &now})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Analytics(ctx, service.DateRange{From: &longAgo})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Recalculate(ctx, service.RecalculateInput{})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Recalculate(ctx, service.RecalculateInput{From: &quarterAgo, To: &now})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Recalculate(ctx, service.RecalculateInput{Date: &tomorrow})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	yesterday := now.AddDate(0, 0, -1)
	_, err = svc.Recalculate(ctx, service.RecalculateInput{From: &yesterday, To: &tomorrow})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err), "a range reaching into the future is rejected")

	single, err := svc.Recalculate(ctx, service.RecalculateInput{Date: &now})
	require.NoError(t, err)
	require.Len(t, single, 1)
}
