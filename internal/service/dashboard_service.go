package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/cache"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
)

const overviewCacheKey = "overview"

// OverviewCache is the slice of cache.JSONCache the dashboard needs.
type OverviewCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DashboardService aggregates platform-wide figures for the admin dashboard.
type DashboardService struct {
	metrics  repository.MetricsRepository
	cache    OverviewCache
	cacheTTL time.Duration
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// DashboardDependencies bundles collaborators.
type DashboardDependencies struct {
	MetricsRepo repository.MetricsRepository
	Cache       OverviewCache
	Logger      *zap.Logger
	Now         func() time.Time
}

// UserOverview counts end users.
type UserOverview struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	NewToday    int `json:"new_today"`
	NewThisWeek int `json:"new_this_week"`
	Verified    int `json:"verified"`
	Banned      int `json:"banned"`
}

// DateOverview counts curated dates.
type DateOverview struct {
	Total          int     `json:"total"`
	Upcoming       int     `json:"upcoming"`
	Completed      int     `json:"completed"`
	Cancelled      int     `json:"cancelled"`
	CompletionRate float64 `json:"completion_rate"`
}

// WaitlistOverview counts waitlist entries.
type WaitlistOverview struct {
	Total   int `json:"total"`
	Invited int `json:"invited"`
}

// RevenueOverview sums completed transactions.
type RevenueOverview struct {
	Today   float64 `json:"today"`
	Month   float64 `json:"month"`
	Total   float64 `json:"total"`
	Refunds float64 `json:"refunds"`
}

// AlertOverview lists figures that need admin attention.
type AlertOverview struct {
	AdminsLocked        int `json:"admins_locked"`
	FailedNotifications int `json:"failed_notifications"`
}

// DashboardOverview is the dashboard landing payload.
type DashboardOverview struct {
	Users       UserOverview     `json:"users"`
	Dates       DateOverview     `json:"dates"`
	Waitlist    WaitlistOverview `json:"waitlist"`
	Revenue     RevenueOverview  `json:"revenue"`
	Alerts      AlertOverview    `json:"alerts"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// NewDashboardService builds the service.
func NewDashboardService(cfg config.DashboardConfig, deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		metrics:  deps.MetricsRepo,
		cache:    deps.Cache,
		cacheTTL: cfg.OverviewCacheTTL,
		ttl:      cfg.MetricTTL,
		logger:   loggerOrNop(deps.Logger),
		now:      clockOrDefault(deps.Now),
	}
}

// Overview returns the dashboard summary and whether it came from the cache.
func (s *DashboardService) Overview(ctx context.Context) (*DashboardOverview, bool, error) {
	if s.cache != nil {
		var cached DashboardOverview
		err := s.cache.Get(ctx, overviewCacheKey, &cached)
		if err == nil {
			return &cached, true, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	values := make(map[string]float64, len(repository.MetricKeys()))
	for _, key := range repository.MetricKeys() {
		value, err := s.metrics.Compute(ctx, key)
		if err != nil {
			return nil, false, err
		}
		values[key] = value
	}
	overview := buildOverview(values, s.now())

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, overviewCacheKey, overview, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return overview, false, nil
}

// Metrics returns the stored metrics, recomputing any that expired or were never stored.
func (s *DashboardService) Metrics(ctx context.Context) ([]domain.DashboardMetric, error) {
	stored, err := s.metrics.List(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.DashboardMetric, len(stored))
	for _, m := range stored {
		byKey[m.Key] = m
	}

	now := s.now()
	result := make([]domain.DashboardMetric, 0, len(repository.MetricKeys()))
	for _, key := range repository.MetricKeys() {
		metric, ok := byKey[key]
		if !ok || metric.Expired(now) {
			fresh, err := s.recompute(ctx, key, now)
			if err != nil {
				return nil, err
			}
			metric = *fresh
		}
		result = append(result, metric)
	}
	return result, nil
}

// Refresh recomputes every metric and drops the cached overview.
func (s *DashboardService) Refresh(ctx context.Context) ([]domain.DashboardMetric, error) {
	now := s.now()
	result := make([]domain.DashboardMetric, 0, len(repository.MetricKeys()))
	for _, key := range repository.MetricKeys() {
		metric, err := s.recompute(ctx, key, now)
		if err != nil {
			return nil, err
		}
		result = append(result, *metric)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, overviewCacheKey); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}
	s.logger.Info("dashboard metrics refreshed", zap.Int("metrics", len(result)))
	return result, nil
}

func (s *DashboardService) recompute(ctx context.Context, key string, now time.Time) (*domain.DashboardMetric, error) {
	value, err := s.metrics.Compute(ctx, key)
	if err != nil {
		return nil, err
	}
	metric := &domain.DashboardMetric{
		Key:          key,
		Value:        value,
		CalculatedAt: now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.metrics.Upsert(ctx, metric); err != nil {
		return nil, err
	}
	return metric, nil
}

func buildOverview(v map[string]float64, now time.Time) *DashboardOverview {
	count := func(key string) int { return int(math.Round(v[key])) }
	overview := &DashboardOverview{
		Users: UserOverview{
			Total:       count(repository.MetricUsersTotal),
			Active:      count(repository.MetricUsersActive),
			NewToday:    count(repository.MetricUsersNewToday),
			NewThisWeek: count(repository.MetricUsersNewWeek),
			Verified:    count(repository.MetricUsersVerified),
			Banned:      count(repository.MetricUsersBanned),
		},
		Dates: DateOverview{
			Total:     count(repository.MetricDatesTotal),
			Upcoming:  count(repository.MetricDatesUpcoming),
			Completed: count(repository.MetricDatesCompleted),
			Cancelled: count(repository.MetricDatesCancelled),
		},
		Waitlist: WaitlistOverview{
			Total:   count(repository.MetricWaitlistTotal),
			Invited: count(repository.MetricWaitlistInvited),
		},
		Revenue: RevenueOverview{
			Today:   v[repository.MetricRevenueToday],
			Month:   v[repository.MetricRevenueMonth],
			Total:   v[repository.MetricRevenueTotal],
			Refunds: v[repository.MetricRevenueRefunds],
		},
		Alerts: AlertOverview{
			AdminsLocked:        count(repository.MetricAdminsLocked),
			FailedNotifications: count(repository.MetricFailedNotifications),
		},
		GeneratedAt: now,
	}
	if overview.Dates.Total > 0 {
		rate := float64(overview.Dates.Completed) / float64(overview.Dates.Total) * 100
		overview.Dates.CompletionRate = math.Round(rate*100) / 100
	}
	return overview
}
