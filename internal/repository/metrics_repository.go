package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// Dashboard metric keys.
const (
	MetricUsersTotal          = "users.total"
	MetricUsersActive         = "users.active"
	MetricUsersNewToday       = "users.new_today"
	MetricUsersNewWeek        = "users.new_week"
	MetricUsersVerified       = "users.verified"
	MetricUsersBanned         = "users.banned"
	MetricDatesTotal          = "dates.total"
	MetricDatesUpcoming       = "dates.upcoming"
	MetricDatesCompleted      = "dates.completed"
	MetricDatesCancelled      = "dates.cancelled"
	MetricWaitlistTotal       = "waitlist.total"
	MetricWaitlistInvited     = "waitlist.invited"
	MetricRevenueToday        = "revenue.today"
	MetricRevenueMonth        = "revenue.month"
	MetricRevenueTotal        = "revenue.total"
	MetricRevenueRefunds      = "revenue.refunds"
	MetricAdminsLocked        = "alerts.admins_locked"
	MetricFailedNotifications = "alerts.failed_notifications"
)

var metricQueries = map[string]string{
	MetricUsersTotal:    `SELECT COUNT(*) FROM datifyy_users_login`,
	MetricUsersActive:   `SELECT COUNT(*) FROM datifyy_users_login WHERE account_status='active' AND is_active`,
	MetricUsersNewToday: `SELECT COUNT(*) FROM datifyy_users_login WHERE created_at >= date_trunc('day', NOW())`,
	MetricUsersNewWeek:  `SELECT COUNT(*) FROM datifyy_users_login WHERE created_at >= NOW() - INTERVAL '7 days'`,
	MetricUsersVerified: `SELECT COUNT(*) FROM datifyy_users_login WHERE is_verified`,
	MetricUsersBanned:   `SELECT COUNT(*) FROM datifyy_users_login WHERE account_status='banned'`,
	MetricDatesTotal:    `SELECT COUNT(*) FROM curated_dates`,
	MetricDatesUpcoming: `SELECT COUNT(*) FROM curated_dates WHERE date_time > NOW()
        AND status::text IN ('pending','user1_confirmed','user2_confirmed','both_confirmed')`,
	MetricDatesCompleted:  `SELECT COUNT(*) FROM curated_dates WHERE status::text='completed'`,
	MetricDatesCancelled:  `SELECT COUNT(*) FROM curated_dates WHERE status::text='cancelled'`,
	MetricWaitlistTotal:   `SELECT COUNT(*) FROM waitlist`,
	MetricWaitlistInvited: `SELECT COUNT(*) FROM waitlist WHERE status='invited'`,
	MetricRevenueToday: `SELECT COALESCE(SUM(amount), 0) FROM transactions
        WHERE status='completed' AND type<>'refund' AND created_at >= date_trunc('day', NOW())`,
	MetricRevenueMonth: `SELECT COALESCE(SUM(amount), 0) FROM transactions
        WHERE status='completed' AND type<>'refund' AND created_at >= date_trunc('month', NOW())`,
	MetricRevenueTotal: `SELECT COALESCE(SUM(amount), 0) FROM transactions
        WHERE status='completed' AND type<>'refund'`,
	MetricRevenueRefunds: `SELECT COALESCE(SUM(amount), 0) FROM transactions
        WHERE type='refund' OR status='refunded'`,
	MetricAdminsLocked:        `SELECT COUNT(*) FROM datifyy_admin_users WHERE locked_at IS NOT NULL AND lock_expires_at > NOW()`,
	MetricFailedNotifications: `SELECT COUNT(*) FROM admin_notifications WHERE status='failed'`,
}

// MetricKeys lists every metric the dashboard can compute, sorted.
func MetricKeys() []string {
	keys := make([]string, 0, len(metricQueries))
	for key := range metricQueries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MetricsRepository computes and stores dashboard metrics.
type MetricsRepository interface {
	Compute(ctx context.Context, key string) (float64, error)
	Upsert(ctx context.Context, metric *domain.DashboardMetric) error
	List(ctx context.Context) ([]domain.DashboardMetric, error)
}

type metricsRepository struct {
	pool *pgxpool.Pool
}

// NewMetricsRepository builds repository.
func NewMetricsRepository(pool *pgxpool.Pool) MetricsRepository {
	return &metricsRepository{pool: pool}
}

func (r *metricsRepository) Compute(ctx context.Context, key string) (float64, error) {
	query, ok := metricQueries[key]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", key)
	}
	var value float64
	err := r.pool.QueryRow(ctx, `SELECT (`+query+`)::double precision`).Scan(&value)
	return value, err
}

func (r *metricsRepository) Upsert(ctx context.Context, metric *domain.DashboardMetric) error {
	const query = `
        INSERT INTO dashboard_metrics (metric_key, metric_value, calculated_at, expires_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (metric_key) DO UPDATE SET metric_value=EXCLUDED.metric_value,
            calculated_at=EXCLUDED.calculated_at, expires_at=EXCLUDED.expires_at`
	_, err := r.pool.Exec(ctx, query, metric.Key, metric.Value, metric.CalculatedAt, metric.ExpiresAt)
	return err
}

func (r *metricsRepository) List(ctx context.Context) ([]domain.DashboardMetric, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT metric_key, metric_value, calculated_at, expires_at FROM dashboard_metrics ORDER BY metric_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DashboardMetric
	for rows.Next() {
		var m domain.DashboardMetric
		if err := rows.Scan(&m.Key, &m.Value, &m.CalculatedAt, &m.ExpiresAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
