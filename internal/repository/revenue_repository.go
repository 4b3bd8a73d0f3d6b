package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// RevenueRepository aggregates transactions into daily revenue rows.
type RevenueRepository interface {
	AggregateDay(ctx context.Context, day time.Time) (*domain.RevenueAnalytics, error)
	Upsert(ctx context.Context, analytics *domain.RevenueAnalytics) error
	ListRange(ctx context.Context, from, to time.Time) ([]domain.RevenueAnalytics, error)
	RecordTransaction(ctx context.Context, tx *domain.Transaction) error
}

type revenueRepository struct {
	pool *pgxpool.Pool
}

// NewRevenueRepository builds repository.
func NewRevenueRepository(pool *pgxpool.Pool) RevenueRepository {
	return &revenueRepository{pool: pool}
}

// AggregateDay computes the rollup for the UTC calendar day containing day.
func (r *revenueRepository) AggregateDay(ctx context.Context, day time.Time) (*domain.RevenueAnalytics, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	result := &domain.RevenueAnalytics{
		AnalyticsDate: start,
		TimePeriod:    "daily",
		RevenueByType: map[string]float64{},
		RevenueByCity: map[string]float64{},
	}

	const totals = `
        SELECT
            COALESCE(SUM(amount) FILTER (WHERE status='completed' AND type<>'refund'), 0),
            COUNT(*) FILTER (WHERE status='completed' AND type<>'refund'),
            COALESCE(SUM(amount) FILTER (WHERE type='refund' OR status='refunded'), 0),
            COUNT(*) FILTER (WHERE type='refund' OR status='refunded'),
            COUNT(DISTINCT user_id) FILTER (WHERE status='completed' AND type<>'refund')
        FROM transactions WHERE created_at >= $1 AND created_at < $2`
	if err := r.pool.QueryRow(ctx, totals, start, end).Scan(
		&result.TotalRevenue,
		&result.TotalTransactions,
		&result.RefundsAmount,
		&result.RefundsCount,
		&result.ActivePayingUsers,
	); err != nil {
		return nil, err
	}

	const newPaying = `
        SELECT COUNT(*) FROM (
            SELECT user_id, MIN(created_at) AS first_paid FROM transactions
            WHERE status='completed' AND type<>'refund'
            GROUP BY user_id
        ) firsts WHERE first_paid >= $1 AND first_paid < $2`
	if err := r.pool.QueryRow(ctx, newPaying, start, end).Scan(&result.NewPayingUsers); err != nil {
		return nil, err
	}

	if err := r.sumBy(ctx, "type", start, end, result.RevenueByType); err != nil {
		return nil, err
	}
	if err := r.sumBy(ctx, "COALESCE(city, 'unknown')", start, end, result.RevenueByCity); err != nil {
		return nil, err
	}

	var signups int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM datifyy_users_login WHERE created_at >= $1 AND created_at < $2`,
		start, end).Scan(&signups); err != nil {
		return nil, err
	}

	if result.TotalTransactions > 0 {
		result.AverageTransactionValue = result.TotalRevenue / float64(result.TotalTransactions)
	}
	if signups > 0 {
		result.ConversionRate = float64(result.NewPayingUsers) / float64(signups) * 100
	}
	return result, nil
}

// sumBy groups completed revenue by a trusted column expression.
func (r *revenueRepository) sumBy(ctx context.Context, expr string, start, end time.Time, into map[string]float64) error {
	query := `SELECT ` + expr + `, SUM(amount) FROM transactions
        WHERE status='completed' AND type<>'refund' AND created_at >= $1 AND created_at < $2
        GROUP BY 1`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var amount float64
		if err := rows.Scan(&key, &amount); err != nil {
			return err
		}
		into[key] = amount
	}
	return rows.Err()
}

func (r *revenueRepository) Upsert(ctx context.Context, a *domain.RevenueAnalytics) error {
	const query = `
        INSERT INTO revenue_analytics (analytics_date, time_period, total_revenue, total_transactions,
            revenue_by_type, revenue_by_city, active_paying_users, new_paying_users, refunds_amount,
            refunds_count, average_transaction_value, conversion_rate, calculated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
        ON CONFLICT (analytics_date) DO UPDATE SET time_period=EXCLUDED.time_period,
            total_revenue=EXCLUDED.total_revenue, total_transactions=EXCLUDED.total_transactions,
            revenue_by_type=EXCLUDED.revenue_by_type, revenue_by_city=EXCLUDED.revenue_by_city,
            active_paying_users=EXCLUDED.active_paying_users, new_paying_users=EXCLUDED.new_paying_users,
            refunds_amount=EXCLUDED.refunds_amount, refunds_count=EXCLUDED.refunds_count,
            average_transaction_value=EXCLUDED.average_transaction_value,
            conversion_rate=EXCLUDED.conversion_rate, calculated_at=NOW()
        RETURNING id, calculated_at`
	return r.pool.QueryRow(ctx, query,
		a.AnalyticsDate,
		a.TimePeriod,
		a.TotalRevenue,
		a.TotalTransactions,
		a.RevenueByType,
		a.RevenueByCity,
		a.ActivePayingUsers,
		a.NewPayingUsers,
		a.RefundsAmount,
		a.RefundsCount,
		a.AverageTransactionValue,
		a.ConversionRate,
	).Scan(&a.ID, &a.CalculatedAt)
}

func (r *revenueRepository) ListRange(ctx context.Context, from, to time.Time) ([]domain.RevenueAnalytics, error) {
	const query = `
        SELECT id, analytics_date, time_period, total_revenue, total_transactions, revenue_by_type,
            revenue_by_city, active_paying_users, new_paying_users, refunds_amount, refunds_count,
            average_transaction_value, conversion_rate, calculated_at
        FROM revenue_analytics WHERE analytics_date BETWEEN $1::date AND $2::date
        ORDER BY analytics_date ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RevenueAnalytics
	for rows.Next() {
		var a domain.RevenueAnalytics
		if err := rows.Scan(
			&a.ID,
			&a.AnalyticsDate,
			&a.TimePeriod,
			&a.TotalRevenue,
			&a.TotalTransactions,
			&a.RevenueByType,
			&a.RevenueByCity,
			&a.ActivePayingUsers,
			&a.NewPayingUsers,
			&a.RefundsAmount,
			&a.RefundsCount,
			&a.AverageTransactionValue,
			&a.ConversionRate,
			&a.CalculatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *revenueRepository) RecordTransaction(ctx context.Context, t *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (user_id, amount, type, status, city)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, t.UserID, t.Amount, t.Type, t.Status, t.City).Scan(&t.ID, &t.CreatedAt)
}
