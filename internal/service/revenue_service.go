package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
	"github.com/datifyy/datifyy-service/pkg/format"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

const (
	maxRecalculateDays = 92
	maxAnalyticsDays   = 366
	defaultRevenueDays = 30
)

// RevenueService serves revenue analytics built from the daily rollups.
type RevenueService struct {
	revenue repository.RevenueRepository
	logger  *zap.Logger
	now     func() time.Time
}

// RevenueDependencies bundles collaborators.
type RevenueDependencies struct {
	RevenueRepo repository.RevenueRepository
	Logger      *zap.Logger
	Now         func() time.Time
}

// DateRange is an inclusive span of UTC days. Nil ends take defaults.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// RecalculateInput selects the days to rebuild: a single Date or a From/To range.
type RecalculateInput struct {
	Date *time.Time
	From *time.Time
	To   *time.Time
}

// RevenueSummary totals the rollups of a range.
type RevenueSummary struct {
	From                    time.Time          `json:"from"`
	To                      time.Time          `json:"to"`
	Days                    int                `json:"days"`
	TotalRevenue            float64            `json:"total_revenue"`
	TotalTransactions       int                `json:"total_transactions"`
	RefundsAmount           float64            `json:"refunds_amount"`
	RefundsCount            int                `json:"refunds_count"`
	NetRevenue              float64            `json:"net_revenue"`
	AverageTransactionValue float64            `json:"average_transaction_value"`
	NewPayingUsers          int                `json:"new_paying_users"`
	AverageConversionRate   float64            `json:"average_conversion_rate"`
	RevenueByType           map[string]float64 `json:"revenue_by_type"`
	RevenueByCity           map[string]float64 `json:"revenue_by_city"`
	Formatted               map[string]string  `json:"formatted"`
}

// NewRevenueService builds the service.
func NewRevenueService(deps RevenueDependencies) *RevenueService {
	return &RevenueService{
		revenue: deps.RevenueRepo,
		logger:  loggerOrNop(deps.Logger),
		now:     clockOrDefault(deps.Now),
	}
}

// Analytics returns the daily rows of a range, the last 30 days by default.
func (s *RevenueService) Analytics(ctx context.Context, r DateRange) ([]domain.RevenueAnalytics, error) {
	from, to, err := s.resolveRange(r, maxAnalyticsDays)
	if err != nil {
		return nil, err
	}
	rows, err := s.revenue.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.RevenueAnalytics{}
	}
	return rows, nil
}

// Summary totals a range and adds formatted currency strings.
func (s *RevenueService) Summary(ctx context.Context, r DateRange) (*RevenueSummary, error) {
	from, to, err := s.resolveRange(r, maxAnalyticsDays)
	if err != nil {
		return nil, err
	}
	rows, err := s.revenue.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return summarize(from, to, rows), nil
}

// Recalculate rebuilds the daily rollups of one day or of a range of at most 92 days.
func (s *RevenueService) Recalculate(ctx context.Context, input RecalculateInput) ([]domain.RevenueAnalytics, error) {
	var from, to time.Time
	if input.Date != nil {
		from, to = truncateDay(*input.Date), truncateDay(*input.Date)
	} else {
		if input.From == nil || input.To == nil {
			return nil, apperrors.NewValidationError("provide date or both from and to", nil)
		}
		var err error
		from, to, err = s.resolveRange(DateRange{From: input.From, To: input.To}, maxRecalculateDays)
		if err != nil {
			return nil, err
		}
	}
	if to.After(truncateDay(s.now())) {
		return nil, apperrors.NewValidationError("cannot recalculate future days", map[string]any{"field": "to"})
	}

	var result []domain.RevenueAnalytics
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		analytics, err := s.revenue.AggregateDay(ctx, day)
		if err != nil {
			return nil, err
		}
		if err := s.revenue.Upsert(ctx, analytics); err != nil {
			return nil, err
		}
		result = append(result, *analytics)
	}
	s.logger.Info("revenue analytics recalculated",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("days", len(result)))
	return result, nil
}

func (s *RevenueService) resolveRange(r DateRange, maxDays int) (time.Time, time.Time, error) {
	to := truncateDay(s.now())
	if r.To != nil {
		to = truncateDay(*r.To)
	}
	from := to.AddDate(0, 0, -(defaultRevenueDays - 1))
	if r.From != nil {
		from = truncateDay(*r.From)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("from must not be after to", map[string]any{"field": "from"})
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxDays {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("date range is too long",
			map[string]any{"max_days": maxDays, "days": days})
	}
	return from, to, nil
}

func summarize(from, to time.Time, rows []domain.RevenueAnalytics) *RevenueSummary {
	summary := &RevenueSummary{
		From:          from,
		To:            to,
		Days:          int(to.Sub(from).Hours()/24) + 1,
		RevenueByType: map[string]float64{},
		RevenueByCity: map[string]float64{},
	}
	var conversion float64
	for _, row := range rows {
		summary.TotalRevenue += row.TotalRevenue
		summary.TotalTransactions += row.TotalTransactions
		summary.RefundsAmount += row.RefundsAmount
		summary.RefundsCount += row.RefundsCount
		summary.NewPayingUsers += row.NewPayingUsers
		conversion += row.ConversionRate
		for k, v := range row.RevenueByType {
			summary.RevenueByType[k] += v
		}
		for k, v := range row.RevenueByCity {
			summary.RevenueByCity[k] += v
		}
	}
	summary.NetRevenue = roundCents(summary.TotalRevenue - summary.RefundsAmount)
	if summary.TotalTransactions > 0 {
		summary.AverageTransactionValue = roundCents(summary.TotalRevenue / float64(summary.TotalTransactions))
	}
	if len(rows) > 0 {
		summary.AverageConversionRate = roundCents(conversion / float64(len(rows)))
	}
	summary.Formatted = map[string]string{
		"total_revenue":             format.Currency(summary.TotalRevenue),
		"refunds_amount":            format.Currency(summary.RefundsAmount),
		"net_revenue":               format.Currency(summary.NetRevenue),
		"average_transaction_value": format.Currency(summary.AverageTransactionValue),
		"average_conversion_rate":   format.Percentage(summary.AverageConversionRate),
		"total_transactions":        format.CompactNumber(float64(summary.TotalTransactions)),
	}
	return summary
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
