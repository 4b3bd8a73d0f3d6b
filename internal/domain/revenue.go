package domain

import "time"

// TransactionType classifies a payment.
type TransactionType string

const (
	TransactionTokenPurchase TransactionType = "token_purchase"
	TransactionSubscription  TransactionType = "subscription"
	TransactionDateFee       TransactionType = "date_fee"
	TransactionRefund        TransactionType = "refund"
)

// TransactionStatus is the settlement state of a payment.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is a single payment made by a user.
type Transaction struct {
	ID        string
	UserID    string
	Amount    float64
	Type      TransactionType
	Status    TransactionStatus
	City      *string
	CreatedAt time.Time
}

// RevenueAnalytics is the precomputed revenue rollup for one day.
type RevenueAnalytics struct {
	ID                      string
	AnalyticsDate           time.Time
	TimePeriod              string
	TotalRevenue            float64
	TotalTransactions       int
	RevenueByType           map[string]float64
	RevenueByCity           map[string]float64
	ActivePayingUsers       int
	NewPayingUsers          int
	RefundsAmount           float64
	RefundsCount            int
	AverageTransactionValue float64
	ConversionRate          float64
	CalculatedAt            time.Time
}

// DashboardMetric is a cached aggregate figure with an expiry.
type DashboardMetric struct {
	Key          string
	Value        float64
	CalculatedAt time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the metric must be recalculated.
func (m DashboardMetric) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}
