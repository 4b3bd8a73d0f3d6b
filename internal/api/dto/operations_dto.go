package dto

import (
	"time"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// Envelope wraps every successful response.
type Envelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
}

// PageMetadata describes a paginated listing.
type PageMetadata struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageMetadata computes the page count.
func NewPageMetadata(page, limit, total int) PageMetadata {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageMetadata{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// WaitlistJoinRequest is the public pre-launch form.
type WaitlistJoinRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     *string  `json:"phone"`
	Source    *string  `json:"source"`
	City      *string  `json:"city"`
	Country   *string  `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// WaitlistEntryResponse is one waitlist row.
type WaitlistEntryResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Email     string                `json:"email"`
	Phone     *string               `json:"phone,omitempty"`
	Status    domain.WaitlistStatus `json:"status"`
	Source    *string               `json:"source,omitempty"`
	City      *string               `json:"city,omitempty"`
	Country   *string               `json:"country,omitempty"`
	Latitude  *float64              `json:"latitude,omitempty"`
	Longitude *float64              `json:"longitude,omitempty"`
	InvitedAt *time.Time            `json:"invited_at,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// NotificationRequest is a manual notification.
type NotificationRequest struct {
	Channel   domain.NotificationChannel  `json:"channel"`
	Priority  domain.NotificationPriority `json:"priority"`
	Recipient string                      `json:"recipient"`
	Subject   string                      `json:"subject"`
	Body      string                      `json:"body"`
	Metadata  map[string]any              `json:"metadata"`
}

// NotificationResponse is one notification.
type NotificationResponse struct {
	ID        string                      `json:"id"`
	Channel   domain.NotificationChannel  `json:"channel"`
	Trigger   domain.NotificationTrigger  `json:"trigger_event"`
	Priority  domain.NotificationPriority `json:"priority"`
	Recipient string                      `json:"recipient"`
	Subject   string                      `json:"subject"`
	Body      string                      `json:"body"`
	Status    domain.NotificationStatus   `json:"status"`
	Attempts  int                         `json:"attempts"`
	LastError *string                     `json:"last_error,omitempty"`
	Metadata  map[string]any              `json:"metadata,omitempty"`
	CreatedBy *string                     `json:"created_by,omitempty"`
	SentAt    *time.Time                  `json:"sent_at,omitempty"`
	ReadAt    *time.Time                  `json:"read_at,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// RecalculateRequest selects days to rebuild.
type RecalculateRequest struct {
	Date *time.Time `json:"date"`
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// RevenueAnalyticsResponse is one daily rollup.
type RevenueAnalyticsResponse struct {
	AnalyticsDate           string             `json:"analytics_date"`
	TimePeriod              string             `json:"time_period"`
	TotalRevenue            float64            `json:"total_revenue"`
	TotalTransactions       int                `json:"total_transactions"`
	RevenueByType           map[string]float64 `json:"revenue_by_type"`
	RevenueByCity           map[string]float64 `json:"revenue_by_city"`
	ActivePayingUsers       int                `json:"active_paying_users"`
	NewPayingUsers          int                `json:"new_paying_users"`
	RefundsAmount           float64            `json:"refunds_amount"`
	RefundsCount            int                `json:"refunds_count"`
	AverageTransactionValue float64            `json:"average_transaction_value"`
	ConversionRate          float64            `json:"conversion_rate"`
	CalculatedAt            time.Time          `json:"calculated_at"`
}

// DashboardMetricResponse is one stored metric.
type DashboardMetricResponse struct {
	Key          string    `json:"metric_key"`
	Value        float64   `json:"value"`
	CalculatedAt time.Time `json:"calculated_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// EnumUpdateRequest lists enum values to add per type.
type EnumUpdateRequest struct {
	Enums map[string][]string `json:"enums"`
}

// FromWaitlistEntry maps a waitlist row.
func FromWaitlistEntry(e *domain.WaitlistEntry) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Phone:     e.Phone,
		Status:    e.Status,
		Source:    e.Source,
		City:      e.City,
		Country:   e.Country,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		InvitedAt: e.InvitedAt,
		CreatedAt: e.CreatedAt,
	}
}

// FromNotification maps a notification.
func FromNotification(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Channel:   n.Channel,
		Trigger:   n.Trigger,
		Priority:  n.Priority,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Body:      n.Body,
		Status:    n.Status,
		Attempts:  n.Attempts,
		LastError: n.LastError,
		Metadata:  n.Metadata,
		CreatedBy: n.CreatedBy,
		SentAt:    n.SentAt,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// FromRevenueAnalytics maps daily rollups.
func FromRevenueAnalytics(rows []domain.RevenueAnalytics) []RevenueAnalyticsResponse {
	out := make([]RevenueAnalyticsResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, RevenueAnalyticsResponse{
			AnalyticsDate:           r.AnalyticsDate.Format(time.DateOnly),
			TimePeriod:              r.TimePeriod,
			TotalRevenue:            r.TotalRevenue,
			TotalTransactions:       r.TotalTransactions,
			RevenueByType:           r.RevenueByType,
			RevenueByCity:           r.RevenueByCity,
			ActivePayingUsers:       r.ActivePayingUsers,
			NewPayingUsers:          r.NewPayingUsers,
			RefundsAmount:           r.RefundsAmount,
			RefundsCount:            r.RefundsCount,
			AverageTransactionValue: r.AverageTransactionValue,
			ConversionRate:          r.ConversionRate,
			CalculatedAt:            r.CalculatedAt,
		})
	}
	return out
}

// FromDashboardMetrics maps stored metrics.
func FromDashboardMetrics(metrics []domain.DashboardMetric) []DashboardMetricResponse {
	out := make([]DashboardMetricResponse, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, DashboardMetricResponse{
			Key:          m.Key,
			Value:        m.Value,
			CalculatedAt: m.CalculatedAt,
			ExpiresAt:    m.ExpiresAt,
		})
	}
	return out
}
