package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/service"
)

// AnalyticsHandler serves the admin dashboard and revenue reports.
type AnalyticsHandler struct {
	dashboard *service.DashboardService
	revenue   *service.RevenueService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(dashboard *service.DashboardService, revenue *service.RevenueService) *AnalyticsHandler {
	return &AnalyticsHandler{dashboard: dashboard, revenue: revenue}
}

// Overview GET /admin/dashboard/overview.
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	overview, cached, err := h.dashboard.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success:  true,
		Data:     overview,
		Metadata: fiber.Map{"cached": cached},
	})
}

// Metrics GET /admin/dashboard/metrics.
func (h *AnalyticsHandler) Metrics(c *fiber.Ctx) error {
	metrics, err := h.dashboard.Metrics(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, dto.FromDashboardMetrics(metrics))
}

// Refresh POST /admin/dashboard/refresh.
func (h *AnalyticsHandler) Refresh(c *fiber.Ctx) error {
	metrics, err := h.dashboard.Refresh(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Message: "dashboard metrics refreshed",
		Data:    dto.FromDashboardMetrics(metrics),
	})
}

// RevenueAnalytics GET /admin/revenue/analytics.
func (h *AnalyticsHandler) RevenueAnalytics(c *fiber.Ctx) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	rows, err := h.revenue.Analytics(c.UserContext(), r)
	if err != nil {
		return err
	}
	return ok(c, dto.FromRevenueAnalytics(rows))
}

// RevenueSummary GET /admin/revenue/summary.
func (h *AnalyticsHandler) RevenueSummary(c *fiber.Ctx) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	summary, err := h.revenue.Summary(c.UserContext(), r)
	if err != nil {
		return err
	}
	return ok(c, summary)
}

// Recalculate POST /admin/revenue/recalculate.
func (h *AnalyticsHandler) Recalculate(c *fiber.Ctx) error {
	var req dto.RecalculateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rows, err := h.revenue.Recalculate(c.UserContext(), service.RecalculateInput{
		Date: req.Date,
		From: req.From,
		To:   req.To,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Message: "revenue analytics recalculated",
		Data:    dto.FromRevenueAnalytics(rows),
	})
}

func dateRange(c *fiber.Ctx) (service.DateRange, error) {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return service.DateRange{}, err
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return service.DateRange{}, err
	}
	return service.DateRange{From: from, To: to}, nil
}
