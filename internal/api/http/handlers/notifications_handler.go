package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
)

// NotificationsHandler exposes the notification log to admins.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// Create POST /admin/notifications.
func (h *NotificationsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.NotificationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	notification, err := h.notifications.CreateManual(c.UserContext(), principal.Admin.ID, service.ManualNotificationInput{
		Channel:   req.Channel,
		Priority:  req.Priority,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return err
	}
	return created(c, "notification created", dto.FromNotification(notification))
}

// List GET /admin/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	filter := service.NotificationListFilter{
		Status:  enumQuery[domain.NotificationStatus](c, "status"),
		Channel: enumQuery[domain.NotificationChannel](c, "channel"),
		Trigger: enumQuery[domain.NotificationTrigger](c, "trigger"),
	}
	page, err := h.notifications.List(c.UserContext(), filter, pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromNotification)
}

// Get GET /admin/notifications/:id.
func (h *NotificationsHandler) Get(c *fiber.Ctx) error {
	notification, err := h.notifications.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromNotification(notification))
}

// MarkRead POST /admin/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	notification, err := h.notifications.MarkRead(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromNotification(notification))
}

// Retry POST /admin/notifications/:id/retry.
func (h *NotificationsHandler) Retry(c *fiber.Ctx) error {
	notification, err := h.notifications.Retry(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromNotification(notification))
}

// Delete DELETE /admin/notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	if err := h.notifications.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return message(c, "notification deleted")
}
