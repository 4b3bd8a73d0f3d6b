package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
)

// WaitlistHandler serves the public waitlist form and its admin views.
type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

// NewWaitlistHandler constructs handler.
func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

// Join POST /waitlist.
func (h *WaitlistHandler) Join(c *fiber.Ctx) error {
	var req dto.WaitlistJoinRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.waitlist.Join(c.UserContext(), service.WaitlistJoinInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Source:    req.Source,
		City:      req.City,
		Country:   req.Country,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return created(c, "you're on the list", dto.FromWaitlistEntry(entry))
}

// Count GET /waitlist/count.
func (h *WaitlistHandler) Count(c *fiber.Ctx) error {
	count, err := h.waitlist.Count(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": count})
}

// List GET /admin/waitlist.
func (h *WaitlistHandler) List(c *fiber.Ctx) error {
	page, err := h.waitlist.List(c.UserContext(),
		enumQuery[domain.WaitlistStatus](c, "status"),
		queryPtr(c, "search"),
		pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromWaitlistEntry)
}

// Stats GET /admin/waitlist/stats.
func (h *WaitlistHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.waitlist.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, stats)
}

// Invite POST /admin/waitlist/:id/invite.
func (h *WaitlistHandler) Invite(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	entry, err := h.waitlist.Invite(c.UserContext(), principal.Admin.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromWaitlistEntry(entry))
}

// Delete DELETE /admin/waitlist/:id.
func (h *WaitlistHandler) Delete(c *fiber.Ctx) error {
	if err := h.waitlist.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return message(c, "waitlist entry deleted")
}
