package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// AvailabilityHandler manages a user's availability slots.
type AvailabilityHandler struct {
	slots *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(slots *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{slots: slots}
}

// Create POST /availability.
func (h *AvailabilityHandler) Create(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SlotRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return apperrors.NewValidationError("starts_at and ends_at required", nil)
	}
	result, err := h.slots.Create(c.UserContext(), principal.User.ID, service.SlotInput{
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
		Timezone:           req.Timezone,
		DateType:           req.DateType,
		Title:              req.Title,
		Notes:              req.Notes,
		LocationPreference: req.LocationPreference,
		Capacity:           req.Capacity,
		Recurrence:         req.Recurrence,
		RecurrenceEnd:      req.RecurrenceEnd,
		BufferMinutes:      req.BufferMinutes,
		PrepMinutes:        req.PrepMinutes,
		CancellationPolicy: req.CancellationPolicy,
	})
	if err != nil {
		return err
	}
	skipped := result.Skipped
	if skipped == nil {
		skipped = []service.SkippedOccurrence{}
	}
	return created(c, "availability created", fiber.Map{
		"slots":     dto.FromSlots(result.Slots),
		"skipped":   skipped,
		"series_id": result.SeriesID,
	})
}

// List GET /availability.
func (h *AvailabilityHandler) List(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := slotFilter(c)
	if err != nil {
		return err
	}
	page, err := h.slots.ListMine(c.UserContext(), principal.User.ID, filter, pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromSlot)
}

// Search GET /availability/search.
func (h *AvailabilityHandler) Search(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := slotFilter(c)
	if err != nil {
		return err
	}
	page, err := h.slots.Search(c.UserContext(), principal.User.ID, filter, pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromSlot)
}

// Get GET /availability/:id.
func (h *AvailabilityHandler) Get(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	slot, err := h.slots.Get(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromSlot(slot))
}

// Update PUT /availability/:id.
func (h *AvailabilityHandler) Update(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SlotUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	slot, err := h.slots.Update(c.UserContext(), principal.User.ID, c.Params("id"), service.SlotUpdate{
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
		Timezone:           req.Timezone,
		DateType:           req.DateType,
		Title:              req.Title,
		Notes:              req.Notes,
		LocationPreference: req.LocationPreference,
		Capacity:           req.Capacity,
		BufferMinutes:      req.BufferMinutes,
		PrepMinutes:        req.PrepMinutes,
		CancellationPolicy: req.CancellationPolicy,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.FromSlot(slot))
}

// Cancel POST /availability/:id/cancel.
func (h *AvailabilityHandler) Cancel(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CancelRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	slot, cancelled, err := h.slots.Cancel(c.UserContext(), principal.User.ID, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"slot":               dto.FromSlot(slot),
		"cancelled_bookings": cancelled,
	})
}

// Delete DELETE /availability/:id.
func (h *AvailabilityHandler) Delete(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.slots.Delete(c.UserContext(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	return message(c, "availability deleted")
}

func slotFilter(c *fiber.Ctx) (service.SlotListFilter, error) {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return service.SlotListFilter{}, err
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return service.SlotListFilter{}, err
	}
	return service.SlotListFilter{
		Status:   enumQuery[domain.SlotStatus](c, "status"),
		DateType: enumQuery[domain.DateMode](c, "date_type"),
		From:     from,
		To:       to,
	}, nil
}
