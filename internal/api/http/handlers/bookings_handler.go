package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// BookingsHandler manages bookings of availability slots.
type BookingsHandler struct {
	bookings *service.BookingService
}

// NewBookingsHandler constructs handler.
func NewBookingsHandler(bookings *service.BookingService) *BookingsHandler {
	return &BookingsHandler{bookings: bookings}
}

// Create POST /bookings.
func (h *BookingsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.SlotID == "" {
		return apperrors.NewValidationError("slot_id required", nil)
	}
	booking, err := h.bookings.Create(c.UserContext(), principal.User.ID, service.BookingInput{
		SlotID:   req.SlotID,
		Activity: req.Activity,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, "booking requested", dto.FromBooking(booking))
}

// List GET /bookings.
func (h *BookingsHandler) List(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.bookings.ListMine(c.UserContext(), principal.User.ID, enumQuery[domain.BookingStatus](c, "status"), pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromBooking)
}

// Incoming GET /bookings/incoming.
func (h *BookingsHandler) Incoming(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.bookings.ListIncoming(c.UserContext(), principal.User.ID, enumQuery[domain.BookingStatus](c, "status"), pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromBooking)
}

// Get GET /bookings/:id.
func (h *BookingsHandler) Get(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	booking, err := h.bookings.Get(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromBooking(booking))
}

// Confirm POST /bookings/:id/confirm.
func (h *BookingsHandler) Confirm(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	booking, err := h.bookings.Confirm(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromBooking(booking))
}

// Cancel POST /bookings/:id/cancel.
func (h *BookingsHandler) Cancel(c *fiber.Ctx) error {
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
	booking, err := h.bookings.Cancel(c.UserContext(), principal.User.ID, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, dto.FromBooking(booking))
}

// Complete POST /bookings/:id/complete.
func (h *BookingsHandler) Complete(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	booking, err := h.bookings.Complete(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromBooking(booking))
}
