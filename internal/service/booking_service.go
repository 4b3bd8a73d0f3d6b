package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// BookingService lets users book each other's availability slots.
type BookingService struct {
	slots      repository.AvailabilityRepository
	bookings   repository.BookingRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// BookingDependencies bundles collaborators.
type BookingDependencies struct {
	SlotRepo    repository.AvailabilityRepository
	BookingRepo repository.BookingRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// BookingInput is the booker's request.
type BookingInput struct {
	SlotID   string
	Activity domain.ActivityType
	Notes    *string
}

// NewBookingService builds the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	return &BookingService{
		slots:      deps.SlotRepo,
		bookings:   deps.BookingRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}
}

// Create books a slot for the caller.
func (s *BookingService) Create(ctx context.Context, bookerID string, input BookingInput) (*domain.AvailabilityBooking, error) {
	if strings.TrimSpace(input.SlotID) == "" {
		return nil, apperrors.NewValidationError("slot_id is required", map[string]any{"field": "slot_id"})
	}
	if input.Activity == "" {
		input.Activity = "casual"
	}
	if !input.Activity.Valid() {
		return nil, apperrors.NewValidationError("unknown activity type", map[string]any{"field": "activity"})
	}

	slot, err := s.slots.GetByID(ctx, input.SlotID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("availability slot", map[string]any{"id": input.SlotID})
		}
		return nil, err
	}
	if slot.UserID == bookerID {
		return nil, apperrors.NewBusinessRule("you cannot book your own slot", nil)
	}
	if !slot.Bookable(s.now()) {
		return nil, apperrors.NewBusinessRule("slot is not available for booking", map[string]any{"status": slot.Status})
	}
	booked, err := s.bookings.CountActiveForSlot(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if booked >= slot.Capacity {
		return nil, apperrors.NewConflict("slot is fully booked", map[string]any{"capacity": slot.Capacity})
	}
	exists, err := s.bookings.HasActiveBooking(ctx, slot.ID, bookerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflict("you already have an active booking for this slot", nil)
	}

	booking := &domain.AvailabilityBooking{
		SlotID:      slot.ID,
		SlotOwnerID: slot.UserID,
		BookerID:    bookerID,
		Status:      domain.BookingPending,
		Activity:    input.Activity,
		Notes:       trimmedPtr(input.Notes),
	}
	if err := s.bookings.Create(ctx, booking, slot.Capacity); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotFull):
			return nil, apperrors.NewConflict("slot is fully booked", map[string]any{"capacity": slot.Capacity})
		case errors.Is(err, repository.ErrAlreadyBooked):
			return nil, apperrors.NewConflict("you already have an active booking for this slot", nil)
		}
		return nil, err
	}
	s.publish(ctx, events.EventBookingCreated, bookerID, booking)
	return booking, nil
}

// ListMine returns bookings the caller made.
func (s *BookingService) ListMine(ctx context.Context, userID string, status *domain.BookingStatus, page Pagination) (Page[domain.AvailabilityBooking], error) {
	return s.list(ctx, repository.BookingFilter{BookerID: &userID, Status: status}, page)
}

// ListIncoming returns bookings on the caller's slots.
func (s *BookingService) ListIncoming(ctx context.Context, userID string, status *domain.BookingStatus, page Pagination) (Page[domain.AvailabilityBooking], error) {
	return s.list(ctx, repository.BookingFilter{SlotOwnerID: &userID, Status: status}, page)
}

func (s *BookingService) list(ctx context.Context, filter repository.BookingFilter, page Pagination) (Page[domain.AvailabilityBooking], error) {
	page = page.Normalize(20)
	filter.Limit = page.Limit
	filter.Offset = page.Offset()
	items, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return Page[domain.AvailabilityBooking]{}, err
	}
	return Page[domain.AvailabilityBooking]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Get returns a booking visible to either party.
func (s *BookingService) Get(ctx context.Context, userID, id string) (*domain.AvailabilityBooking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("booking", map[string]any{"id": id})
		}
		return nil, err
	}
	if !booking.HasParty(userID) {
		return nil, apperrors.NewForbidden("booking belongs to other users")
	}
	return booking, nil
}

// Confirm accepts a pending booking. Only the slot owner may confirm.
func (s *BookingService) Confirm(ctx context.Context, userID, id string) (*domain.AvailabilityBooking, error) {
	booking, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if booking.SlotOwnerID != userID {
		return nil, apperrors.NewForbidden("only the slot owner can confirm a booking")
	}
	if booking.Status != domain.BookingPending {
		return nil, apperrors.NewBusinessRule("only pending bookings can be confirmed", map[string]any{"status": booking.Status})
	}
	now := s.now()
	booking.Status = domain.BookingConfirmed
	booking.ConfirmedAt = &now
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventBookingConfirmed, userID, booking)
	return booking, nil
}

// Cancel cancels an active booking and records whether the slot's policy notice was respected.
func (s *BookingService) Cancel(ctx context.Context, userID, id, reason string) (*domain.AvailabilityBooking, error) {
	booking, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !booking.Status.Active() {
		return nil, apperrors.NewBusinessRule("booking is no longer active", map[string]any{"status": booking.Status})
	}
	slot, err := s.slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	within := slot.StartsAt.Sub(now) >= slot.CancellationPolicy.Notice()
	booking.Status = domain.BookingCancelled
	booking.CancelledAt = &now
	booking.CancelledBy = &userID
	booking.WithinPolicy = &within
	booking.CancellationReason = trimmedPtr(&reason)
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, apperrors.MapError(err)
	}
	if !within {
		s.logger.Info("late booking cancellation",
			zap.String("booking_id", booking.ID),
			zap.String("policy", string(slot.CancellationPolicy)))
	}
	s.publish(ctx, events.EventBookingCancelled, userID, booking)
	return booking, nil
}

// Complete closes a confirmed booking once the slot has started.
func (s *BookingService) Complete(ctx context.Context, userID, id string) (*domain.AvailabilityBooking, error) {
	booking, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingConfirmed {
		return nil, apperrors.NewBusinessRule("only confirmed bookings can be completed", map[string]any{"status": booking.Status})
	}
	slot, err := s.slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	if now.Before(slot.StartsAt) {
		return nil, apperrors.NewBusinessRule("slot has not started yet", map[string]any{"starts_at": slot.StartsAt})
	}
	booking.Status = domain.BookingCompleted
	booking.CompletedAt = &now
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, apperrors.MapError(err)
	}
	return booking, nil
}

func (s *BookingService) publish(ctx context.Context, eventType events.EventType, actorID string, booking *domain.AvailabilityBooking) {
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        eventType,
		AggregateID: booking.ID,
		Actor:       userActor(actorID),
		Payload: events.BookingPayload{
			BookingID:   booking.ID,
			SlotID:      booking.SlotID,
			SlotOwnerID: booking.SlotOwnerID,
			BookerID:    booking.BookerID,
			Status:      booking.Status,
		},
	})
}
