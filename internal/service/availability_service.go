package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// AvailabilityService manages the slots users offer for dates.
type AvailabilityService struct {
	slots      repository.AvailabilityRepository
	bookings   repository.BookingRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AvailabilityDependencies bundles collaborators.
type AvailabilityDependencies struct {
	SlotRepo    repository.AvailabilityRepository
	BookingRepo repository.BookingRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// SlotInput is the owner's form for a slot.
type SlotInput struct {
	StartsAt           time.Time
	EndsAt             time.Time
	Timezone           string
	DateType           domain.DateMode
	Title              *string
	Notes              *string
	LocationPreference *string
	Capacity           int
	Recurrence         domain.RecurrenceType
	RecurrenceEnd      *time.Time
	BufferMinutes      *int
	PrepMinutes        *int
	CancellationPolicy domain.CancellationPolicy
}

// SlotUpdate changes an active slot. Nil means unchanged.
type SlotUpdate struct {
	StartsAt           *time.Time
	EndsAt             *time.Time
	Timezone           *string
	DateType           *domain.DateMode
	Title              *string
	Notes              *string
	LocationPreference *string
	Capacity           *int
	BufferMinutes      *int
	PrepMinutes        *int
	CancellationPolicy *domain.CancellationPolicy
}

// SkippedOccurrence is a series slot left out because it overlapped an existing one.
type SkippedOccurrence struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Reason   string    `json:"reason"`
}

// SlotCreateResult lists the created slots and the skipped occurrences of a series.
type SlotCreateResult struct {
	Slots    []domain.AvailabilitySlot
	Skipped  []SkippedOccurrence
	SeriesID *string
}

// SlotListFilter narrows the owner's listing and the search.
type SlotListFilter struct {
	Status   *domain.SlotStatus
	DateType *domain.DateMode
	From     *time.Time
	To       *time.Time
}

// NewAvailabilityService builds the service.
func NewAvailabilityService(deps AvailabilityDependencies) *AvailabilityService {
	return &AvailabilityService{
		slots:      deps.SlotRepo,
		bookings:   deps.BookingRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}
}

// Create validates a slot and, for weekly recurrence, expands it into a series.
func (s *AvailabilityService) Create(ctx context.Context, userID string, input SlotInput) (*SlotCreateResult, error) {
	now := s.now()
	slot := domain.AvailabilitySlot{
		UserID:             userID,
		StartsAt:           input.StartsAt.UTC(),
		EndsAt:             input.EndsAt.UTC(),
		Timezone:           strings.TrimSpace(input.Timezone),
		DateType:           input.DateType,
		Status:             domain.SlotStatusActive,
		Title:              trimmedPtr(input.Title),
		Notes:              trimmedPtr(input.Notes),
		LocationPreference: trimmedPtr(input.LocationPreference),
		Capacity:           input.Capacity,
		Recurrence:         input.Recurrence,
		RecurrenceEnd:      input.RecurrenceEnd,
		BufferMinutes:      domain.SlotRules.DefaultBuffer,
		PrepMinutes:        domain.SlotRules.DefaultPrep,
		CancellationPolicy: input.CancellationPolicy,
	}
	if slot.Timezone == "" {
		slot.Timezone = "UTC"
	}
	if slot.Capacity == 0 {
		slot.Capacity = 1
	}
	if slot.Recurrence == "" {
		slot.Recurrence = domain.RecurrenceNone
	}
	if slot.CancellationPolicy == "" {
		slot.CancellationPolicy = domain.PolicyFlexible
	}
	if input.BufferMinutes != nil {
		slot.BufferMinutes = *input.BufferMinutes
	}
	if input.PrepMinutes != nil {
		slot.PrepMinutes = *input.PrepMinutes
	}
	if err := validateSlot(&slot, now); err != nil {
		return nil, err
	}
	if slot.Recurrence == domain.RecurrenceWeekly {
		if slot.RecurrenceEnd == nil {
			return nil, apperrors.NewValidationError("weekly slots need a recurrence end", map[string]any{"field": "recurrence_end"})
		}
		seriesID := uuid.NewString()
		slot.SeriesID = &seriesID
	}

	result := &SlotCreateResult{SeriesID: slot.SeriesID}
	var keep []domain.AvailabilitySlot
	horizon := now.Add(domain.SlotRules.MaxAdvance)
	for _, occ := range slot.WeeklyOccurrences() {
		if occ.StartsAt.After(horizon) {
			result.Skipped = append(result.Skipped, SkippedOccurrence{
				StartsAt: occ.StartsAt,
				EndsAt:   occ.EndsAt,
				Reason:   "more than 90 days ahead",
			})
			continue
		}
		clash, err := s.slots.FindOverlapping(ctx, userID, occ.StartsAt, occ.EndsAt, "")
		if err != nil {
			return nil, err
		}
		if len(clash) > 0 || overlapsAny(keep, occ) {
			result.Skipped = append(result.Skipped, SkippedOccurrence{
				StartsAt: occ.StartsAt,
				EndsAt:   occ.EndsAt,
				Reason:   "overlaps an existing slot",
			})
			continue
		}
		keep = append(keep, occ)
	}
	if len(keep) == 0 {
		return nil, apperrors.NewConflict("slot overlaps an existing slot", map[string]any{"skipped": result.Skipped})
	}

	created, err := s.slots.CreateSeries(ctx, keep)
	if err != nil {
		return nil, err
	}
	result.Slots = created
	s.logger.Info("availability created",
		zap.String("user_id", userID),
		zap.Int("slots", len(created)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// ListMine returns the owner's slots.
func (s *AvailabilityService) ListMine(ctx context.Context, userID string, filter SlotListFilter, page Pagination) (Page[domain.AvailabilitySlot], error) {
	page = page.Normalize(20)
	items, total, err := s.slots.List(ctx, repository.SlotFilter{
		UserID:   &userID,
		Status:   filter.Status,
		DateType: filter.DateType,
		From:     filter.From,
		To:       filter.To,
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		return Page[domain.AvailabilitySlot]{}, err
	}
	return Page[domain.AvailabilitySlot]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Search returns other users' active future slots.
func (s *AvailabilityService) Search(ctx context.Context, userID string, filter SlotListFilter, page Pagination) (Page[domain.AvailabilitySlot], error) {
	page = page.Normalize(20)
	active := domain.SlotStatusActive
	from := s.now()
	if filter.From != nil && filter.From.After(from) {
		from = *filter.From
	}
	items, total, err := s.slots.List(ctx, repository.SlotFilter{
		ExcludeUserID: &userID,
		Status:        &active,
		DateType:      filter.DateType,
		From:          &from,
		To:            filter.To,
		Limit:         page.Limit,
		Offset:        page.Offset(),
	})
	if err != nil {
		return Page[domain.AvailabilitySlot]{}, err
	}
	return Page[domain.AvailabilitySlot]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Get returns one of the caller's slots.
func (s *AvailabilityService) Get(ctx context.Context, userID, id string) (*domain.AvailabilitySlot, error) {
	slot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.UserID != userID {
		return nil, apperrors.NewForbidden("slot belongs to another user")
	}
	return slot, nil
}

// Update edits an active slot and re-validates it.
func (s *AvailabilityService) Update(ctx context.Context, userID, id string, input SlotUpdate) (*domain.AvailabilitySlot, error) {
	slot, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if slot.Status != domain.SlotStatusActive {
		return nil, apperrors.NewBusinessRule("only active slots can be updated", map[string]any{"status": slot.Status})
	}

	if input.StartsAt != nil {
		slot.StartsAt = input.StartsAt.UTC()
	}
	if input.EndsAt != nil {
		slot.EndsAt = input.EndsAt.UTC()
	}
	if input.Timezone != nil && strings.TrimSpace(*input.Timezone) != "" {
		slot.Timezone = strings.TrimSpace(*input.Timezone)
	}
	if input.DateType != nil {
		slot.DateType = *input.DateType
	}
	if input.Title != nil {
		slot.Title = trimmedPtr(input.Title)
	}
	if input.Notes != nil {
		slot.Notes = trimmedPtr(input.Notes)
	}
	if input.LocationPreference != nil {
		slot.LocationPreference = trimmedPtr(input.LocationPreference)
	}
	if input.Capacity != nil {
		slot.Capacity = *input.Capacity
	}
	if input.BufferMinutes != nil {
		slot.BufferMinutes = *input.BufferMinutes
	}
	if input.PrepMinutes != nil {
		slot.PrepMinutes = *input.PrepMinutes
	}
	if input.CancellationPolicy != nil {
		slot.CancellationPolicy = *input.CancellationPolicy
	}
	if err := validateSlot(slot, s.now()); err != nil {
		return nil, err
	}
	if input.Capacity != nil {
		booked, err := s.bookings.CountActiveForSlot(ctx, id)
		if err != nil {
			return nil, err
		}
		if slot.Capacity < booked {
			return nil, apperrors.NewBusinessRule("capacity is below the number of active bookings", map[string]any{"active_bookings": booked})
		}
	}
	clash, err := s.slots.FindOverlapping(ctx, userID, slot.StartsAt, slot.EndsAt, slot.ID)
	if err != nil {
		return nil, err
	}
	if len(clash) > 0 {
		return nil, apperrors.NewConflict("slot overlaps an existing slot", map[string]any{"conflicting_slot_id": clash[0].ID})
	}

	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, apperrors.MapError(err)
	}
	return slot, nil
}

// Cancel withdraws a slot and cancels its active bookings.
func (s *AvailabilityService) Cancel(ctx context.Context, userID, id, reason string) (*domain.AvailabilitySlot, int64, error) {
	slot, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, 0, err
	}
	if slot.Status != domain.SlotStatusActive {
		return nil, 0, apperrors.NewBusinessRule("only active slots can be cancelled", map[string]any{"status": slot.Status})
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "slot cancelled by owner"
	}

	slot.Status = domain.SlotStatusCancelled
	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	cancelled, err := s.bookings.CancelActiveForSlot(ctx, slot.ID, userID, reason)
	if err != nil {
		return nil, 0, err
	}
	if cancelled > 0 {
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:        events.EventBookingCancelled,
			AggregateID: slot.ID,
			Actor:       userActor(userID),
			Payload: events.BookingPayload{
				SlotID:      slot.ID,
				SlotOwnerID: slot.UserID,
				Status:      domain.BookingCancelled,
			},
		})
	}
	return slot, cancelled, nil
}

// Delete soft-deletes a slot with no active bookings.
func (s *AvailabilityService) Delete(ctx context.Context, userID, id string) error {
	slot, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	booked, err := s.bookings.CountActiveForSlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	if booked > 0 {
		return apperrors.NewConflict("slot has active bookings", map[string]any{"active_bookings": booked})
	}
	return apperrors.MapError(s.slots.SoftDelete(ctx, slot.ID))
}

func (s *AvailabilityService) load(ctx context.Context, id string) (*domain.AvailabilitySlot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("availability slot", map[string]any{"id": id})
		}
		return nil, err
	}
	return slot, nil
}

func validateSlot(slot *domain.AvailabilitySlot, now time.Time) error {
	if slot.Capacity < 1 {
		return apperrors.NewValidationError("capacity must be at least 1", map[string]any{"field": "capacity"})
	}
	if slot.BufferMinutes < 0 || slot.PrepMinutes < 0 {
		return apperrors.NewValidationError("buffer and preparation minutes cannot be negative", nil)
	}
	if _, err := time.LoadLocation(slot.Timezone); err != nil {
		return apperrors.NewValidationError("unknown timezone", map[string]any{"field": "timezone"})
	}
	if err := slot.Validate(now); err != nil {
		details := map[string]any{}
		switch {
		case errors.Is(err, domain.ErrInvalidDateType):
			details["field"] = "date_type"
		case errors.Is(err, domain.ErrInvalidPolicy):
			details["field"] = "cancellation_policy"
		case errors.Is(err, domain.ErrInvalidRecurrence), errors.Is(err, domain.ErrRecurrenceEndEarly):
			details["field"] = "recurrence"
		default:
			details["field"] = "starts_at"
		}
		return apperrors.NewValidationError(err.Error(), details)
	}
	return nil
}

func overlapsAny(slots []domain.AvailabilitySlot, candidate domain.AvailabilitySlot) bool {
	for i := range slots {
		if slots[i].Overlaps(candidate.StartsAt, candidate.EndsAt) {
			return true
		}
	}
	return false
}
