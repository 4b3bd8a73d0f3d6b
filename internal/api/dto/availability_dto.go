package dto

import (
	"time"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// SlotRequest creates a slot or a weekly series.
type SlotRequest struct {
	StartsAt           time.Time                 `json:"starts_at"`
	EndsAt             time.Time                 `json:"ends_at"`
	Timezone           string                    `json:"timezone"`
	DateType           domain.DateMode           `json:"date_type"`
	Title              *string                   `json:"title"`
	Notes              *string                   `json:"notes"`
	LocationPreference *string                   `json:"location_preference"`
	Capacity           int                       `json:"capacity"`
	Recurrence         domain.RecurrenceType     `json:"recurrence"`
	RecurrenceEnd      *time.Time                `json:"recurrence_end"`
	BufferMinutes      *int                      `json:"buffer_minutes"`
	PrepMinutes        *int                      `json:"preparation_minutes"`
	CancellationPolicy domain.CancellationPolicy `json:"cancellation_policy"`
}

// SlotUpdateRequest changes an active slot.
type SlotUpdateRequest struct {
	StartsAt           *time.Time                 `json:"starts_at"`
	EndsAt             *time.Time                 `json:"ends_at"`
	Timezone           *string                    `json:"timezone"`
	DateType           *domain.DateMode           `json:"date_type"`
	Title              *string                    `json:"title"`
	Notes              *string                    `json:"notes"`
	LocationPreference *string                    `json:"location_preference"`
	Capacity           *int                       `json:"capacity"`
	BufferMinutes      *int                       `json:"buffer_minutes"`
	PrepMinutes        *int                       `json:"preparation_minutes"`
	CancellationPolicy *domain.CancellationPolicy `json:"cancellation_policy"`
}

// CancelRequest carries an optional reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// BookingRequest books a slot.
type BookingRequest struct {
	SlotID   string              `json:"slot_id"`
	Activity domain.ActivityType `json:"activity"`
	Notes    *string             `json:"notes"`
}

// SlotResponse is one availability slot.
type SlotResponse struct {
	ID                 string                    `json:"id"`
	UserID             string                    `json:"user_id"`
	StartsAt           time.Time                 `json:"starts_at"`
	EndsAt             time.Time                 `json:"ends_at"`
	Timezone           string                    `json:"timezone"`
	DateType           domain.DateMode           `json:"date_type"`
	Status             domain.SlotStatus         `json:"status"`
	Title              *string                   `json:"title,omitempty"`
	Notes              *string                   `json:"notes,omitempty"`
	LocationPreference *string                   `json:"location_preference,omitempty"`
	Capacity           int                       `json:"capacity"`
	Recurrence         domain.RecurrenceType     `json:"recurrence"`
	RecurrenceEnd      *time.Time                `json:"recurrence_end,omitempty"`
	SeriesID           *string                   `json:"series_id,omitempty"`
	BufferMinutes      int                       `json:"buffer_minutes"`
	PrepMinutes        int                       `json:"preparation_minutes"`
	CancellationPolicy domain.CancellationPolicy `json:"cancellation_policy"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// BookingResponse is one booking.
type BookingResponse struct {
	ID                 string               `json:"id"`
	SlotID             string               `json:"slot_id"`
	SlotOwnerID        string               `json:"slot_owner_id"`
	BookerID           string               `json:"booker_id"`
	Status             domain.BookingStatus `json:"status"`
	Activity           domain.ActivityType  `json:"activity"`
	Notes              *string              `json:"notes,omitempty"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	CancelledBy        *string              `json:"cancelled_by,omitempty"`
	WithinPolicy       *bool                `json:"within_policy,omitempty"`
	ConfirmedAt        *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// FromSlot maps a slot.
func FromSlot(s *domain.AvailabilitySlot) SlotResponse {
	return SlotResponse{
		ID:                 s.ID,
		UserID:             s.UserID,
		StartsAt:           s.StartsAt,
		EndsAt:             s.EndsAt,
		Timezone:           s.Timezone,
		DateType:           s.DateType,
		Status:             s.Status,
		Title:              s.Title,
		Notes:              s.Notes,
		LocationPreference: s.LocationPreference,
		Capacity:           s.Capacity,
		Recurrence:         s.Recurrence,
		RecurrenceEnd:      s.RecurrenceEnd,
		SeriesID:           s.SeriesID,
		BufferMinutes:      s.BufferMinutes,
		PrepMinutes:        s.PrepMinutes,
		CancellationPolicy: s.CancellationPolicy,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// FromSlots maps a list of slots.
func FromSlots(slots []domain.AvailabilitySlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, FromSlot(&slots[i]))
	}
	return out
}

// FromBooking maps a booking.
func FromBooking(b *domain.AvailabilityBooking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		SlotID:             b.SlotID,
		SlotOwnerID:        b.SlotOwnerID,
		BookerID:           b.BookerID,
		Status:             b.Status,
		Activity:           b.Activity,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CancelledBy:        b.CancelledBy,
		WithinPolicy:       b.WithinPolicy,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		CompletedAt:        b.CompletedAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
