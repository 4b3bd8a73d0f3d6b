package domain

import (
	"errors"
	"time"
)

// SlotStatus is the lifecycle state of an availability slot.
type SlotStatus string

const (
	SlotStatusActive    SlotStatus = "active"
	SlotStatusCancelled SlotStatus = "cancelled"
	SlotStatusCompleted SlotStatus = "completed"
	SlotStatusDeleted   SlotStatus = "deleted"
)

// RecurrenceType controls whether a slot repeats.
type RecurrenceType string

const (
	RecurrenceNone   RecurrenceType = "none"
	RecurrenceWeekly RecurrenceType = "weekly"
	RecurrenceCustom RecurrenceType = "custom"
)

// CancellationPolicy is how much notice a booking cancellation needs.
type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "flexible"
	Policy24Hours  CancellationPolicy = "24_hours"
	Policy48Hours  CancellationPolicy = "48_hours"
	PolicyStrict   CancellationPolicy = "strict"
)

var policyNotice = map[CancellationPolicy]time.Duration{
	PolicyFlexible: time.Hour,
	Policy24Hours:  24 * time.Hour,
	Policy48Hours:  48 * time.Hour,
	PolicyStrict:   72 * time.Hour,
}

// Notice returns the minimum cancellation notice for the policy.
func (p CancellationPolicy) Notice() time.Duration {
	if d, ok := policyNotice[p]; ok {
		return d
	}
	return policyNotice[PolicyFlexible]
}

// Valid reports whether p is a known policy.
func (p CancellationPolicy) Valid() bool {
	_, ok := policyNotice[p]
	return ok
}

// SlotRules holds availability validation limits.
var SlotRules = struct {
	MinDuration       time.Duration
	MaxDuration       time.Duration
	MinAdvance        time.Duration
	MaxAdvance        time.Duration
	MaxRecurringWeeks int
	MaxSeriesSlots    int
	DefaultBuffer     int
	DefaultPrep       int
}{
	MinDuration:       30 * time.Minute,
	MaxDuration:       8 * time.Hour,
	MinAdvance:        2 * time.Hour,
	MaxAdvance:        90 * 24 * time.Hour,
	MaxRecurringWeeks: 26,
	MaxSeriesSlots:    50,
	DefaultBuffer:     30,
	DefaultPrep:       15,
}

var (
	ErrSlotStartAfterEnd  = errors.New("start time must be before end time")
	ErrSlotTooShort       = errors.New("slot must be at least 30 minutes")
	ErrSlotTooLong        = errors.New("slot cannot be longer than 8 hours")
	ErrSlotTooSoon        = errors.New("slot must start at least 2 hours from now")
	ErrSlotTooFarAhead    = errors.New("slot cannot be more than 90 days ahead")
	ErrInvalidPolicy      = errors.New("unknown cancellation policy")
	ErrInvalidDateType    = errors.New("date type must be online or offline")
	ErrInvalidRecurrence  = errors.New("unknown recurrence type")
	ErrRecurrenceEndEarly = errors.New("recurrence end must be after the first slot")
)

// AvailabilitySlot is a user-declared bookable time window.
type AvailabilitySlot struct {
	ID                 string
	UserID             string
	StartsAt           time.Time
	EndsAt             time.Time
	Timezone           string
	DateType           DateMode
	Status             SlotStatus
	Title              *string
	Notes              *string
	LocationPreference *string
	Capacity           int
	Recurrence         RecurrenceType
	RecurrenceEnd      *time.Time
	SeriesID           *string
	BufferMinutes      int
	PrepMinutes        int
	CancellationPolicy CancellationPolicy
	IsDeleted          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks the time window and enumerations against SlotRules at now.
func (s *AvailabilitySlot) Validate(now time.Time) error {
	if !s.StartsAt.Before(s.EndsAt) {
		return ErrSlotStartAfterEnd
	}
	length := s.EndsAt.Sub(s.StartsAt)
	if length < SlotRules.MinDuration {
		return ErrSlotTooShort
	}
	if length > SlotRules.MaxDuration {
		return ErrSlotTooLong
	}
	if s.StartsAt.Before(now.Add(SlotRules.MinAdvance)) {
		return ErrSlotTooSoon
	}
	if s.StartsAt.After(now.Add(SlotRules.MaxAdvance)) {
		return ErrSlotTooFarAhead
	}
	if s.DateType != DateModeOnline && s.DateType != DateModeOffline {
		return ErrInvalidDateType
	}
	if !s.CancellationPolicy.Valid() {
		return ErrInvalidPolicy
	}
	switch s.Recurrence {
	case RecurrenceNone, RecurrenceWeekly, RecurrenceCustom:
	default:
		return ErrInvalidRecurrence
	}
	if s.Recurrence == RecurrenceWeekly && s.RecurrenceEnd != nil && !s.RecurrenceEnd.After(s.StartsAt) {
		return ErrRecurrenceEndEarly
	}
	return nil
}

// Overlaps reports whether the slot intersects [start, end).
func (s *AvailabilitySlot) Overlaps(start, end time.Time) bool {
	return s.StartsAt.Before(end) && s.EndsAt.After(start)
}

// Bookable reports whether the slot accepts bookings at now.
func (s *AvailabilitySlot) Bookable(now time.Time) bool {
	return s.Status == SlotStatusActive && !s.IsDeleted && s.StartsAt.After(now)
}

// WeeklyOccurrences expands a weekly slot into its series, the first slot included.
// The series stops at RecurrenceEnd, MaxRecurringWeeks or MaxSeriesSlots, whichever comes first.
func (s *AvailabilitySlot) WeeklyOccurrences() []AvailabilitySlot {
	if s.Recurrence != RecurrenceWeekly || s.RecurrenceEnd == nil {
		return []AvailabilitySlot{*s}
	}
	limit := SlotRules.MaxRecurringWeeks
	if SlotRules.MaxSeriesSlots < limit {
		limit = SlotRules.MaxSeriesSlots
	}
	out := make([]AvailabilitySlot, 0, limit)
	for week := 0; week < limit; week++ {
		occ := *s
		occ.StartsAt = s.StartsAt.AddDate(0, 0, 7*week)
		occ.EndsAt = s.EndsAt.AddDate(0, 0, 7*week)
		if occ.StartsAt.After(*s.RecurrenceEnd) {
			break
		}
		out = append(out, occ)
	}
	return out
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Active reports whether the booking still holds the slot.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// ActivityType is what the pair plans to do.
type ActivityType string

var activityTypes = map[ActivityType]struct{}{
	"coffee": {}, "lunch": {}, "dinner": {}, "drinks": {}, "movie": {},
	"walk": {}, "activity": {}, "casual": {}, "formal": {},
}

// Valid reports whether a is a known activity.
func (a ActivityType) Valid() bool {
	_, ok := activityTypes[a]
	return ok
}

// AvailabilityBooking is a request by one user to meet in another user's slot.
type AvailabilityBooking struct {
	ID                 string
	SlotID             string
	SlotOwnerID        string
	BookerID           string
	Status             BookingStatus
	Activity           ActivityType
	Notes              *string
	CancellationReason *string
	CancelledBy        *string
	WithinPolicy       *bool
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasParty reports whether userID is the booker or the slot owner.
func (b *AvailabilityBooking) HasParty(userID string) bool {
	return b.BookerID == userID || b.SlotOwnerID == userID
}
