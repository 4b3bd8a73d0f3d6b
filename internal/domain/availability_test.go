package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func slotAt(start time.Time, length time.Duration) *AvailabilitySlot {
	return &AvailabilitySlot{
		StartsAt:           start,
		EndsAt:             start.Add(length),
		DateType:           DateModeOnline,
		Status:             SlotStatusActive,
		Recurrence:         RecurrenceNone,
		CancellationPolicy: PolicyFlexible,
		Capacity:           1,
	}
}

func TestSlotValidate(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, slotAt(now.Add(3*time.Hour), time.Hour).Validate(now))
	require.ErrorIs(t, slotAt(now.Add(3*time.Hour), 0).Validate(now), ErrSlotStartAfterEnd)
	require.ErrorIs(t, slotAt(now.Add(3*time.Hour), 20*time.Minute).Validate(now), ErrSlotTooShort)
	require.ErrorIs(t, slotAt(now.Add(3*time.Hour), 9*time.Hour).Validate(now), ErrSlotTooLong)
	require.ErrorIs(t, slotAt(now.Add(time.Hour), time.Hour).Validate(now), ErrSlotTooSoon)
	require.ErrorIs(t, slotAt(now.AddDate(0, 0, 91), time.Hour).Validate(now), ErrSlotTooFarAhead)

	bad := slotAt(now.Add(3*time.Hour), time.Hour)
	bad.CancellationPolicy = "whenever"
	require.ErrorIs(t, bad.Validate(now), ErrInvalidPolicy)
}

func TestWeeklyOccurrencesAreCapped(t *testing.T) {
	start := time.Date(2026, 6, 2, 18, 0, 0, 0, time.UTC)
	s := slotAt(start, time.Hour)
	s.Recurrence = RecurrenceWeekly

	end := start.AddDate(0, 0, 21)
	s.RecurrenceEnd = &end
	require.Len(t, s.WeeklyOccurrences(), 4)

	far := start.AddDate(2, 0, 0)
	s.RecurrenceEnd = &far
	occ := s.WeeklyOccurrences()
	require.Len(t, occ, SlotRules.MaxRecurringWeeks)
	require.Equal(t, start.AddDate(0, 0, 7), occ[1].StartsAt)
}

func TestPolicyNotice(t *testing.T) {
	require.Equal(t, 72*time.Hour, PolicyStrict.Notice())
	require.Equal(t, time.Hour, CancellationPolicy("unknown").Notice())
	require.True(t, BookingConfirmed.Active())
	require.False(t, BookingCancelled.Active())
	require.True(t, ActivityType("coffee").Valid())
	require.False(t, ActivityType("skydiving").Valid())
}
