package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newDate(at time.Time) *CuratedDate {
	return &CuratedDate{
		ID:              "d1",
		User1ID:         "u1",
		User2ID:         "u2",
		DateTime:        at,
		DurationMinutes: 60,
		Status:          DateStatusPending,
	}
}

func TestConfirmBothUsers(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	d := newDate(now.Add(48 * time.Hour))

	status, err := d.Confirm("u2", now)
	require.NoError(t, err)
	require.Equal(t, DateStatusUser2Confirmed, status)

	_, err = d.Confirm("u2", now)
	require.ErrorIs(t, err, ErrAlreadyConfirmed)

	status, err = d.Confirm("u1", now)
	require.NoError(t, err)
	require.Equal(t, DateStatusBothConfirmed, status)
	require.True(t, CanTransition(status, DateStatusCompleted))
}

func TestConfirmRejections(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	d := newDate(now.Add(-time.Hour))
	_, err := d.Confirm("u1", now)
	require.ErrorIs(t, err, ErrDateInPast)

	d = newDate(now.Add(time.Hour))
	_, err = d.Confirm("stranger", now)
	require.ErrorIs(t, err, ErrNotParticipant)

	d.Status = DateStatusCancelled
	_, err = d.Confirm("u1", now)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRefundTiers(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.Equal(t, 10, newDate(now.Add(24*time.Hour)).RefundTokens(10, now))
	require.Equal(t, 5, newDate(now.Add(5*time.Hour)).RefundTokens(10, now))
	require.Equal(t, 3, newDate(now.Add(4*time.Hour)).RefundTokens(7, now))
	require.Equal(t, 0, newDate(now.Add(3*time.Hour)).RefundTokens(10, now))
}

func TestTransitionsAndOverlap(t *testing.T) {
	require.False(t, CanTransition(DateStatusCompleted, DateStatusCancelled))
	require.False(t, CanTransition(DateStatusPending, DateStatusCompleted))
	require.True(t, CanTransition(DateStatusUser1Confirmed, DateStatusCancelled))
	require.True(t, DateStatusNoShow.Terminal())

	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	d := newDate(start)
	require.True(t, d.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	require.False(t, d.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	require.Equal(t, "u2", d.PartnerOf("u1"))
}
