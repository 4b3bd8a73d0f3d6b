package service_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/service"
)

type slotFixture struct {
	clock    *clock
	slots    *memSlots
	bookings *memBookings
	events   *recorder
	avail    *service.AvailabilityService
	booking  *service.BookingService
}

func newSlotFixture() *slotFixture {
	f := &slotFixture{
		clock:    newClock(),
		slots:    newMemSlots(),
		bookings: newMemBookings(),
		events:   &recorder{},
	}
	f.avail = service.NewAvailabilityService(service.AvailabilityDependencies{
		SlotRepo:    f.slots,
		BookingRepo: f.bookings,
		Dispatcher:  f.events,
		Now:         f.clock.Now,
	})
	f.booking = service.NewBookingService(service.BookingDependencies{
		SlotRepo:    f.slots,
		BookingRepo: f.bookings,
		Dispatcher:  f.events,
		Now:         f.clock.Now,
	})
	return f
}

func (f *slotFixture) slotInput(start time.Time) service.SlotInput {
	return service.SlotInput{
		StartsAt: start,
		EndsAt:   start.Add(2 * time.Hour),
		DateType: domain.DateModeOnline,
	}
}

func (f *slotFixture) createSlot(t *testing.T, owner string, start time.Time) domain.AvailabilitySlot {
	t.Helper()
	res, err := f.avail.Create(context.Background(), owner, f.slotInput(start))
	require.NoError(t, err)
	require.Len(t, res.Slots, 1)
	return res.Slots[0]
}

func TestCreateSlotAppliesDefaults(t *testing.T) {
	f := newSlotFixture()
	slot := f.createSlot(t, "owner", f.clock.Now().Add(24*time.Hour))

	require.Equal(t, "UTC", slot.Timezone)
	require.Equal(t, 1, slot.Capacity)
	require.Equal(t, domain.RecurrenceNone, slot.Recurrence)
	require.Equal(t, domain.PolicyFlexible, slot.CancellationPolicy)
	require.Equal(t, domain.SlotRules.DefaultBuffer, slot.BufferMinutes)
	require.Equal(t, domain.SlotStatusActive, slot.Status)
	require.Nil(t, slot.SeriesID)
}

func TestCreateSlotValidation(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	start := f.clock.Now().Add(24 * time.Hour)

	tooShort := f.slotInput(start)
	tooShort.EndsAt = start.Add(10 * time.Minute)
	tooSoon := f.slotInput(f.clock.Now().Add(30 * time.Minute))
	badZone := f.slotInput(start)
	badZone.Timezone = "Nowhere/Land"
	badPolicy := f.slotInput(start)
	badPolicy.CancellationPolicy = "whenever"
	noEnd := f.slotInput(start)
	noEnd.Recurrence = domain.RecurrenceWeekly

	for name, in := range map[string]service.SlotInput{
		"too short":     tooShort,
		"too soon":      tooSoon,
		"bad timezone":  badZone,
		"bad policy":    badPolicy,
		"weekly no end": noEnd,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.avail.Create(ctx, "owner", in)
			require.Equal(t, http.StatusBadRequest, statusOf(t, err))
		})
	}
}

func TestWeeklySeriesSkipsOverlaps(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	start := f.clock.Now().Add(24 * time.Hour)
	f.createSlot(t, "owner", start.AddDate(0, 0, 7))

	end := start.AddDate(0, 0, 21)
	in := f.slotInput(start)
	in.Recurrence = domain.RecurrenceWeekly
	in.RecurrenceEnd = &end

	res, err := f.avail.Create(ctx, "owner", in)
	require.NoError(t, err)
	require.Len(t, res.Slots, 3)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, start.AddDate(0, 0, 7), res.Skipped[0].StartsAt)
	require.NotNil(t, res.SeriesID)
	for _, slot := range res.Slots {
		require.Equal(t, *res.SeriesID, *slot.SeriesID)
	}

	_, err = f.avail.Create(ctx, "owner", f.slotInput(start.Add(30*time.Minute)))
	require.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = f.avail.Create(ctx, "someone-else", f.slotInput(start))
	require.NoError(t, err, "overlap is checked per owner")
}

func TestWeeklySeriesStopsAtBookingHorizon(t *testing.T) {
	f := newSlotFixture()
	start := f.clock.Now().Add(24 * time.Hour)
	end := f.clock.Now().AddDate(0, 0, 200)
	in := f.slotInput(start)
	in.Recurrence = domain.RecurrenceWeekly
	in.RecurrenceEnd = &end

	res, err := f.avail.Create(context.Background(), "owner", in)
	require.NoError(t, err)
	horizon := f.clock.Now().Add(domain.SlotRules.MaxAdvance)
	for _, slot := range res.Slots {
		require.False(t, slot.StartsAt.After(horizon), "slot at %s is past the horizon", slot.StartsAt)
	}
	require.Len(t, res.Slots, 13)
	require.NotEmpty(t, res.Skipped)
	for _, skipped := range res.Skipped {
		require.True(t, skipped.StartsAt.After(horizon))
		require.Equal(t, "more than 90 days ahead", skipped.Reason)
	}
}

func TestSearchExcludesOwnAndPastSlots(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	start := f.clock.Now().Add(24 * time.Hour)
	f.createSlot(t, "owner", start)
	f.createSlot(t, "other", start)
	f.slots.put(domain.AvailabilitySlot{
		UserID:   "other",
		StartsAt: f.clock.Now().Add(-time.Hour),
		EndsAt:   f.clock.Now().Add(time.Hour),
		Status:   domain.SlotStatusActive,
		DateType: domain.DateModeOnline,
	})

	found, err := f.avail.Search(ctx, "owner", service.SlotListFilter{}, service.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	require.Equal(t, "other", found.Items[0].UserID)

	mine, err := f.avail.ListMine(ctx, "owner", service.SlotListFilter{}, service.Pagination{Page: 1, Limit: 500})
	require.NoError(t, err)
	require.Equal(t, 1, mine.Total)
	require.Equal(t, 100, mine.Limit)
}

func TestSlotOwnershipAndCapacity(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	slot := f.createSlot(t, "owner", f.clock.Now().Add(24*time.Hour))

	_, err := f.avail.Get(ctx, "intruder", slot.ID)
	require.Equal(t, http.StatusForbidden, statusOf(t, err))
	_, err = f.avail.Get(ctx, "owner", "missing")
	require.Equal(t, http.StatusNotFound, statusOf(t, err))

	capacity := 2
	updated, err := f.avail.Update(ctx, "owner", slot.ID, service.SlotUpdate{Capacity: &capacity})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Capacity)

	_, err = f.booking.Create(ctx, "b1", service.BookingInput{SlotID: slot.ID})
	require.NoError(t, err)
	_, err = f.booking.Create(ctx, "b2", service.BookingInput{SlotID: slot.ID})
	require.NoError(t, err)

	one := 1
	_, err = f.avail.Update(ctx, "owner", slot.ID, service.SlotUpdate{Capacity: &one})
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	err = f.avail.Delete(ctx, "owner", slot.ID)
	require.Equal(t, http.StatusConflict, statusOf(t, err))
}

func TestConcurrentBookingsRespectCapacity(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	slot := f.createSlot(t, "owner", f.clock.Now().Add(24*time.Hour))
	require.Equal(t, 1, slot.Capacity)

	const bookers = 8
	statuses := make([]int, bookers)
	var wg sync.WaitGroup
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.booking.Create(ctx, fmt.Sprintf("booker-%d", i), service.BookingInput{SlotID: slot.ID, Activity: "coffee"})
			if err == nil {
				statuses[i] = http.StatusCreated
				return
			}
			statuses[i] = statusOf(t, err)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, status := range statuses {
		if status == http.StatusCreated {
			created++
			continue
		}
		require.Equal(t, http.StatusConflict, status)
	}
	require.Equal(t, 1, created)

	active, err := f.bookings.CountActiveForSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.Equal(t, 1, active)
}

func TestCancelSlotCancelsBookings(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	slot := f.createSlot(t, "owner", f.clock.Now().Add(24*time.Hour))
	booking, err := f.booking.Create(ctx, "booker", service.BookingInput{SlotID: slot.ID, Activity: "coffee"})
	require.NoError(t, err)

	cancelled, n, err := f.avail.Cancel(ctx, "owner", slot.ID, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, domain.SlotStatusCancelled, cancelled.Status)

	stored, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BookingCancelled, stored.Status)
	require.Equal(t, "slot cancelled by owner", *stored.CancellationReason)
	require.Contains(t, f.events.types(), events.EventBookingCancelled)

	_, _, err = f.avail.Cancel(ctx, "owner", slot.ID, "again")
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	require.NoError(t, f.avail.Delete(ctx, "owner", slot.ID))
	_, err = f.avail.Get(ctx, "owner", slot.ID)
	require.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestBookingRules(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	slot := f.createSlot(t, "owner", f.clock.Now().Add(24*time.Hour))

	_, err := f.booking.Create(ctx, "owner", service.BookingInput{SlotID: slot.ID})
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	_, err = f.booking.Create(ctx, "booker", service.BookingInput{SlotID: slot.ID, Activity: "skydiving"})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	booking, err := f.booking.Create(ctx, "booker", service.BookingInput{SlotID: slot.ID})
	require.NoError(t, err)
	require.Equal(t, domain.BookingPending, booking.Status)
	require.Equal(t, domain.ActivityType("casual"), booking.Activity)
	require.Equal(t, "owner", booking.SlotOwnerID)

	_, err = f.booking.Create(ctx, "second", service.BookingInput{SlotID: slot.ID})
	require.Equal(t, http.StatusConflict, statusOf(t, err), "slot is full")

	_, err = f.booking.Get(ctx, "stranger", booking.ID)
	require.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = f.booking.Confirm(ctx, "booker", booking.ID)
	require.Equal(t, http.StatusForbidden, statusOf(t, err), "only the owner confirms")

	confirmed, err := f.booking.Confirm(ctx, "owner", booking.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BookingConfirmed, confirmed.Status)

	_, err = f.booking.Complete(ctx, "owner", booking.ID)
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err), "slot has not started")

	f.clock.Advance(25 * time.Hour)
	completed, err := f.booking.Complete(ctx, "booker", booking.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BookingCompleted, completed.Status)

	incoming, err := f.booking.ListIncoming(ctx, "owner", nil, service.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, incoming.Total)
	mine, err := f.booking.ListMine(ctx, "owner", nil, service.Pagination{})
	require.NoError(t, err)
	require.Zero(t, mine.Total)

	require.Equal(t, []events.EventType{events.EventBookingCreated, events.EventBookingConfirmed}, f.events.types())
}

func TestBookingCancelRecordsPolicyNotice(t *testing.T) {
	f := newSlotFixture()
	ctx := context.Background()
	in := f.slotInput(f.clock.Now().Add(30 * time.Hour))
	in.CancellationPolicy = domain.Policy24Hours
	in.Capacity = 2
	res, err := f.avail.Create(ctx, "owner", in)
	require.NoError(t, err)
	slotID := res.Slots[0].ID

	early, err := f.booking.Create(ctx, "early", service.BookingInput{SlotID: slotID})
	require.NoError(t, err)
	late, err := f.booking.Create(ctx, "late", service.BookingInput{SlotID: slotID})
	require.NoError(t, err)

	cancelled, err := f.booking.Cancel(ctx, "early", early.ID, "changed plans")
	require.NoError(t, err)
	require.True(t, *cancelled.WithinPolicy)

	f.clock.Advance(10 * time.Hour)
	cancelled, err = f.booking.Cancel(ctx, "owner", late.ID, "")
	require.NoError(t, err)
	require.False(t, *cancelled.WithinPolicy)
	require.Nil(t, cancelled.CancellationReason)
	require.Equal(t, "owner", *cancelled.CancelledBy)

	_, err = f.booking.Cancel(ctx, "late", late.ID, "twice")
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}
