package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datifyy/datifyy-service/internal/events"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	errFirst := errors.New("first failed")
	var seen []string
	d.Subscribe(events.EventDateCurated, func(_ context.Context, e events.Event) error {
		seen = append(seen, "first:"+e.AggregateID)
		return errFirst
	})
	d.Subscribe(events.EventDateCurated, func(_ context.Context, e events.Event) error {
		seen = append(seen, "second:"+e.AggregateID)
		require.NotEmpty(t, e.ID)
		require.False(t, e.Timestamp.IsZero())
		return nil
	})

	err := d.Publish(context.Background(), events.Event{Type: events.EventDateCurated, AggregateID: "d1"})
	require.ErrorIs(t, err, errFirst)
	require.EqualError(t, err, "date_curated: first failed")
	require.Equal(t, []string{"first:d1", "second:d1"}, seen)
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	ran := false
	d.Subscribe(events.EventBookingCancelled, func(context.Context, events.Event) error {
		panic("nil slot")
	})
	d.Subscribe(events.EventBookingCancelled, func(context.Context, events.Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), events.Event{Type: events.EventBookingCancelled})
	require.ErrorContains(t, err, "handler panic: nil slot")
	require.True(t, ran)
}

func TestPublishWithoutListeners(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	require.NoError(t, d.Publish(context.Background(), events.Event{Type: events.EventBookingCreated}))
}
