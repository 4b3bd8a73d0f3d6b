package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlinePublisherRunsHandler(t *testing.T) {
	var got EmailJob
	pub := NewInlinePublisher(func(_ context.Context, job EmailJob) error {
		got = job
		return nil
	})

	job := EmailJob{NotificationID: "n1", To: "a@b.com", Subject: "hi"}
	require.NoError(t, pub.PublishEmail(context.Background(), job))
	require.Equal(t, job, got)
}

func TestInlinePublisherWithoutHandler(t *testing.T) {
	pub := NewInlinePublisher(nil)
	require.NoError(t, pub.PublishEmail(context.Background(), EmailJob{}))
}

func TestHandleDeliveryDecodesJob(t *testing.T) {
	var got EmailJob
	err := handleDelivery(context.Background(), []byte(`{"notification_id":"n2","to":"x@y.com"}`), func(_ context.Context, job EmailJob) error {
		got = job
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "n2", got.NotificationID)
	require.Equal(t, "x@y.com", got.To)
}

func TestHandleDeliveryRejectsBadPayload(t *testing.T) {
	called := false
	err := handleDelivery(context.Background(), []byte(`not json`), func(context.Context, EmailJob) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}

func TestHandleDeliveryPropagatesHandlerError(t *testing.T) {
	boom := errors.New("smtp down")
	err := handleDelivery(context.Background(), []byte(`{}`), func(context.Context, EmailJob) error { return boom })
	require.ErrorIs(t, err, boom)
}
