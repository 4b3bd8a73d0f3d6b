// Package queue carries email delivery jobs over RabbitMQ.
package queue

import "context"

// EmailJob asks the email worker to deliver one stored notification.
type EmailJob struct {
	NotificationID string `json:"notification_id"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html"`
}

// Handler processes one job; a returned error rejects the delivery.
type Handler func(ctx context.Context, job EmailJob) error

// Publisher enqueues email jobs.
type Publisher interface {
	PublishEmail(ctx context.Context, job EmailJob) error
}

// InlinePublisher runs the handler in the caller's goroutine. It stands in for
// the broker when no RabbitMQ URL is configured.
type InlinePublisher struct {
	handler Handler
}

// NewInlinePublisher wraps handler.
func NewInlinePublisher(handler Handler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

// SetHandler replaces the handler; the notification service registers itself after construction.
func (p *InlinePublisher) SetHandler(handler Handler) {
	p.handler = handler
}

// PublishEmail delivers the job immediately.
func (p *InlinePublisher) PublishEmail(ctx context.Context, job EmailJob) error {
	if p.handler == nil {
		return nil
	}
	return p.handler(ctx, job)
}
