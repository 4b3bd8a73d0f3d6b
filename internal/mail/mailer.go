package mail

import (
	"context"

	"go.uber.org/zap"
)

// Message is a single outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes emails to the log instead of an SMTP relay.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message envelope.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email delivered",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.HTML)),
	)
	return nil
}
