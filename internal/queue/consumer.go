package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// ConsumerConfig describes where the consumer reads from.
type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

// Consume reads email jobs until ctx is cancelled, reconnecting with exponential backoff.
// Jobs whose handler fails are rejected without requeue.
func Consume(ctx context.Context, cfg ConsumerConfig, handler Handler, logger *zap.Logger) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			logger.Warn("email consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, handler, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("email consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, handler Handler, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		logger.Warn("email consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	logger.Info("email consumer started", zap.String("queue", cfg.Queue))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleDelivery(ctx, d.Body, handler); err != nil {
				logger.Warn("email consumer: job failed", zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleDelivery(ctx context.Context, body []byte, handler Handler) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return handler(ctx, job)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
