package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/queue"
	"github.com/datifyy/datifyy-service/internal/service"
)

// StartNotificationWorker registers notification handlers and starts email delivery.
// With a RabbitMQ URL the jobs are consumed from the broker in a goroutine; otherwise the
// inline publisher delivers them in the publishing request.
func StartNotificationWorker(ctx context.Context, cfg config.QueueConfig, notifications *service.NotificationService, inline *queue.InlinePublisher, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()

	if cfg.URL == "" {
		if inline != nil {
			inline.SetHandler(notifications.HandleEmailJob)
		}
		logger.Info("email worker running inline")
		return
	}

	go queue.Consume(ctx, queue.ConsumerConfig{
		URL:      cfg.URL,
		Queue:    cfg.EmailQueue,
		Prefetch: cfg.Prefetch,
	}, notifications.HandleEmailJob, logger)
	logger.Info("email worker consuming", zap.String("queue", cfg.EmailQueue))
}
