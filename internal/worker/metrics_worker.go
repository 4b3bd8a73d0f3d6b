package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// MetricsRefresher recomputes dashboard metrics.
type MetricsRefresher interface {
	Refresh(ctx context.Context) ([]domain.DashboardMetric, error)
}

// StartMetricsWorker refreshes dashboard metrics every interval until ctx is done.
// A non-positive interval disables the worker.
func StartMetricsWorker(ctx context.Context, refresher MetricsRefresher, interval time.Duration, logger *zap.Logger) {
	if refresher == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, interval)
				if _, err := refresher.Refresh(runCtx); err != nil {
					logger.Warn("dashboard metrics refresh failed", zap.Error(err))
				}
				cancel()
			}
		}
	}()
}
