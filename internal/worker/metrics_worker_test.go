package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(context.Context) ([]domain.DashboardMetric, error) {
	r.calls.Add(1)
	return nil, nil
}

func TestMetricsWorkerRefreshesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	refresher := &countingRefresher{}

	StartMetricsWorker(ctx, refresher, 5*time.Millisecond, zap.NewNop())
	require.Eventually(t, func() bool { return refresher.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	stopped := refresher.calls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, stopped, refresher.calls.Load())
}

func TestMetricsWorkerDisabled(t *testing.T) {
	refresher := &countingRefresher{}
	StartMetricsWorker(context.Background(), refresher, 0, zap.NewNop())
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, refresher.calls.Load())
}
