package workers

import (
	"context"
	"time"

	"ledgerbot/internal/metrics"
)

// Refresher recomputes mark-to-market fields for every live position
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// MarkRefreshWorker periodically re-marks all live positions against live
// quotes. A failed cycle is logged and retried on the next tick; it never
// takes the process down.
type MarkRefreshWorker struct {
	*BaseWorker
	refresher Refresher
}

// NewMarkRefreshWorker creates the mark refresh worker
func NewMarkRefreshWorker(refresher Refresher, interval time.Duration, enabled bool) *MarkRefreshWorker {
	return &MarkRefreshWorker{
		BaseWorker: NewBaseWorker("mark_refresh", interval, enabled),
		refresher:  refresher,
	}
}

// Run executes one refresh cycle
func (w *MarkRefreshWorker) Run(ctx context.Context) error {
	start := time.Now()

	err := w.refresher.RefreshAll(ctx)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RefreshCycles.WithLabelValues("error").Inc()
		w.RecordError(err)
		return err
	}

	metrics.RefreshCycles.WithLabelValues("success").Inc()
	w.RecordRun()
	return nil
}
