// Package worker runs the refresh and download loops that drive the
// ingestion pipeline without external scheduling infrastructure.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	workerPkg "channelmirror/internal/infra/worker"
	"channelmirror/internal/usecase/refresh"
)

// RefreshWorker runs refresh.Service.RefreshAll on a fixed interval, run
// immediately then every interval thereafter. A single goroutine drives a
// sequential loop: there is never more than one refresh cycle in flight.
// A tick that arrives while a cycle is still running is dropped, not
// queued, guarded by an atomic.Bool rather than a second goroutine, per
// the "do not use concurrent timer callbacks" design note this binds to.
type RefreshWorker struct {
	Service  *refresh.Service
	Interval time.Duration
	Metrics  *workerPkg.WorkerMetrics
	Logger   *slog.Logger

	running atomic.Bool
}

// NewRefreshWorker constructs a RefreshWorker ready to Run.
func NewRefreshWorker(svc *refresh.Service, interval time.Duration, metrics *workerPkg.WorkerMetrics, logger *slog.Logger) *RefreshWorker {
	return &RefreshWorker{Service: svc, Interval: interval, Metrics: metrics, Logger: logger}
}

// Run blocks until ctx is cancelled. It runs one cycle immediately, then one
// every Interval. Shutdown lets the current cycle finish (RefreshAll itself
// observes ctx cancellation via the Fetcher it calls) before returning.
func (w *RefreshWorker) Run(ctx context.Context) {
	w.runCycle(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("refresh worker stopping")
			return
		case <-ticker.C:
			if !w.running.CompareAndSwap(false, true) {
				w.Logger.Warn("refresh worker: previous cycle still running, skipping tick")
				w.Metrics.RecordRefreshCycleRun("skipped")
				continue
			}
			w.runCycle(ctx)
			w.running.Store(false)
		}
	}
}

func (w *RefreshWorker) runCycle(ctx context.Context) {
	start := time.Now()
	w.Logger.Info("refresh cycle started")

	stats, err := w.Service.RefreshAll(ctx)
	duration := time.Since(start)
	w.Metrics.RecordRefreshCycleDuration(duration.Seconds())

	if err != nil {
		w.Metrics.RecordRefreshCycleRun("failure")
		w.Logger.Error("refresh cycle failed", slog.Any("error", err), slog.Duration("duration", duration))
		return
	}

	w.Metrics.RecordRefreshCycleRun("success")
	w.Metrics.RecordEpisodesDiscovered(int(stats.Found))
	w.Metrics.RecordRefreshCycleSuccess()
	w.Logger.Info("refresh cycle completed",
		slog.Int("channels", stats.Channels),
		slog.Int64("found", stats.Found),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicate", stats.Duplicate),
		slog.Duration("duration", duration))
}
