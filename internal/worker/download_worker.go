package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"channelmirror/internal/domain/entity"
	workerPkg "channelmirror/internal/infra/worker"
	"channelmirror/internal/usecase/pipeline"
	"channelmirror/internal/usecase/queue"
)

// DownloadWorker continuously claims due queue items and runs them through
// the pipeline, one at a time. It does not itself bound concurrency — that
// is the pipeline's concurrency gate's job (§4.3) — this loop is a single
// dispatcher that blocks on each pipeline run in turn.
type DownloadWorker struct {
	Queue        *queue.Service
	Pipeline     *pipeline.Pipeline
	PollInterval time.Duration
	Metrics      *workerPkg.WorkerMetrics
	Logger       *slog.Logger

	// wg tracks the in-flight pipeline run so Run can wait for it to
	// finish before returning, in the teacher's notify.Service shutdown
	// idiom: signal cancellation, then wait with a bounded timeout.
	wg sync.WaitGroup
}

// NewDownloadWorker constructs a DownloadWorker ready to Run.
func NewDownloadWorker(queueSvc *queue.Service, p *pipeline.Pipeline, pollInterval time.Duration, metrics *workerPkg.WorkerMetrics, logger *slog.Logger) *DownloadWorker {
	return &DownloadWorker{Queue: queueSvc, Pipeline: p, PollInterval: pollInterval, Metrics: metrics, Logger: logger}
}

// Run blocks until ctx is cancelled. Each iteration claims and processes at
// most one queue item; if nothing was available, it sleeps PollInterval (or
// until ctx is cancelled) before trying again. A claimed item always runs to
// completion even if ctx is cancelled mid-run: the pipeline itself observes
// cancellation and returns the episode to pending rather than leaving it
// stuck in_progress.
func (w *DownloadWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("download worker stopping")
			w.wg.Wait()
			return
		default:
		}

		processed := w.processOne(ctx)
		if !processed {
			select {
			case <-ctx.Done():
				w.Logger.Info("download worker stopping")
				w.wg.Wait()
				return
			case <-time.After(w.PollInterval):
			}
		}
	}
}

// processOne claims and runs a single due queue item, if one exists.
// It reports whether it found anything to process.
func (w *DownloadWorker) processOne(ctx context.Context) bool {
	item, err := w.Queue.NextDue(ctx)
	if err != nil {
		w.Logger.Error("download worker: failed to select next item", slog.Any("error", err))
		return false
	}
	if item == nil {
		w.Metrics.RecordDownloadClaim("empty")
		return false
	}

	claimed, err := w.Queue.Claim(ctx, item.ID)
	if err != nil {
		if errors.Is(err, entity.ErrConflict) {
			// Lost a race with another dispatcher or a cancellation reset;
			// the item will be picked up again on a future tick.
			w.Metrics.RecordDownloadClaim("conflict")
			return false
		}
		w.Logger.Error("download worker: failed to claim item",
			slog.String("queue_item_id", item.ID), slog.Any("error", err))
		return false
	}
	w.Metrics.RecordDownloadClaim("claimed")

	w.wg.Add(1)
	defer w.wg.Done()
	w.runItem(ctx, claimed)
	return true
}

func (w *DownloadWorker) runItem(ctx context.Context, item *entity.QueueItem) {
	w.Logger.Info("download worker: processing item",
		slog.String("queue_item_id", item.ID), slog.String("episode_id", item.EpisodeID))

	result := w.Pipeline.Run(ctx, item.EpisodeID, nil)

	if result.Success {
		if err := w.Queue.MarkCompleted(ctx, item.ID); err != nil {
			w.Logger.Error("download worker: failed to mark completed",
				slog.String("queue_item_id", item.ID), slog.Any("error", err))
		}
		w.Logger.Info("download worker: item completed",
			slog.String("queue_item_id", item.ID), slog.Duration("duration", result.Duration))
		return
	}

	message := ""
	if result.Err != nil {
		message = result.Err.Error()
	}
	// Cancelled results are the one case where ctx is guaranteed Done here;
	// use a detached context so the queue item's reset to pending/retrying
	// still lands instead of racing the shutdown cancellation.
	safeCtx := context.WithoutCancel(ctx)
	if err := w.Queue.MarkFailed(safeCtx, item.ID, result.ErrorKind, message); err != nil {
		w.Logger.Error("download worker: failed to mark failed",
			slog.String("queue_item_id", item.ID), slog.Any("error", err))
	}
	w.Logger.Warn("download worker: item failed",
		slog.String("queue_item_id", item.ID),
		slog.String("error_kind", string(result.ErrorKind)),
		slog.String("error", message))
}
