package worker

import (
	"context"
	"log/slog"
	"time"
)

// Refresher is the orchestrator entry point the ingest worker polls.
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) int
}

// IngestWorker polls Refresh so the feed stays fresh without client traffic. Refresh
// itself decides whether a fetch is due, so Tick can be shorter than the fetch interval.
type IngestWorker struct {
	Orchestrator Refresher
	Tick         time.Duration
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.Tick <= 0 {
		w.Tick = time.Minute
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *IngestWorker) runOnce(ctx context.Context) {
	if n := w.Orchestrator.Refresh(ctx, time.Now()); n > 0 {
		slog.Info("ingest-worker: refresh accepted posts", "accepted", n)
	}
}
