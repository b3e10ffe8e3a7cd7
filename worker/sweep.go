package worker

import (
	"context"
	"log/slog"
	"time"

	"airshark/internal/metrics"
)

// Sweeper drops posts past the retention window.
type Sweeper interface {
	Sweep(now time.Time) int
	Len() int
	Tokens() int
}

// SweepWorker runs the retention sweep on an interval.
type SweepWorker struct {
	Store    Sweeper
	Interval time.Duration
	Metrics  *metrics.Metrics
}

func (w *SweepWorker) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = time.Hour
	}
	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(time.Now())
		}
	}
}

func (w *SweepWorker) runOnce(now time.Time) int {
	n := w.Store.Sweep(now)
	if w.Metrics != nil {
		w.Metrics.PostsSwept.Add(float64(n))
		w.Metrics.RetainedPosts.Set(float64(w.Store.Len()))
		w.Metrics.RetainedTokens.Set(float64(w.Store.Tokens()))
	}
	if n > 0 {
		slog.Info("sweeper: removed expired posts", "removed", n, "retained", w.Store.Len())
	}
	return n
}
