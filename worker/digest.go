package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"airshark/internal/digest"
)

// DigestWorker rewrites the day's digest file on an interval.
type DigestWorker struct {
	Builder  *digest.Builder
	Interval time.Duration
}

func (w *DigestWorker) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 6 * time.Hour
	}
	t := time.NewTicker(w.Interval)
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

func (w *DigestWorker) runOnce(ctx context.Context) {
	_, _, err := w.Builder.Write(ctx, false)
	switch {
	case errors.Is(err, digest.ErrNotEnoughPosts):
		slog.Info("digest-worker: skipped", "reason", err)
	case err != nil:
		slog.Error("digest-worker: write failed", "error", err)
	}
}
