package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"airshark/internal/metrics"
	"airshark/internal/model"
	"airshark/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type funcWorker func(ctx context.Context) error

func (f funcWorker) Start(ctx context.Context) error { return f(ctx) }

func TestManagerStopsOnCancel(t *testing.T) {
	var stopped atomic.Int32
	w := funcWorker(func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewManager(w, w).Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
	if stopped.Load() != 2 {
		t.Errorf("stopped workers = %d, want 2", stopped.Load())
	}
}

func TestManagerReportsWorkerError(t *testing.T) {
	boom := errors.New("boom")
	failing := funcWorker(func(context.Context) error { return boom })
	waiting := funcWorker(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	done := make(chan error, 1)
	go func() { done <- NewManager(failing, waiting).Start(context.Background()) }()
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Start = %v, want boom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop after a worker failed")
	}
}

type countingRefresher struct{ calls atomic.Int32 }

func (r *countingRefresher) Refresh(context.Context, time.Time) int {
	r.calls.Add(1)
	return 0
}

func TestIngestWorkerRunsImmediately(t *testing.T) {
	ref := &countingRefresher{}
	w := &IngestWorker{Orchestrator: ref, Tick: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for ref.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if ref.calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", ref.calls.Load())
	}
}

func TestSweepWorkerRunOnce(t *testing.T) {
	now := time.Now()
	store := storage.NewMemoryStore(storage.DefaultPolicy(), nil)
	store.Accept(model.Post{ID: "1", Text: "old", Token: "OLD", CreatedAt: now.Add(-40 * 24 * time.Hour)}, now.Add(-35*24*time.Hour))
	store.Accept(model.Post{ID: "2", Text: "fresh", Token: "NEW", CreatedAt: now}, now)
	m := metrics.New()
	m.RetainedTokens.Set(2)
	w := &SweepWorker{Store: store, Metrics: m}

	if n := w.runOnce(now); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if got := testutil.ToFloat64(m.PostsSwept); got != 1 {
		t.Errorf("posts swept = %v", got)
	}
	if got := testutil.ToFloat64(m.RetainedPosts); got != 1 {
		t.Errorf("retained = %v", got)
	}
	if got := testutil.ToFloat64(m.RetainedTokens); got != 1 {
		t.Errorf("retained tokens = %v, want 1", got)
	}
}
