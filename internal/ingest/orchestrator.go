// Package ingest drives fetch cycles: it asks the provider for one query at a time,
// normalizes every hit and offers it to the store.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"airshark/internal/metrics"
	"airshark/internal/model"
	"airshark/internal/normalize"
	"airshark/internal/rotation"
	"airshark/internal/storage"
	"airshark/internal/twitterapi"

	"golang.org/x/time/rate"
)

const (
	DefaultCycleTimeout     = 30 * time.Second
	DefaultMaxCallsPerHour  = 6
	DefaultMaxCyclesPerPass = 10
)

// Searcher is the provider call the orchestrator depends on.
type Searcher interface {
	Search(ctx context.Context, query, cursor string) (twitterapi.SearchResult, error)
}

// Store receives normalized posts.
type Store interface {
	Accept(p model.Post, now time.Time) storage.Decision
	Len() int
	Tokens() int
}

type Options struct {
	MaxCallsPerHour  int
	CycleTimeout     time.Duration
	MaxCyclesPerPass int
	Metrics          *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs fetch cycles against a store. Refresh calls never overlap.
type Orchestrator struct {
	searcher  Searcher
	store     Store
	rotation  *rotation.Scheduler
	limiter   *rate.Limiter
	timeout   time.Duration
	maxCycles int
	metrics   *metrics.Metrics
	now       func() time.Time

	mu sync.Mutex
}

func New(searcher Searcher, store Store, rot *rotation.Scheduler, opts Options) *Orchestrator {
	if opts.MaxCallsPerHour <= 0 {
		opts.MaxCallsPerHour = DefaultMaxCallsPerHour
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = DefaultCycleTimeout
	}
	if opts.MaxCyclesPerPass <= 0 {
		opts.MaxCyclesPerPass = DefaultMaxCyclesPerPass
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		searcher:  searcher,
		store:     store,
		rotation:  rot,
		limiter:   rate.NewLimiter(rate.Every(time.Hour/time.Duration(opts.MaxCallsPerHour)), opts.MaxCallsPerHour),
		timeout:   opts.CycleTimeout,
		maxCycles: opts.MaxCyclesPerPass,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}
}

// Rotation exposes the scheduler for diagnostics.
func (o *Orchestrator) Rotation() *rotation.Scheduler {
	return o.rotation
}

// RunFetchCycle performs one rate-limited provider call for query and returns how many
// posts the store accepted. Failures are logged and yield 0.
func (o *Orchestrator) RunFetchCycle(ctx context.Context, query string) int {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		slog.Warn("ingest: hourly call budget exhausted, skipping cycle", "query", query, "error", err)
		o.fail("budget")
		return 0
	}

	start := time.Now()
	res, err := o.searcher.Search(ctx, query, "")
	if o.metrics != nil {
		o.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		kind := twitterapi.Kind(err)
		if kind == "auth" {
			slog.Error("ingest: provider rejected credentials", "query", query, "kind", kind, "error", err)
		} else {
			slog.Warn("ingest: fetch failed", "query", query, "kind", kind, "error", err)
		}
		o.fail(kind)
		return 0
	}

	now := o.now()
	accepted := 0
	reasons := map[storage.Reason]int{}
	for _, raw := range res.Tweets {
		p := normalize.Normalize(raw, query, now)
		d := o.store.Accept(p, now)
		reasons[d.Reason]++
		if d.Accepted {
			accepted++
		}
		if d.Reason == storage.ReasonReplaced {
			slog.Debug("ingest: token representative replaced", "token", p.Token, "old", d.Replaced, "new", p.ID)
		}
	}
	o.observe(len(res.Tweets), accepted, reasons)
	slog.Info("ingest: cycle completed", "query", query, "received", len(res.Tweets), "accepted", accepted, "retained", o.store.Len())
	return accepted
}

// RunInitialBurst fetches every query once, in order.
func (o *Orchestrator) RunInitialBurst(ctx context.Context) int {
	total := 0
	for _, q := range o.rotation.Queries() {
		if ctx.Err() != nil {
			break
		}
		n := o.RunFetchCycle(ctx, q)
		o.rotation.Record(o.now(), n)
		total += n
	}
	slog.Info("ingest: initial burst completed", "accepted", total)
	return total
}

// RunIncrementalCycle walks the rotation for up to MaxCyclesPerPass cycles and stops at
// the first cycle that accepts nothing.
func (o *Orchestrator) RunIncrementalCycle(ctx context.Context) int {
	total := 0
	for i := 0; i < o.maxCycles; i++ {
		if ctx.Err() != nil {
			break
		}
		q := o.rotation.Next()
		n := o.RunFetchCycle(ctx, q)
		o.rotation.Record(o.now(), n)
		total += n
		if n == 0 {
			break
		}
	}
	return total
}

// Refresh is the poll entry point: an initial burst the first time, an incremental pass
// when one is due, otherwise nothing.
func (o *Orchestrator) Refresh(ctx context.Context, now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case !o.rotation.Fetched():
		return o.RunInitialBurst(ctx)
	case o.rotation.ShouldFetch(now):
		return o.RunIncrementalCycle(ctx)
	default:
		return 0
	}
}

func (o *Orchestrator) fail(kind string) {
	if o.metrics == nil {
		return
	}
	o.metrics.FetchCycles.WithLabelValues("failed").Inc()
	o.metrics.FetchFailures.WithLabelValues(kind).Inc()
}

func (o *Orchestrator) observe(received, accepted int, reasons map[storage.Reason]int) {
	if o.metrics == nil {
		return
	}
	outcome := "ok"
	if accepted == 0 {
		outcome = "empty"
	}
	o.metrics.FetchCycles.WithLabelValues(outcome).Inc()
	o.metrics.PostsSeen.Add(float64(received))
	for r, n := range reasons {
		o.metrics.AcceptDecisions.WithLabelValues(string(r)).Add(float64(n))
	}
	o.metrics.RetainedPosts.Set(float64(o.store.Len()))
	o.metrics.RetainedTokens.Set(float64(o.store.Tokens()))
}
