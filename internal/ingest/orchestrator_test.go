package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"airshark/internal/metrics"
	"airshark/internal/rotation"
	"airshark/internal/storage"
	"airshark/internal/twitterapi"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var t0 = time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]json.RawMessage
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, query, _ string) (twitterapi.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return twitterapi.SearchResult{}, err
	}
	return twitterapi.SearchResult{Tweets: f.results[query]}, nil
}

func rawTweet(id, text string, created time.Time, verified bool, followers int, accountAge time.Duration) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"id":        id,
		"text":      text,
		"createdAt": created.Format(time.RFC3339),
		"likeCount": 10,
		"author": map[string]any{
			"userName":       "user" + id,
			"isBlueVerified": verified,
			"followers":      followers,
			"createdAt":      t0.Add(-accountAge).Format(time.RFC3339),
		},
	})
	return b
}

func newTestOrchestrator(s Searcher, queries []string) (*Orchestrator, *storage.MemoryStore, *metrics.Metrics) {
	store := storage.NewMemoryStore(storage.DefaultPolicy(), nil)
	m := metrics.New()
	o := New(s, store, rotation.New(queries, 10*time.Minute), Options{
		MaxCallsPerHour: 1000,
		Metrics:         m,
		Now:             func() time.Time { return t0 },
	})
	return o, store, m
}

func TestRepresentativeEndToEnd(t *testing.T) {
	weak := rawTweet("A", "FOO airdrop is live", t0.Add(-time.Hour), false, 50, 10*24*time.Hour)
	strong := rawTweet("B", "FOO airdrop details for holders", t0.Add(-2*time.Hour), true, 10000, 2*365*24*time.Hour)

	for _, order := range [][]json.RawMessage{{weak, strong}, {strong, weak}} {
		fs := &fakeSearcher{results: map[string][]json.RawMessage{"q": order}}
		o, store, _ := newTestOrchestrator(fs, []string{"q"})

		if n := o.RunFetchCycle(context.Background(), "q"); n < 1 {
			t.Fatalf("accepted %d posts, want at least 1", n)
		}
		rep, ok := store.Representative("FOO")
		if !ok || rep.ID != "B" {
			t.Fatalf("representative = %q, want B", rep.ID)
		}
		if store.Len() != 1 {
			t.Errorf("Len = %d, want 1", store.Len())
		}
	}
}

func TestRunFetchCycleMixedBatch(t *testing.T) {
	batch := []json.RawMessage{
		rawTweet("1", "Our $SOL airdrop is live!", t0, false, 10, 0),
		rawTweet("2", "Get $BONK before the $50 bonus ends", t0, false, 10, 0),
		rawTweet("3", "Ancient $OLD drop", t0.Add(-9*24*time.Hour), false, 10, 0),
		json.RawMessage(`{"id": "4", "text": broken`),
		rawTweet("5", "get $bonk before the $50 bonus ends!!", t0, false, 10, 0),
	}
	fs := &fakeSearcher{results: map[string][]json.RawMessage{"q": batch}}
	o, store, m := newTestOrchestrator(fs, []string{"q"})

	if n := o.RunFetchCycle(context.Background(), "q"); n != 2 {
		t.Fatalf("accepted %d, want 2", n)
	}
	if _, ok := store.Representative("BONK"); !ok {
		t.Errorf("BONK not retained")
	}
	if _, ok := store.Representative("SOL"); ok {
		t.Errorf("SOL must never be a token")
	}
	checks := map[storage.Reason]float64{
		storage.ReasonAccepted:      2,
		storage.ReasonStale:         1,
		storage.ReasonMalformed:     1,
		storage.ReasonDuplicateText: 1,
	}
	for reason, want := range checks {
		if got := testutil.ToFloat64(m.AcceptDecisions.WithLabelValues(string(reason))); got != want {
			t.Errorf("decisions{reason=%s} = %v, want %v", reason, got, want)
		}
	}
	if got := testutil.ToFloat64(m.PostsSeen); got != 5 {
		t.Errorf("posts seen = %v", got)
	}
}

func TestRunFetchCycleFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{"auth", &twitterapi.AuthError{StatusCode: 401}, "auth"},
		{"rate limit", &twitterapi.RateLimitError{}, "rate_limit"},
		{"server", &twitterapi.StatusError{StatusCode: 503}, "server"},
		{"malformed", fmt.Errorf("%w: no tweets array", twitterapi.ErrMalformedResponse), "malformed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := &fakeSearcher{errs: map[string]error{"q": tc.err}}
			o, store, m := newTestOrchestrator(fs, []string{"q"})
			if n := o.RunFetchCycle(context.Background(), "q"); n != 0 {
				t.Errorf("accepted %d, want 0", n)
			}
			if store.Len() != 0 {
				t.Errorf("store changed on failure")
			}
			if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues(tc.kind)); got != 1 {
				t.Errorf("failures{kind=%s} = %v, want 1", tc.kind, got)
			}
		})
	}
}

// stalledSearcher never answers; it returns once the cycle context expires.
type stalledSearcher struct{}

func (stalledSearcher) Search(ctx context.Context, _, _ string) (twitterapi.SearchResult, error) {
	<-ctx.Done()
	return twitterapi.SearchResult{}, fmt.Errorf("twitterapi: search: %w", ctx.Err())
}

func TestRunFetchCycleTimeout(t *testing.T) {
	store := storage.NewMemoryStore(storage.DefaultPolicy(), nil)
	m := metrics.New()
	o := New(stalledSearcher{}, store, rotation.New([]string{"q"}, time.Minute), Options{
		MaxCallsPerHour: 10,
		CycleTimeout:    20 * time.Millisecond,
		Metrics:         m,
	})

	start := time.Now()
	if n := o.RunFetchCycle(context.Background(), "q"); n != 0 {
		t.Errorf("accepted %d, want 0", n)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cycle ran for %v, want it bounded by the timeout", elapsed)
	}
	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("timeout")); got != 1 {
		t.Errorf("failures{kind=timeout} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FetchCycles.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed cycles = %v, want 1", got)
	}
	if store.Len() != 0 {
		t.Errorf("store changed on timeout")
	}
}

func TestCallBudget(t *testing.T) {
	fs := &fakeSearcher{}
	store := storage.NewMemoryStore(storage.DefaultPolicy(), nil)
	m := metrics.New()
	o := New(fs, store, rotation.New([]string{"q"}, time.Minute), Options{
		MaxCallsPerHour: 2,
		CycleTimeout:    50 * time.Millisecond,
		Metrics:         m,
	})
	for i := 0; i < 3; i++ {
		o.RunFetchCycle(context.Background(), "q")
	}
	if len(fs.calls) != 2 {
		t.Errorf("provider calls = %d, want 2", len(fs.calls))
	}
	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("budget")); got != 1 {
		t.Errorf("budget failures = %v, want 1", got)
	}
}

func TestIncrementalStopsOnEmptyCycle(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]json.RawMessage{
		"a": {rawTweet("1", "AAA token launch", t0, false, 10, 0)},
		"b": nil,
		"c": {rawTweet("2", "CCC token launch", t0, false, 10, 0)},
	}}
	o, _, _ := newTestOrchestrator(fs, []string{"a", "b", "c"})

	if n := o.RunIncrementalCycle(context.Background()); n != 1 {
		t.Errorf("accepted %d, want 1", n)
	}
	if got := fmt.Sprint(fs.calls); got != "[a b]" {
		t.Errorf("calls = %s, want [a b]", got)
	}
	if o.Rotation().Current() != "c" {
		t.Errorf("rotation at %q, want c", o.Rotation().Current())
	}
}

func TestIncrementalCapsCycles(t *testing.T) {
	results := map[string][]json.RawMessage{}
	queries := []string{"a", "b", "c"}
	for i := 0; i < 30; i++ {
		q := queries[i%3]
		results[q] = append(results[q], rawTweet(fmt.Sprint(i), fmt.Sprintf("unique post number %d", i), t0, false, 10, 0))
	}
	fs := &fakeSearcher{results: results}
	store := storage.NewMemoryStore(storage.DefaultPolicy(), nil)
	o := New(fs, store, rotation.New(queries, time.Minute), Options{
		MaxCallsPerHour:  1000,
		MaxCyclesPerPass: 2,
		Now:              func() time.Time { return t0 },
	})
	o.RunIncrementalCycle(context.Background())
	if got := fmt.Sprint(fs.calls); got != "[a b]" {
		t.Errorf("calls = %s, want [a b]", got)
	}
	if store.Len() != 20 {
		t.Errorf("Len = %d, want 20", store.Len())
	}
}

func TestRefresh(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]json.RawMessage{
		"a": {rawTweet("1", "AAA token launch", t0, false, 10, 0)},
		"b": {rawTweet("2", "BBB token launch", t0, false, 10, 0)},
	}}
	now := t0
	store := storage.NewMemoryStore(storage.DefaultPolicy(), nil)
	o := New(fs, store, rotation.New([]string{"a", "b"}, 10*time.Minute), Options{
		MaxCallsPerHour: 1000,
		Now:             func() time.Time { return now },
	})

	if n := o.Refresh(context.Background(), now); n != 2 {
		t.Fatalf("initial burst accepted %d, want 2", n)
	}
	if len(fs.calls) != 2 {
		t.Fatalf("burst calls = %v", fs.calls)
	}
	if n := o.Refresh(context.Background(), now.Add(time.Minute)); n != 0 || len(fs.calls) != 2 {
		t.Errorf("throttled refresh fetched: n=%d calls=%v", n, fs.calls)
	}
	now = t0.Add(11 * time.Minute)
	o.Refresh(context.Background(), now)
	if len(fs.calls) != 3 {
		t.Errorf("due refresh calls = %v", fs.calls)
	}
}
