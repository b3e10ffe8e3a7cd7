// Package rotation cycles through the configured search queries and decides when the
// next fetch is due.
package rotation

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between incremental fetch passes.
const DefaultInterval = 10 * time.Minute

// DefaultQueries are the searches rotated through when none are configured.
var DefaultQueries = []string{
	"(airdrop solana)",
	"(airdrop sol)",
	"(token solana airdrop)",
	"(giveaway solana)",
	"(drop solana)",
}

// State is a point-in-time copy of the scheduler, for diagnostics.
type State struct {
	Queries                []string  `json:"queries"`
	Index                  int       `json:"index"`
	LastFetch              time.Time `json:"last_fetch"`
	ConsecutiveEmptyCycles int       `json:"consecutive_empty_cycles"`
	CompletedCycles        int       `json:"completed_cycles"`
}

// Scheduler hands out queries round-robin. It is safe for concurrent use.
type Scheduler struct {
	interval time.Duration

	mu        sync.Mutex
	queries   []string
	index     int
	lastFetch time.Time
	empty     int
	completed int
}

// New creates a scheduler over queries. An empty list falls back to DefaultQueries.
func New(queries []string, interval time.Duration) *Scheduler {
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		queries:  append([]string(nil), queries...),
	}
}

// Next returns the current query and advances the index.
func (s *Scheduler) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queries[s.index]
	s.index = (s.index + 1) % len(s.queries)
	return q
}

// Current returns the query Next would hand out, without advancing.
func (s *Scheduler) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[s.index]
}

// Queries returns the rotation list in order.
func (s *Scheduler) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// ShouldFetch reports whether a fetch is due: never fetched yet, or at least one
// interval has passed since the last recorded cycle.
func (s *Scheduler) ShouldFetch(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetch.IsZero() || now.Sub(s.lastFetch) >= s.interval
}

// Fetched reports whether any cycle has been recorded.
func (s *Scheduler) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastFetch.IsZero()
}

// Record marks a completed cycle that accepted n posts. Once every query in a row has
// come back empty the rotation starts over from the first query.
func (s *Scheduler) Record(now time.Time, accepted int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetch = now
	s.completed++
	if accepted > 0 {
		s.empty = 0
		return
	}
	s.empty++
	if s.empty >= len(s.queries) {
		s.empty = 0
		s.index = 0
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Queries:                append([]string(nil), s.queries...),
		Index:                  s.index,
		LastFetch:              s.lastFetch,
		ConsecutiveEmptyCycles: s.empty,
		CompletedCycles:        s.completed,
	}
}
