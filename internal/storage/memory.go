// Package storage keeps the retained post set: an in-memory store that enforces the
// dedup and retention rules, plus an optional Redis cache that makes it durable.
package storage

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"airshark/internal/model"
	"airshark/internal/normalize"
)

const (
	DefaultStaleAfter = 7 * 24 * time.Hour
	DefaultRetainFor  = 30 * 24 * time.Hour

	cacheTimeout = 5 * time.Second
)

// Reason explains an Accept decision.
type Reason string

const (
	ReasonAccepted      Reason = "accepted"
	ReasonReplaced      Reason = "replaced"
	ReasonStale         Reason = "stale"
	ReasonDuplicateID   Reason = "duplicate_id"
	ReasonDuplicateText Reason = "duplicate_text"
	ReasonUnknownToken  Reason = "unknown_token"
	ReasonLowerRank     Reason = "lower_rank"
	ReasonMalformed     Reason = "malformed"
)

// Decision is the outcome of offering a post to the store.
type Decision struct {
	Accepted bool
	Reason   Reason
	// Replaced is the ID of the representative that was superseded, if any.
	Replaced string
}

// Policy holds the windows and switches the store enforces.
type Policy struct {
	StaleAfter        time.Duration // posts older than this at ingestion are rejected
	RetainFor         time.Duration // records older than this are swept
	KeepUnknownTokens bool
}

// DefaultPolicy is a 7-day acceptance window, 30-day retention, unknown-token posts kept.
func DefaultPolicy() Policy {
	return Policy{StaleAfter: DefaultStaleAfter, RetainFor: DefaultRetainFor, KeepUnknownTokens: true}
}

type record struct {
	post    model.Post
	textKey string
	// stamped is when the record entered the store; retention counts from here.
	stamped time.Time
}

// MemoryStore is the authoritative retained set. It is safe for concurrent use.
type MemoryStore struct {
	policy Policy
	cache  Cache

	mu       sync.RWMutex
	byID     map[string]record
	textKeys map[string]string // normalized text -> id
	tokens   map[string]string // token -> id of its representative
}

// NewMemoryStore creates an empty store. A nil cache disables durability.
func NewMemoryStore(policy Policy, cache Cache) *MemoryStore {
	if policy.StaleAfter <= 0 {
		policy.StaleAfter = DefaultStaleAfter
	}
	if policy.RetainFor <= 0 {
		policy.RetainFor = DefaultRetainFor
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &MemoryStore{
		policy:   policy,
		cache:    cache,
		byID:     make(map[string]record),
		textKeys: make(map[string]string),
		tokens:   make(map[string]string),
	}
}

// Accept offers one normalized post to the store and reports what happened to it.
// The post's IngestedAt is stamped with now when it is retained.
func (s *MemoryStore) Accept(p model.Post, now time.Time) Decision {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Text) == "" || p.Degraded {
		return Decision{Reason: ReasonMalformed}
	}
	if now.Sub(p.CreatedAt) > s.policy.StaleAfter {
		return Decision{Reason: ReasonStale}
	}
	key := normalize.TextKey(p.Text)

	s.mu.Lock()
	d, removed := s.acceptLocked(p, key, now)
	var added *model.Post
	if d.Accepted {
		r := s.byID[p.ID]
		added = &r.post
	}
	s.mu.Unlock()

	if removed != "" {
		s.forget(removed)
	}
	if added != nil {
		s.persist(*added)
	}
	return d
}

func (s *MemoryStore) persist(p model.Post) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := s.cache.Put(ctx, p, s.policy.RetainFor); err != nil {
		slog.Warn("storage: cache put failed", "id", p.ID, "error", err)
	}
}

func (s *MemoryStore) forget(ids ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := s.cache.Remove(ctx, ids...); err != nil {
		slog.Warn("storage: cache remove failed", "ids", ids, "error", err)
	}
}

func (s *MemoryStore) acceptLocked(p model.Post, key string, now time.Time) (Decision, string) {
	if _, ok := s.byID[p.ID]; ok {
		return Decision{Reason: ReasonDuplicateID}, ""
	}
	if s.textTaken(key) {
		return Decision{Reason: ReasonDuplicateText}, ""
	}
	if !p.HasToken() {
		if !s.policy.KeepUnknownTokens {
			return Decision{Reason: ReasonUnknownToken}, ""
		}
		s.insertLocked(p, key, now)
		return Decision{Accepted: true, Reason: ReasonAccepted}, ""
	}

	if curID, ok := s.tokens[p.Token]; ok {
		cur := s.byID[curID]
		if !p.RanksAbove(cur.post) {
			return Decision{Reason: ReasonLowerRank}, ""
		}
		s.deleteLocked(curID)
		s.insertLocked(p, key, now)
		return Decision{Accepted: true, Reason: ReasonReplaced, Replaced: curID}, curID
	}
	s.insertLocked(p, key, now)
	return Decision{Accepted: true, Reason: ReasonAccepted}, ""
}

func (s *MemoryStore) insertLocked(p model.Post, key string, now time.Time) {
	p.IngestedAt = now
	s.indexLocked(p, key, now)
}

// indexLocked adds p to all indexes. Posts whose text key is empty are only
// deduplicated by ID and token.
func (s *MemoryStore) indexLocked(p model.Post, key string, stamped time.Time) {
	s.byID[p.ID] = record{post: p, textKey: key, stamped: stamped}
	if key != "" {
		s.textKeys[key] = p.ID
	}
	if p.HasToken() {
		s.tokens[p.Token] = p.ID
	}
}

func (s *MemoryStore) textTaken(key string) bool {
	if key == "" {
		return false
	}
	_, ok := s.textKeys[key]
	return ok
}

// deleteLocked drops id from all three indexes.
func (s *MemoryStore) deleteLocked(id string) {
	r, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if r.textKey != "" && s.textKeys[r.textKey] == id {
		delete(s.textKeys, r.textKey)
	}
	if r.post.HasToken() && s.tokens[r.post.Token] == id {
		delete(s.tokens, r.post.Token)
	}
}

// Restore inserts a post loaded from the durable cache, keeping its stored ingestion time.
// The usual dedup rules apply; the cache is not written back.
func (s *MemoryStore) Restore(p model.Post, now time.Time) bool {
	if p.ID == "" || p.Text == "" || p.IngestedAt.IsZero() {
		return false
	}
	if now.Sub(p.IngestedAt) > s.policy.RetainFor {
		return false
	}
	key := normalize.TextKey(p.Text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return false
	}
	if s.textTaken(key) {
		return false
	}
	if p.HasToken() {
		if curID, ok := s.tokens[p.Token]; ok {
			if !p.RanksAbove(s.byID[curID].post) {
				return false
			}
			s.deleteLocked(curID)
		}
	}
	s.indexLocked(p, key, p.IngestedAt)
	return true
}

// Sweep removes every record retained for longer than the retention window and
// returns how many were removed. Running it twice with the same now removes nothing more.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	var expired []string
	for id, r := range s.byID {
		if now.Sub(r.stamped) > s.policy.RetainFor {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.deleteLocked(id)
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.forget(expired...)
	}
	return len(expired)
}

// Snapshot returns a copy of every retained post, newest first.
func (s *MemoryStore) Snapshot() []model.Post {
	s.mu.RLock()
	out := make([]model.Post, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, clonePost(r.post))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len is the number of retained posts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Representative returns the current post for token.
func (s *MemoryStore) Representative(token string) (model.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[strings.ToUpper(token)]
	if !ok {
		return model.Post{}, false
	}
	return clonePost(s.byID[id].post), true
}

// Tokens returns the number of distinct tokens with a representative.
func (s *MemoryStore) Tokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func clonePost(p model.Post) model.Post {
	p.Hashtags = cloneStrings(p.Hashtags)
	p.Mentions = cloneStrings(p.Mentions)
	p.ScoreReasons = cloneStrings(p.ScoreReasons)
	p.Scam.MatchedPatterns = cloneStrings(p.Scam.MatchedPatterns)
	return p
}

func cloneStrings(in []string) []string {
	return append(make([]string, 0, len(in)), in...)
}
