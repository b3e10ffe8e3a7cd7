package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"airshark/internal/model"
)

var t0 = time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

func post(id, text, token string, quality float64, created time.Time) model.Post {
	return model.Post{ID: id, Text: text, Token: token, QualityScore: quality, CreatedAt: created}
}

type recordingCache struct {
	mu      sync.Mutex
	put     []string
	removed []string
}

func (c *recordingCache) Put(_ context.Context, p model.Post, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put = append(c.put, p.ID)
	return nil
}

func (c *recordingCache) Remove(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, ids...)
	return nil
}

func TestAcceptReasons(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	if d := s.Accept(post("1", "FOO airdrop soon", "FOO", 40, t0.Add(-time.Hour)), t0); !d.Accepted || d.Reason != ReasonAccepted {
		t.Fatalf("first post: %+v", d)
	}

	cases := []struct {
		name string
		p    model.Post
		want Reason
	}{
		{"duplicate id", post("1", "other text", "BAR", 90, t0), ReasonDuplicateID},
		{"duplicate text", post("2", "foo   AIRDROP soon!", "BAZ", 90, t0), ReasonDuplicateText},
		{"stale", post("3", "old news", "OLD", 90, t0.Add(-8*24*time.Hour)), ReasonStale},
		{"lower rank", post("4", "FOO again", "FOO", 10, t0), ReasonLowerRank},
		{"empty id", post("", "text", "", 0, t0), ReasonMalformed},
		{"empty text", post("5", "  ", "", 0, t0), ReasonMalformed},
		{"degraded", model.Post{ID: "6", Text: "x", CreatedAt: t0, Degraded: true}, ReasonMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := s.Accept(tc.p, t0)
			if d.Accepted || d.Reason != tc.want {
				t.Errorf("Accept = %+v, want rejected with %s", d, tc.want)
			}
		})
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStaleBoundary(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	if d := s.Accept(post("a", "edge of window", "", 0, t0.Add(-7*24*time.Hour)), t0); !d.Accepted {
		t.Errorf("post exactly at the window edge rejected: %+v", d)
	}
	if d := s.Accept(post("b", "just past window", "", 0, t0.Add(-7*24*time.Hour-time.Second)), t0); d.Reason != ReasonStale {
		t.Errorf("post past the window: %+v", d)
	}
}

func TestRepresentativeReplacement(t *testing.T) {
	a := post("A", "FOO airdrop first", "FOO", 40, t0.Add(-2*time.Hour))
	b := post("B", "FOO airdrop better", "FOO", 70, t0.Add(-3*time.Hour))

	for _, order := range [][]model.Post{{a, b}, {b, a}} {
		t.Run(order[0].ID+order[1].ID, func(t *testing.T) {
			cache := &recordingCache{}
			s := NewMemoryStore(DefaultPolicy(), cache)
			for _, p := range order {
				s.Accept(p, t0)
			}
			rep, ok := s.Representative("FOO")
			if !ok || rep.ID != "B" {
				t.Fatalf("representative = %+v, %v; want B", rep, ok)
			}
			if s.Len() != 1 || s.Tokens() != 1 {
				t.Errorf("Len = %d Tokens = %d, want 1/1", s.Len(), s.Tokens())
			}
			// The loser's text is free again once it is no longer retained.
			if order[0].ID == "A" {
				if len(cache.removed) != 1 || cache.removed[0] != "A" {
					t.Errorf("cache removals = %v, want [A]", cache.removed)
				}
				if d := s.Accept(post("C", "FOO airdrop first", "", 0, t0), t0); !d.Accepted {
					t.Errorf("text of superseded post still indexed: %+v", d)
				}
			}
		})
	}
}

func TestReplaceDecisionReportsSuperseded(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	s.Accept(post("A", "FOO one", "FOO", 40, t0), t0)
	d := s.Accept(post("B", "FOO two", "FOO", 70, t0), t0)
	if !d.Accepted || d.Reason != ReasonReplaced || d.Replaced != "A" {
		t.Errorf("Accept = %+v", d)
	}
}

func TestTieBreakDeterministic(t *testing.T) {
	older := post("X", "tie one", "TIE", 50, t0.Add(-2*time.Hour))
	newer := post("Y", "tie two", "TIE", 50, t0.Add(-time.Hour))
	sameTimeLow := post("A1", "tie three", "TIE2", 50, t0)
	sameTimeHigh := post("B1", "tie four", "TIE2", 50, t0)

	cases := []struct {
		name  string
		token string
		order []model.Post
		want  string
	}{
		{"recency wins, older first", "TIE", []model.Post{older, newer}, "Y"},
		{"recency wins, newer first", "TIE", []model.Post{newer, older}, "Y"},
		{"smaller id wins, small first", "TIE2", []model.Post{sameTimeLow, sameTimeHigh}, "A1"},
		{"smaller id wins, large first", "TIE2", []model.Post{sameTimeHigh, sameTimeLow}, "A1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMemoryStore(DefaultPolicy(), nil)
			for _, p := range tc.order {
				s.Accept(p, t0)
			}
			rep, _ := s.Representative(tc.token)
			if rep.ID != tc.want {
				t.Errorf("representative = %q, want %q", rep.ID, tc.want)
			}
		})
	}
}

func TestUnknownTokenPolicy(t *testing.T) {
	keep := NewMemoryStore(DefaultPolicy(), nil)
	keep.Accept(post("1", "no ticker here", "", 10, t0), t0)
	keep.Accept(post("2", "nor here", "", 10, t0), t0)
	if keep.Len() != 2 {
		t.Errorf("unknown-token posts must not dedup by token: Len = %d", keep.Len())
	}

	drop := NewMemoryStore(Policy{KeepUnknownTokens: false}, nil)
	if d := drop.Accept(post("1", "no ticker here", "", 10, t0), t0); d.Reason != ReasonUnknownToken {
		t.Errorf("Accept = %+v, want unknown_token", d)
	}
}

func TestSweepIdempotent(t *testing.T) {
	cache := &recordingCache{}
	s := NewMemoryStore(DefaultPolicy(), cache)
	s.Accept(post("old", "old FOO", "FOO", 10, t0), t0)
	s.Accept(post("new", "new text", "", 10, t0.Add(20*24*time.Hour)), t0.Add(20*24*time.Hour))

	later := t0.Add(31 * 24 * time.Hour)
	if n := s.Sweep(later); n != 1 {
		t.Errorf("first sweep removed %d, want 1", n)
	}
	if n := s.Sweep(later); n != 0 {
		t.Errorf("second sweep removed %d, want 0", n)
	}
	if _, ok := s.Representative("FOO"); ok {
		t.Errorf("swept post still indexed by token")
	}
	if d := s.Accept(post("old2", "old FOO", "FOO", 10, later), later); !d.Accepted {
		t.Errorf("swept text still indexed: %+v", d)
	}
	if len(cache.removed) != 1 || cache.removed[0] != "old" {
		t.Errorf("cache removals = %v", cache.removed)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	p := post("1", "FOO #tag", "FOO", 10, t0)
	p.Hashtags = []string{"tag"}
	s.Accept(p, t0)

	snap := s.Snapshot()
	snap[0].Hashtags[0] = "mutated"
	snap[0].Text = "mutated"
	again := s.Snapshot()
	if again[0].Hashtags[0] != "tag" || again[0].Text != "FOO #tag" {
		t.Errorf("snapshot aliases store state: %+v", again[0])
	}
	if !again[0].IngestedAt.Equal(t0) {
		t.Errorf("IngestedAt = %v, want %v", again[0].IngestedAt, t0)
	}
}

func TestRestore(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	p := post("1", "cached FOO", "FOO", 30, t0)
	p.IngestedAt = t0
	if !s.Restore(p, t0.Add(24*time.Hour)) {
		t.Fatalf("Restore rejected a fresh post")
	}
	expired := post("2", "expired", "", 0, t0)
	expired.IngestedAt = t0.Add(-31 * 24 * time.Hour)
	if s.Restore(expired, t0) {
		t.Errorf("Restore accepted an expired post")
	}
	if s.Restore(p, t0) {
		t.Errorf("Restore accepted a duplicate id")
	}
}

func TestConcurrentAccept(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := post(string(rune('a'+i%26))+string(rune('A'+i/26)), "text "+string(rune('a'+i%26))+string(rune('A'+i/26)), "FOO", float64(i), t0)
			s.Accept(p, t0)
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()
	rep, ok := s.Representative("FOO")
	if !ok || rep.QualityScore != 49 {
		t.Errorf("representative = %+v, want quality 49", rep)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestAcceptNonLatinAndSymbolOnlyText(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy(), nil)
	posts := []model.Post{
		post("zh1", "新项目空投即将开始", "", 0, t0),
		post("zh2", "完全不同的另一条推文内容", "", 0, t0),
		post("e1", "🚀🚀🚀", "", 0, t0),
		post("e2", "🔥🔥", "", 0, t0),
		post("u1", "https://t.co/abc", "", 0, t0),
	}
	for _, p := range posts {
		if d := s.Accept(p, t0); !d.Accepted {
			t.Errorf("Accept(%s) = %+v, want accepted", p.ID, d)
		}
	}
	if d := s.Accept(post("zh3", "新项目空投即将开始！", "", 0, t0), t0); d.Reason != ReasonDuplicateText {
		t.Errorf("repeated non-Latin text: %+v", d)
	}
	if s.Len() != len(posts) {
		t.Errorf("Len = %d, want %d", s.Len(), len(posts))
	}
	if n := s.Sweep(t0.Add(31 * 24 * time.Hour)); n != len(posts) {
		t.Errorf("Sweep removed %d, want %d", n, len(posts))
	}
}
