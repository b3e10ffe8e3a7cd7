// Package feed answers filtered, sorted and paginated queries over the retained posts.
package feed

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"airshark/internal/model"
)

// ErrInvalidCursor is returned for cursors this service did not issue.
var ErrInvalidCursor = errors.New("feed: invalid cursor")

// Source is the store view the service reads from.
type Source interface {
	Sweep(now time.Time) int
	Snapshot() []model.Post
}

// Page is one slice of query results.
type Page struct {
	Posts      []model.Post `json:"tweets"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Total      int          `json:"total"`
}

type Service struct {
	src Source
	now func() time.Time
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Query sweeps expired posts, then filters, sorts and pages the snapshot.
// Filters that exclude everything produce an empty page, not an error.
func (s *Service) Query(opts Options, cursor string) (Page, error) {
	c, err := compile(opts)
	if err != nil {
		return Page{}, err
	}
	offset, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	s.src.Sweep(s.now())
	posts := s.src.Snapshot()

	kept := posts[:0]
	for _, p := range posts {
		if c.keep(p) {
			kept = append(kept, p)
		}
	}
	sortPosts(kept, opts.SortBy)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	page := Page{Posts: []model.Post{}, Total: len(kept)}
	if offset >= len(kept) {
		return page, nil
	}
	end := offset + limit
	if end > len(kept) {
		end = len(kept)
	}
	page.Posts = kept[offset:end]
	if end < len(kept) {
		page.HasMore = true
		page.NextCursor = encodeCursor(end)
	}
	return page, nil
}

func sortPosts(posts []model.Post, by SortBy) {
	metric := func(p model.Post) int {
		switch by {
		case SortLikes:
			return p.Metrics.Likes
		case SortRetweets:
			return p.Metrics.Retweets
		case SortViews:
			return p.Metrics.Views
		default:
			return 0
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if ma, mb := metric(a), metric(b); ma != mb {
			return ma > mb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Validate reports the error Query would return for opts and cursor, without reading the store.
func Validate(opts Options, cursor string) error {
	if _, err := compile(opts); err != nil {
		return err
	}
	_, err := decodeCursor(cursor)
	return err
}

// Cursor format: base64("off:{n}").
func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("off:%d", offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	raw, ok := strings.CutPrefix(string(data), "off:")
	if !ok {
		return 0, fmt.Errorf("%w: missing offset prefix", ErrInvalidCursor)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidCursor, raw)
	}
	return n, nil
}
