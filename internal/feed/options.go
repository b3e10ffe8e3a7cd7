package feed

import (
	"fmt"
	"strings"
	"time"

	"airshark/internal/model"
)

// SortBy orders the feed.
type SortBy string

const (
	SortRecent   SortBy = "recent"
	SortLikes    SortBy = "likes"
	SortRetweets SortBy = "retweets"
	SortViews    SortBy = "views"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ParseSortBy accepts the short names plus the mostLikes style aliases clients send.
func ParseSortBy(s string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent", "mostrecent":
		return SortRecent, nil
	case "likes", "mostlikes":
		return SortLikes, nil
	case "retweets", "mostretweets":
		return SortRetweets, nil
	case "views", "mostviews":
		return SortViews, nil
	default:
		return "", fmt.Errorf("feed: unknown sort %q", s)
	}
}

// Options selects and orders posts. The scam and verification switches are paired:
// both on shows everything, one on shows only that side, both off shows nothing.
type Options struct {
	ShowScam          bool
	ShowNonScam       bool
	ShowVerified      bool
	ShowNonVerified   bool
	ShowUnknownTokens bool
	// Search matches text, author name, author handle or token, case-insensitively.
	Search        string
	MinEngagement int
	// Date keeps posts created on this UTC day (YYYY-MM-DD).
	Date string
	// Token keeps posts whose token contains this string.
	Token  string
	SortBy SortBy
	Limit  int
}

func DefaultOptions() Options {
	return Options{
		ShowScam:          true,
		ShowNonScam:       true,
		ShowVerified:      true,
		ShowNonVerified:   true,
		ShowUnknownTokens: true,
		SortBy:            SortRecent,
		Limit:             DefaultLimit,
	}
}

// compiled is Options with its string fields parsed once per query.
type compiled struct {
	Options
	search string
	token  string
	day    time.Time
	hasDay bool
}

func compile(o Options) (compiled, error) {
	c := compiled{
		Options: o,
		search:  strings.ToLower(strings.TrimSpace(o.Search)),
		token:   strings.ToUpper(strings.TrimSpace(o.Token)),
	}
	if d := strings.TrimSpace(o.Date); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return compiled{}, fmt.Errorf("feed: invalid date %q: %w", o.Date, err)
		}
		c.day, c.hasDay = day, true
	}
	return c, nil
}

func (c compiled) keep(p model.Post) bool {
	if !pairAllows(c.ShowScam, c.ShowNonScam, p.Scam.IsSuspicious) {
		return false
	}
	if !pairAllows(c.ShowVerified, c.ShowNonVerified, p.Author.IsVerified) {
		return false
	}
	if !c.ShowUnknownTokens && !p.HasToken() {
		return false
	}
	if c.token != "" && !strings.Contains(p.Token, c.token) {
		return false
	}
	if c.hasDay {
		y, m, d := p.CreatedAt.UTC().Date()
		cy, cm, cd := c.day.Date()
		if y != cy || m != cm || d != cd {
			return false
		}
	}
	if c.MinEngagement > 0 && p.Metrics.Engagement() < c.MinEngagement {
		return false
	}
	if c.search != "" {
		if !strings.Contains(strings.ToLower(p.Text), c.search) &&
			!strings.Contains(strings.ToLower(p.Author.UserName), c.search) &&
			!strings.Contains(strings.ToLower(p.Author.DisplayName), c.search) &&
			!strings.Contains(strings.ToLower(p.Token), c.search) {
			return false
		}
	}
	return true
}

// pairAllows applies one show/hide pair to a post that is (flag) or is not (!flag) on the "yes" side.
func pairAllows(showYes, showNo, flag bool) bool {
	if flag {
		return showYes
	}
	return showNo
}
