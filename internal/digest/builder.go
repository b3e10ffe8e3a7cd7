// Package digest exports the best retained posts as a dated markdown file with YAML
// frontmatter, optionally summarized by an LLM.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"airshark/internal/ai"
	"airshark/internal/feed"
	"airshark/internal/model"
)

const DefaultTitle = "Airdrop digest {.CurrentDate}"

// ErrNotEnoughPosts is returned when fewer than MinPosts qualify.
var ErrNotEnoughPosts = errors.New("digest: not enough posts")

// Feed is the query surface the builder selects posts from.
type Feed interface {
	Query(opts feed.Options, cursor string) (feed.Page, error)
}

type Builder struct {
	Feed       Feed
	Summarizer ai.Summarizer // optional
	OutputDir  string
	TopN       int
	MinPosts   int
	Language   string
	Title      string
	// IncludeScam keeps posts flagged for suspicious language.
	IncludeScam bool
	Now         func() time.Time
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Select returns the top posts by quality across the whole feed: known tokens only,
// scam-flagged posts excluded unless IncludeScam is set.
func (b *Builder) Select() ([]model.Post, error) {
	opts := feed.DefaultOptions()
	opts.ShowScam = b.IncludeScam
	opts.ShowUnknownTokens = false
	opts.Limit = feed.MaxLimit
	var posts []model.Post
	cursor := ""
	for {
		page, err := b.Feed.Query(opts, cursor)
		if err != nil {
			return nil, err
		}
		posts = append(posts, page.Posts...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].RanksAbove(posts[j])
	})
	topN := b.TopN
	if topN <= 0 {
		topN = 10
	}
	if len(posts) > topN {
		posts = posts[:topN]
	}
	if len(posts) < b.MinPosts {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPosts, len(posts), b.MinPosts)
	}
	return posts, nil
}

// Build assembles the digest for the current day.
func (b *Builder) Build(ctx context.Context) (Data, error) {
	posts, err := b.Select()
	if err != nil {
		return Data{}, err
	}
	now := b.now().UTC()
	title := b.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	d := Data{
		Frontmatter: Frontmatter{
			Title:    ExpandVars(title, now, len(posts)),
			Slug:     slugFor(now),
			Datetime: now.Format("2006-01-02 15:04"),
			Tokens:   make([]string, 0, len(posts)),
		},
		Entries: make([]Entry, 0, len(posts)),
	}
	for _, p := range posts {
		var desc string
		if b.Summarizer != nil {
			if s, err := b.Summarizer.SummarizePost(ctx, p, b.Language); err == nil {
				desc = s
			}
		}
		d.Tokens = append(d.Tokens, p.Token)
		d.Entries = append(d.Entries, Entry{
			Token:       p.Token,
			Author:      p.Author.UserName,
			Verified:    p.Author.IsVerified,
			Text:        p.Text,
			Description: desc,
			Quality:     p.QualityScore,
			Reasons:     p.ScoreReasons,
			Likes:       p.Metrics.Likes,
			Retweets:    p.Metrics.Retweets,
			Views:       p.Metrics.Views,
			Release:     p.ExpectedReleaseHint,
			Warnings:    p.Scam.MatchedPatterns,
			Created:     p.CreatedAt.UTC().Format("2006-01-02 15:04"),
			URL:         p.URL,
		})
	}

	if b.Summarizer != nil {
		if s, err := b.Summarizer.SummarizeDigest(ctx, posts, b.Language); err == nil {
			d.Summary = strings.TrimSpace(s)
		}
	}
	if d.Summary == "" && len(d.Tokens) > 0 {
		n := min(3, len(d.Tokens))
		d.Summary = fmt.Sprintf("Top tokens: $%s.", strings.Join(d.Tokens[:n], ", $"))
	}
	return d, nil
}

// Write renders today's digest into OutputDir. An existing file for the day is only
// replaced when its token list changed, or when force is set.
func (b *Builder) Write(ctx context.Context, force bool) (string, bool, error) {
	d, err := b.Build(ctx)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return "", false, err
	}
	path := filepath.Join(b.OutputDir, d.Slug+".md")

	if !force {
		if prev, err := ParseFile(path); err == nil && slices.Equal(prev.Frontmatter.Tokens, d.Tokens) {
			slog.Info("digest: unchanged, skipping", "path", path)
			return path, false, nil
		}
	}

	out, err := Render(d)
	if err != nil {
		return "", false, fmt.Errorf("digest: render: %w", err)
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", false, err
	}
	slog.Info("digest: written", "path", path, "posts", len(d.Entries))
	return path, true, nil
}

func slugFor(t time.Time) string {
	return "digest-" + t.Format("20060102")
}
