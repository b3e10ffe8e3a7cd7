// Package normalize converts raw provider records into canonical posts.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"airshark/internal/analyzer"
	"airshark/internal/model"
)

// DefaultProfileImage is used when the provider sends no avatar.
const DefaultProfileImage = "https://abs.twimg.com/sticky/default_profile_images/default_profile_normal.png"

// Normalize converts one raw provider record into a Post. It never fails: a record
// that cannot be decoded, or that panics while being processed, becomes a degraded
// stub so the rest of the batch keeps flowing.
func Normalize(raw json.RawMessage, query string, now time.Time) (p model.Post) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("normalize: recovered from panic", "error", r)
			p = stub(raw, query, now)
		}
	}()

	var rp RawPost
	if err := json.Unmarshal(raw, &rp); err != nil {
		slog.Warn("normalize: undecodable record", "error", err)
		return stub(raw, query, now)
	}
	post, err := fromRaw(rp, query, now)
	if err != nil {
		slog.Warn("normalize: malformed record", "id", string(rp.ID), "shape", rp.Shape().String(), "error", err)
		return stub(raw, query, now)
	}
	return post
}

func fromRaw(rp RawPost, query string, now time.Time) (model.Post, error) {
	id := strings.TrimSpace(string(rp.ID))
	if id == "" {
		return model.Post{}, fmt.Errorf("missing id")
	}
	if rp.Author == nil {
		return model.Post{}, fmt.Errorf("missing author")
	}
	created, ok := parseProviderTime(firstNonEmpty(rp.CreatedAt, rp.CreatedAtV2))
	if !ok {
		return model.Post{}, fmt.Errorf("unparseable creation time %q", firstNonEmpty(rp.CreatedAt, rp.CreatedAtV2))
	}

	var nested v2Metrics
	if rp.PublicMetrics != nil {
		nested = *rp.PublicMetrics
	}
	metrics := model.Metrics{
		Likes:     firstNonZero(rp.LikeCount, nested.LikeCount),
		Retweets:  firstNonZero(rp.RetweetCount, nested.RetweetCount),
		Views:     firstNonZero(rp.ViewCount, nested.ViewCount),
		Replies:   firstNonZero(rp.ReplyCount, nested.ReplyCount),
		Quotes:    firstNonZero(rp.QuoteCount, nested.QuoteCount),
		Bookmarks: firstNonZero(rp.BookmarkCount, nested.BookmarkCount),
	}

	a := rp.Author
	userName := firstNonEmpty(a.UserName, a.Username)
	author := model.Author{
		UserName:        userName,
		DisplayName:     firstNonEmpty(a.Name, userName, "Unknown"),
		ProfileImageURL: ProfileImage(firstNonEmpty(a.ProfilePicture, a.ProfileImageURL)),
		IsVerified:      a.IsBlueVerified || a.IsVerified || a.Verified,
		FollowerCount:   firstNonZero(a.Followers, a.PublicMetrics.FollowersCount),
		FollowingCount:  firstNonZero(a.Following, a.PublicMetrics.FollowingCount),
	}
	if t, ok := parseProviderTime(firstNonEmpty(a.CreatedAt, a.CreatedAtV2)); ok {
		author.CreatedAt = t
	}

	url := firstNonEmpty(rp.URL, rp.TwitterURL)
	if url == "" && userName != "" {
		url = fmt.Sprintf("https://x.com/%s/status/%s", userName, id)
	}

	text := rp.Text
	token, _ := analyzer.ExtractToken(text)
	score := analyzer.QualityScore(analyzer.ScoreInput{
		Text:             text,
		Verified:         author.IsVerified,
		Followers:        author.FollowerCount,
		Likes:            metrics.Likes,
		Retweets:         metrics.Retweets,
		Replies:          metrics.Replies,
		AccountCreatedAt: author.CreatedAt,
		Now:              now,
	})

	return model.Post{
		ID:                  id,
		URL:                 url,
		Text:                text,
		CreatedAt:           created,
		Author:              author,
		Metrics:             metrics,
		Token:               token,
		Hashtags:            hashtags(rp.Entities, text),
		Mentions:            mentions(rp.Entities, text),
		Scam:                analyzer.DetectScamSignals(text),
		QualityScore:        score.Value,
		ScoreReasons:        score.Reasons,
		ExpectedReleaseHint: analyzer.ExtractReleaseHint(text, now),
		SearchQuery:         query,
	}, nil
}

// ProfileImage upgrades low-resolution avatars, forces https and falls back to the default image.
func ProfileImage(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return DefaultProfileImage
	}
	u = strings.Replace(u, "_normal.", "_bigger.", 1)
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func hashtags(e *rawEntities, text string) []string {
	if e != nil && len(e.Hashtags) > 0 {
		out := make([]string, 0, len(e.Hashtags))
		for _, h := range e.Hashtags {
			if h.Text != "" {
				out = append(out, h.Text)
			}
		}
		return out
	}
	return analyzer.ExtractHashtags(text)
}

func mentions(e *rawEntities, text string) []string {
	if e != nil && len(e.UserMentions) > 0 {
		out := make([]string, 0, len(e.UserMentions))
		for _, m := range e.UserMentions {
			if m.ScreenName != "" {
				out = append(out, m.ScreenName)
			}
		}
		return out
	}
	return analyzer.ExtractMentions(text)
}

// stub builds the degraded record for input that could not be normalized.
func stub(raw json.RawMessage, query string, now time.Time) model.Post {
	var partial struct {
		ID   flexString `json:"id"`
		Text string     `json:"text"`
	}
	_ = json.Unmarshal(raw, &partial)
	return model.Post{
		ID:          strings.TrimSpace(string(partial.ID)),
		Text:        partial.Text,
		Author:      model.Author{DisplayName: "Unknown", ProfileImageURL: DefaultProfileImage},
		Hashtags:    []string{},
		Mentions:    []string{},
		Scam:        model.ScamAssessment{MatchedPatterns: []string{}},
		SearchQuery: query,
		Degraded:    true,
	}
}

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// TextKey canonicalizes post text for duplicate detection across IDs. It is never shown to users.
// Text with no letters or digits left (emoji only, a bare link) yields "".
func TextKey(text string) string {
	s := strings.ToLower(text)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = urlRe.ReplaceAllString(s, "")
	s = nonWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
