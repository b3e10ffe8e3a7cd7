package model

import "time"

// Author is the snapshot of a post author taken at ingestion time.
type Author struct {
	UserName        string    `json:"user_name"`
	DisplayName     string    `json:"display_name"`
	ProfileImageURL string    `json:"profile_image_url"`
	IsVerified      bool      `json:"is_verified"`
	FollowerCount   int       `json:"follower_count"`
	FollowingCount  int       `json:"following_count"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// Metrics is the engagement snapshot taken at ingestion time. It is never refreshed.
type Metrics struct {
	Likes     int `json:"likes"`
	Retweets  int `json:"retweets"`
	Views     int `json:"views"`
	Replies   int `json:"replies"`
	Quotes    int `json:"quotes"`
	Bookmarks int `json:"bookmarks"`
}

// Engagement is likes plus retweets, the figure used by the feed's minimum-engagement filter.
func (m Metrics) Engagement() int {
	return m.Likes + m.Retweets
}

// ScamAssessment lists the suspicious-language rules a post matched.
type ScamAssessment struct {
	IsSuspicious    bool     `json:"is_suspicious"`
	MatchedPatterns []string `json:"matched_patterns"`
}

// Post is the canonical record produced by the normalizer.
type Post struct {
	ID                  string         `json:"id"`
	URL                 string         `json:"url"`
	Text                string         `json:"text"`
	CreatedAt           time.Time      `json:"created_at"`
	Author              Author         `json:"author"`
	Metrics             Metrics        `json:"metrics"`
	Token               string         `json:"token,omitempty"` // empty means unknown
	Hashtags            []string       `json:"hashtags"`
	Mentions            []string       `json:"mentions"`
	Scam                ScamAssessment `json:"scam"`
	QualityScore        float64        `json:"quality_score"`
	ScoreReasons        []string       `json:"score_reasons,omitempty"`
	ExpectedReleaseHint string         `json:"expected_release_hint,omitempty"`
	SearchQuery         string         `json:"search_query"`
	IngestedAt          time.Time      `json:"ingested_at"`
	Degraded            bool           `json:"degraded,omitempty"`
}

// HasToken reports whether a token symbol was extracted.
func (p Post) HasToken() bool {
	return p.Token != ""
}

// RanksAbove reports whether p beats q for a token's representative slot:
// higher quality score first, then the more recent post, then the smaller ID.
func (p Post) RanksAbove(q Post) bool {
	if p.QualityScore != q.QualityScore {
		return p.QualityScore > q.QualityScore
	}
	if !p.CreatedAt.Equal(q.CreatedAt) {
		return p.CreatedAt.After(q.CreatedAt)
	}
	return p.ID < q.ID
}
