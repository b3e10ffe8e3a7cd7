package analyzer

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Weights of the composite quality score. They sum to 1.
const (
	weightAccountAge = 0.20
	weightFollowers  = 0.30
	weightEngagement = 0.20
	weightVerified   = 0.15
	weightContent    = 0.15
)

var (
	symbolShapeRe = regexp.MustCompile(`\$[A-Za-z]+`)
	dateShapeRe   = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	timeShapeRe   = regexp.MustCompile(`\d{1,2}:\d{2}`)
	linkRe        = regexp.MustCompile(`https?://\S+`)
)

// ScoreInput carries the post and author fields the quality score looks at.
type ScoreInput struct {
	Text             string
	Verified         bool
	Followers        int
	Likes            int
	Retweets         int
	Replies          int
	AccountCreatedAt time.Time
	Now              time.Time
}

// Score is a 0-100 composite with the human-readable reasons that drove it.
type Score struct {
	Value   float64
	Reasons []string
}

// QualityScore computes the weighted composite used for ranking representatives.
// It is advisory: nothing is rejected on score alone.
func QualityScore(in ScoreInput) Score {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var ageDays float64
	if !in.AccountCreatedAt.IsZero() && in.AccountCreatedAt.Before(now) {
		ageDays = now.Sub(in.AccountCreatedAt).Hours() / 24
	}
	ageScore := capped(ageDays / 365 * 100)
	followerScore := capped(float64(in.Followers) / 10000 * 100)

	var engagementScore float64
	if in.Followers > 0 {
		engagement := float64(in.Likes + in.Retweets + in.Replies)
		ratePct := engagement / float64(in.Followers) * 100
		engagementScore = capped(ratePct * 20)
	}

	var verifiedScore float64
	if in.Verified {
		verifiedScore = 100
	}
	contentScore := ContentQuality(in.Text)

	value := ageScore*weightAccountAge +
		followerScore*weightFollowers +
		engagementScore*weightEngagement +
		verifiedScore*weightVerified +
		contentScore*weightContent

	var reasons []string
	if ageScore > 50 {
		reasons = append(reasons, "Established account")
	}
	if followerScore > 50 {
		reasons = append(reasons, "High follower count")
	}
	if engagementScore > 50 {
		reasons = append(reasons, "Good engagement")
	}
	if verifiedScore > 0 {
		reasons = append(reasons, "Verified account")
	}
	if contentScore > 50 {
		reasons = append(reasons, "High quality post")
	}
	return Score{Value: round2(value), Reasons: reasons}
}

// ContentQuality scores the text alone on announcement-like signals, 0-100.
func ContentQuality(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range []string{"whitelist", "official", "verified"} {
		if strings.Contains(lower, kw) {
			score += 10
		}
	}
	if symbolShapeRe.MatchString(text) {
		score += 15
	}
	if dateShapeRe.MatchString(text) {
		score += 15
	}
	if timeShapeRe.MatchString(text) {
		score += 10
	}
	if linkRe.MatchString(text) {
		score += 10
	}
	return capped(score)
}

func capped(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(100, v)
}

// round2 keeps scores stable for equality-based tie-breaks.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
