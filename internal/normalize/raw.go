package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Shape identifies which provider layout a raw record follows.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeFlat is the advanced_search layout: camelCase counters on the post itself.
	ShapeFlat
	// ShapeV2 is the API v2 layout: snake_case counters under public_metrics.
	ShapeV2
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeV2:
		return "v2"
	default:
		return "unknown"
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number, a numeric string or an exponent form. Anything else
// decodes to 0 instead of failing the whole record.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = 0
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 0 && n <= math.MaxInt {
			*f = flexInt(n)
		}
		return nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v < 1e15 {
		*f = flexInt(v)
	}
	return nil
}

type v2Metrics struct {
	LikeCount     flexInt `json:"like_count"`
	RetweetCount  flexInt `json:"retweet_count"`
	ViewCount     flexInt `json:"view_count"`
	ReplyCount    flexInt `json:"reply_count"`
	QuoteCount    flexInt `json:"quote_count"`
	BookmarkCount flexInt `json:"bookmark_count"`
}

type rawAuthor struct {
	UserName        string  `json:"userName"`
	Username        string  `json:"username"`
	Name            string  `json:"name"`
	ProfilePicture  string  `json:"profilePicture"`
	ProfileImageURL string  `json:"profile_image_url"`
	IsBlueVerified  bool    `json:"isBlueVerified"`
	IsVerified      bool    `json:"isVerified"`
	Verified        bool    `json:"verified"`
	Followers       flexInt `json:"followers"`
	Following       flexInt `json:"following"`
	CreatedAt       string  `json:"createdAt"`
	CreatedAtV2     string  `json:"created_at"`
	PublicMetrics   struct {
		FollowersCount flexInt `json:"followers_count"`
		FollowingCount flexInt `json:"following_count"`
	} `json:"public_metrics"`
}

type rawEntities struct {
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	UserMentions []struct {
		ScreenName string `json:"screen_name"`
	} `json:"user_mentions"`
}

// RawPost is the superset of every known provider layout. It never leaves this package.
type RawPost struct {
	ID          flexString   `json:"id"`
	URL         string       `json:"url"`
	TwitterURL  string       `json:"twitterUrl"`
	Text        string       `json:"text"`
	CreatedAt   string       `json:"createdAt"`
	CreatedAtV2 string       `json:"created_at"`
	Author      *rawAuthor   `json:"author"`
	Entities    *rawEntities `json:"entities"`

	LikeCount     flexInt `json:"likeCount"`
	RetweetCount  flexInt `json:"retweetCount"`
	ViewCount     flexInt `json:"viewCount"`
	ReplyCount    flexInt `json:"replyCount"`
	QuoteCount    flexInt `json:"quoteCount"`
	BookmarkCount flexInt `json:"bookmarkCount"`

	PublicMetrics *v2Metrics `json:"public_metrics"`
}

// Shape reports the layout the record appears to follow.
func (r *RawPost) Shape() Shape {
	switch {
	case r.CreatedAt != "" || r.LikeCount != 0 || r.RetweetCount != 0 || r.ViewCount != 0:
		return ShapeFlat
	case r.PublicMetrics != nil || r.CreatedAtV2 != "":
		return ShapeV2
	default:
		return ShapeUnknown
	}
}

// providerTimeLayouts are tried in order when parsing creation times.
var providerTimeLayouts = []string{
	time.RubyDate, // "Sat Mar 01 15:28:21 +0000 2025"
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
}

func parseProviderTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range providerTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstNonZero(vals ...flexInt) int {
	for _, v := range vals {
		if v != 0 {
			return int(v)
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
