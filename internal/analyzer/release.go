package analyzer

import (
	"regexp"
	"strings"
	"time"
)

const months = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	explicitDateRe = regexp.MustCompile(`(?i)\b(?:` +
		`\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}` +
		`|` + months + `\.? \d{1,2}(?:st|nd|rd|th)?,? \d{4}` +
		`|\d{1,2}(?:st|nd|rd|th)? ` + months + `,? \d{4}` +
		`)\b`)

	releaseKeywords = []string{"launching", "release", "available", "claim", "distribution"}

	monthNames = []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}
	monthWordRes = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(monthNames))
		for i, m := range monthNames {
			out[i] = regexp.MustCompile(`(?i)\b` + m + `\b`)
		}
		return out
	}()
)

// releaseWindow is how many words after an anchor keyword are searched for a date.
const releaseWindow = 6

// ExtractReleaseHint makes a best-effort guess at when a token is expected to launch.
// It returns "" when nothing usable is found.
func ExtractReleaseHint(text string, now time.Time) string {
	if m := explicitDateRe.FindString(text); m != "" {
		return m
	}

	words := strings.Fields(text)
	if hint := dateAfter(words, "snapshot"); hint != "" {
		return hint
	}
	for _, kw := range releaseKeywords {
		if hint := dateAfter(words, kw); hint != "" {
			return hint
		}
	}

	// Assume the next occurrence of a mentioned month, rolling forward from now.
	cur := int(now.Month()) - 1
	for i := 0; i < len(monthNames); i++ {
		idx := (cur + i) % len(monthNames)
		if monthWordRes[idx].MatchString(text) {
			name := monthNames[idx]
			return strings.ToUpper(name[:1]) + name[1:] + " " + now.Format("2006")
		}
	}
	return ""
}

func dateAfter(words []string, keyword string) string {
	for i, w := range words {
		if !strings.Contains(strings.ToLower(w), keyword) {
			continue
		}
		end := i + releaseWindow
		if end > len(words) {
			end = len(words)
		}
		if m := explicitDateRe.FindString(strings.Join(words[i:end], " ")); m != "" {
			return m
		}
		return ""
	}
	return ""
}
