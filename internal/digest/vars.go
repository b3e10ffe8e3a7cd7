package digest

import (
	"strconv"
	"strings"
	"time"
)

// ExpandVars performs placeholder substitutions in the configured title.
//
// Supported variables:
// - {.CurrentDate} => formatted as YYYY-MM-DD (UTC)
// - {.Count} => number of posts in the digest
func ExpandVars(s string, now time.Time, count int) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return strings.NewReplacer(
		"{.CurrentDate}", now.UTC().Format("2006-01-02"),
		"{.Count}", strconv.Itoa(count),
	).Replace(s)
}
