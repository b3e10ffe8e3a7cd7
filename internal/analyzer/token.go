// Package analyzer holds the stateless text heuristics applied to every ingested post:
// token symbol extraction, hashtag and mention extraction, scam-language detection,
// quality scoring and release-date hints.
package analyzer

import (
	"regexp"
	"strings"
)

// excludedSymbol is the base chain symbol. It is never an airdropped token itself.
const excludedSymbol = "SOL"

var (
	// dollarCandidateRe matches every $-prefixed alphanumeric run, tickers and amounts alike.
	dollarCandidateRe = regexp.MustCompile(`\$([A-Za-z0-9]+)`)
	symbolRe          = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{1,9}$`)

	// keywordRules are tried in order when no $-prefixed symbol survives.
	keywordRules = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b([a-z][a-z0-9]{1,9})\s+token\b`),
		regexp.MustCompile(`(?i)\b([a-z][a-z0-9]{1,9})\s+airdrop\b`),
		regexp.MustCompile(`(?i)\b([a-z][a-z0-9]{1,9})\s+presale\b`),
	}
)

// ExtractToken returns the first token symbol mentioned in text, uppercased.
//
// Every $-prefixed candidate is considered left to right. Monetary amounts such as
// "$50", "$2.5" or "$10k" start with a digit and are skipped on their own, so a
// ticker elsewhere in the same text is still found. SOL is never returned. When no
// $-prefixed symbol qualifies, a word directly followed by TOKEN, AIRDROP or PRESALE
// is used instead.
func ExtractToken(text string) (string, bool) {
	for _, m := range dollarCandidateRe.FindAllStringSubmatch(text, -1) {
		if sym, ok := acceptSymbol(m[1]); ok {
			return sym, true
		}
	}
	for _, re := range keywordRules {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if sym, ok := acceptSymbol(m[1]); ok {
				return sym, true
			}
		}
	}
	return "", false
}

func acceptSymbol(candidate string) (string, bool) {
	if !symbolRe.MatchString(candidate) {
		return "", false
	}
	sym := strings.ToUpper(candidate)
	if sym == excludedSymbol {
		return "", false
	}
	return sym, true
}
