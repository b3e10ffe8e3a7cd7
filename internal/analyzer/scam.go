package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"airshark/internal/model"
)

// Rule is a single labelled heuristic.
type Rule struct {
	Label string
	Match func(text string) bool
}

func pattern(expr string) func(string) bool {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

const (
	maxExclamations = 2
	maxEmoji        = 10
	capsWordMinLen  = 3
)

// ScamRules is the battery applied by DetectScamSignals, in reporting order.
var ScamRules = []Rule{
	{Label: "Requests to send DMs", Match: pattern(`(?i)send.*\bdm|\bdm.*\bme\b|message me`)},
	{Label: "Wallet connection request", Match: pattern(`(?i)connect.*wallet`)},
	{Label: "Wallet validation/sync request", Match: pattern(`(?i)(validate|verify|sync).*wallet`)},
	{Label: "Urgency-based language", Match: pattern(`(?i)urgent|hurry|limited time`)},
	{Label: "Urgent claim messaging", Match: pattern(`(?i)claim.*now|last.*chance`)},
	{Label: "Artificial scarcity", Match: pattern(`(?i)only.*\d+.*(left|spots|remaining)`)},
	{Label: "FOMO tactics", Match: pattern(`(?i)first.*\d+.*(users|people|wallets)|don'?t miss out`)},
	{Label: "Send-to-receive scheme", Match: pattern(`(?i)send.*(receive|get back|double)|deposit.*withdraw`)},
	{Label: "Excessive exclamation marks", Match: func(text string) bool {
		return strings.Count(text, "!") > maxExclamations
	}},
	{Label: "Multiplier promise", Match: pattern(`(?i)\b\d+(\.\d+)?x\b`)},
	{Label: "Percentage return promise", Match: pattern(`\d+(\.\d+)?\s?%`)},
	{Label: "Excessive emoji", Match: func(text string) bool {
		return countEmoji(text) > maxEmoji
	}},
	{Label: "Excessive capitalization", Match: mostlyCaps},
}

// DetectScamSignals runs every rule against text and reports all labels that matched.
func DetectScamSignals(text string) model.ScamAssessment {
	matched := make([]string, 0, 4)
	for _, r := range ScamRules {
		if r.Match(text) {
			matched = append(matched, r.Label)
		}
	}
	return model.ScamAssessment{
		IsSuspicious:    len(matched) > 0,
		MatchedPatterns: matched,
	}
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	}
	return false
}

func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

// mostlyCaps reports whether more than half the words are fully uppercase and longer than two characters.
func mostlyCaps(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	caps := 0
	for _, w := range words {
		if len([]rune(w)) < capsWordMinLen || !hasLetter(w) {
			continue
		}
		if w == strings.ToUpper(w) {
			caps++
		}
	}
	return float64(caps)/float64(len(words)) > 0.5
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
