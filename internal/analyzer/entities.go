package analyzer

import "regexp"

var (
	hashtagRe = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	mentionRe = regexp.MustCompile(`@([A-Za-z0-9_]{1,15})`)
)

// ExtractHashtags returns hashtags in order of appearance, without the leading '#'.
func ExtractHashtags(text string) []string {
	return captureAll(hashtagRe, text)
}

// ExtractMentions returns mentioned handles in order of appearance, without the leading '@'.
func ExtractMentions(text string) []string {
	return captureAll(mentionRe, text)
}

func captureAll(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
