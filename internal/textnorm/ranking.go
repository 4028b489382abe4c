package textnorm

import (
	"regexp"
	"strings"
)

// BottomMarker precedes topN when the question asked for the lowest values.
const BottomMarker = "bottom"

var (
	digits = regexp.MustCompile(`\d+`)

	bottomPhrase = regexp.MustCompile(`(?:\bbottom|하위)\s*(\d+)(?:\s*(?:개|items?\b))?`)
	topPhrase    = regexp.MustCompile(`(?:\btop|상위)\s*(\d+)(?:\s*(?:개|items?\b))?`)
	countPhrase  = regexp.MustCompile(`\b(\d+)\s*(?:개|items?\b)`)

	// TopN matches the canonical ranking token.
	TopN = regexp.MustCompile(`\btop(\d+)\b`)
)

// canonicalizeRanking rewrites every ranking phrase to topN. When a phrase
// carries several numbers, the first one counts.
func canonicalizeRanking(s string) string {
	s = bottomPhrase.ReplaceAllStringFunc(s, func(m string) string {
		return " " + BottomMarker + " top" + digits.FindString(m) + " "
	})
	s = topPhrase.ReplaceAllStringFunc(s, func(m string) string {
		return " top" + digits.FindString(m) + " "
	})
	s = countPhrase.ReplaceAllStringFunc(s, func(m string) string {
		return " top" + digits.FindString(m) + " "
	})
	return collapse(strings.TrimSpace(s))
}
