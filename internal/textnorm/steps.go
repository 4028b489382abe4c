package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
)

// StepToken prefixes a canonical step filter, e.g. "step=STANDBY".
const StepToken = "step="

var (
	// step STANDBY, step:STANDBY, step=STANDBY, step1
	leadingStep = regexp.MustCompile(`\b(?:step|stage)(\s*[:=]\s*|\s+)?([a-z0-9][a-z0-9._\-]*)`)
	// STANDBY step, b.fill 단계
	trailingStep = regexp.MustCompile(`\b([a-z0-9][a-z0-9._\-]*)\s*(step|stage|스텝|단계)`)

	// CanonicalStep matches a canonical step filter in normalized text.
	CanonicalStep = regexp.MustCompile(`\bstep=([^\s]+)`)
)

// groupingLeads turn "<lead> step" into a grouping request, not a filter.
var groupingLeads = []string{"by", "per", "each", "every", "group", "grouped"}

var stepStopwords = map[string]struct{}{
	"by": {}, "per": {}, "each": {}, "every": {}, "all": {}, "the": {}, "a": {}, "an": {},
	"of": {}, "for": {}, "in": {}, "and": {}, "or": {}, "vs": {}, "with": {}, "which": {},
	"what": {}, "group": {}, "grouped": {}, "wise": {}, "s": {}, "bottom": {}, "top": {},
}

// canonicalizeSteps rewrites step filters to step=VALUE. The two patterns
// are applied manually because each candidate needs context checks RE2
// cannot express.
func (n *Normalizer) canonicalizeSteps(s string) string {
	s = replaceMatches(s, leadingStep, func(s string, m []int) (string, bool) {
		hasSep := m[2] >= 0
		value := s[m[4]:m[5]]
		if !hasSep && !startsWithDigit(value) {
			return "", false
		}
		if isGroupingLead(s[:m[0]]) || !n.isStepValue(value) {
			return "", false
		}
		return stepFilter(value), true
	})
	s = replaceMatches(s, trailingStep, func(s string, m []int) (string, bool) {
		value := s[m[2]:m[3]]
		suffix := s[m[4]:m[5]]
		rest := s[m[1]:]
		if strings.HasPrefix(rest, "별") || strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, ":") {
			return "", false
		}
		if isASCII(suffix) && rest != "" && (schema.IsWordByte(rest[0]) || rest[0] == '-') {
			return "", false
		}
		if !hasLetter(value) || strings.HasPrefix(value, "step") || strings.HasPrefix(value, "stage") || !n.isStepValue(value) {
			return "", false
		}
		return stepFilter(value), true
	})
	return s
}

// isStepValue rejects words that already mean something else.
func (n *Normalizer) isStepValue(value string) bool {
	value = strings.Trim(value, ".-_")
	if value == "" {
		return false
	}
	if _, stop := stepStopwords[value]; stop {
		return false
	}
	if strings.HasSuffix(value, "-by") || TopN.MatchString(value) || TracePattern.MatchString(value) {
		return false
	}
	if _, known := n.index.Lookup(value); known {
		return false
	}
	return true
}

func isGroupingLead(prefix string) bool {
	prefix = strings.TrimRight(prefix, " -_:")
	for _, lead := range groupingLeads {
		if strings.HasSuffix(prefix, lead) {
			start := len(prefix) - len(lead)
			if start == 0 || !schema.IsWordByte(prefix[start-1]) {
				return true
			}
		}
	}
	return false
}

// replaceMatches rewrites each non-overlapping match for which fn returns
// true and leaves the others untouched.
func replaceMatches(s string, re *regexp.Regexp, fn func(s string, m []int) (string, bool)) string {
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
		repl, ok := fn(s, m)
		if !ok {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// stepFilter renders the canonical token. The trailing space keeps a
// following particle ("에서") out of the value.
func stepFilter(value string) string {
	return StepToken + strings.ToUpper(strings.TrimRight(value, "._-")) + " "
}

func hasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			return true
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func isASCII(s string) bool {
	return utf8.RuneCountInString(s) == len(s)
}
