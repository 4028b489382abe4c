package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/textnorm"
)

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`)

type dateRole int

const (
	dateUnmarked dateRole = iota
	dateFrom
	dateTo
)

type dateMention struct {
	value string
	role  dateRole
}

// detectDates returns ISO dates for the range bounds found in text. A lone
// date is an end bound only when a "to" marker sits next to it. With two
// or more dates the first two form the range, earliest first.
func (x *Extractor) detectDates(text string) (start, end string) {
	var dates []dateMention
	for _, m := range datePattern.FindAllStringSubmatchIndex(text, -1) {
		value, ok := isoDate(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]])
		if !ok {
			continue
		}
		dates = append(dates, dateMention{value: value, role: x.dateRole(text, m[0], m[1])})
	}

	switch len(dates) {
	case 0:
		return "", ""
	case 1:
		if dates[0].role == dateTo {
			return "", dates[0].value
		}
		return dates[0].value, ""
	}

	// markers only matter for a lone date; a pair is ordered by value
	start, end = dates[0].value, dates[1].value
	if start > end {
		start, end = end, start
	}
	return start, end
}

func (x *Extractor) dateRole(text string, start, end int) dateRole {
	after := strings.TrimLeft(text[end:], " ")
	before := strings.TrimRight(text[:start], " ")

	for _, w := range x.lexicon[BucketDateTo] {
		if strings.HasPrefix(after, w) {
			return dateTo
		}
	}
	for _, w := range x.lexicon[BucketDateFrom] {
		if strings.HasPrefix(after, w) {
			return dateFrom
		}
	}
	for _, w := range x.lexicon[BucketDateToPre] {
		if endsWithTerm(before, w) {
			return dateTo
		}
	}
	for _, w := range x.lexicon[BucketDateFromPre] {
		if endsWithTerm(before, w) {
			return dateFrom
		}
	}
	return dateUnmarked
}

func endsWithTerm(text, term string) bool {
	if term == "" || !strings.HasSuffix(text, term) {
		return false
	}
	return schema.OnBoundary(text, len(text)-len(term), len(text))
}

func isoDate(y, m, d string) (string, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return t.Format(dateLayout), true
}

// detectTraces returns distinct trace identifiers in order of appearance.
func detectTraces(text string) []string {
	return distinct(textnorm.TracePattern.FindAllString(text, -1))
}

// detectSteps reads canonical step=VALUE tokens.
func detectSteps(text string) []string {
	var values []string
	for _, m := range textnorm.CanonicalStep.FindAllStringSubmatch(text, -1) {
		values = append(values, m[1])
	}
	return distinct(values)
}

func distinct(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
