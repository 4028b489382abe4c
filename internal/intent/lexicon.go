package intent

import (
	"maps"
	"slices"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
)

// Lexicon bucket names. A schema document may override any bucket under
// its keywords section.
const (
	BucketCompare     = "compare"
	BucketOutlier     = "outlier"
	BucketOvershoot   = "overshoot"
	BucketDwell       = "dwell"
	BucketStable      = "stable"
	BucketAscending   = "ascending"
	BucketDateFrom    = "date_from"
	BucketDateTo      = "date_to"
	BucketDateFromPre = "date_from_prefix"
	BucketDateToPre   = "date_to_prefix"
)

// Lexicon holds the keyword triggers the extractor matches against folded
// question text.
type Lexicon map[string][]string

var defaultLexicon = Lexicon{
	BucketCompare:   {"비교", "차이", "대비", "두 공정", "vs", "versus", "compare", "comparison", "difference", "diff"},
	BucketOutlier:   {"이상치", "이상값", "아웃라이어", "튀는 값", "outlier", "outliers", "anomaly", "anomalies"},
	BucketOvershoot: {"오버슈트", "초과량", "overshoot", "overshooting"},
	BucketDwell:     {"체류시간", "체류 시간", "체류", "머무른 시간", "소요시간", "소요 시간", "dwell", "dwell time", "duration"},
	BucketStable:    {"안정화", "안정 구간", "안정", "정상상태", "stable", "stability", "settling", "steady"},
	BucketAscending: {"하위", "낮은", "작은", "오름차순", "bottom", "lowest", "smallest", "ascending"},
	// Korean markers follow the date, English ones precede it.
	BucketDateFrom:    {"부터", "이후", "에서", "~"},
	BucketDateTo:      {"까지", "이전"},
	BucketDateFromPre: {"from", "since", "after", "between"},
	BucketDateToPre:   {"to", "until", "till", "before", "and", "through", "~"},
}

// DefaultLexicon returns a copy of the built-in keyword tables.
func DefaultLexicon() Lexicon {
	return cloneLexicon(defaultLexicon)
}

// LexiconFor starts from the defaults and applies the schema's overrides.
func LexiconFor(store *schema.Store) Lexicon {
	lex := DefaultLexicon()
	if store == nil {
		return lex
	}
	for bucket := range lex {
		if words, ok := store.Keywords(bucket); ok {
			lex[bucket] = slices.Clone(words)
		}
	}
	return lex
}

func cloneLexicon(src Lexicon) Lexicon {
	dst := maps.Clone(src)
	for k, v := range dst {
		dst[k] = slices.Clone(v)
	}
	return dst
}

// Any reports whether text contains any word of bucket on valid boundaries.
func (l Lexicon) Any(bucket, text string) bool {
	for _, word := range l[bucket] {
		if schema.ContainsTerm(text, word) {
			return true
		}
	}
	return false
}
