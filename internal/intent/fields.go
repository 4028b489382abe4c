package intent

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/textnorm"
)

// Evidence tiers for field detection, strongest last.
const (
	tierLabel = iota
	tierUmbrella
	tierAlias
	tierKey
)

type fieldCandidate struct {
	key      string
	tier     int
	length   int
	numbered bool
	flow     bool
	position int
}

// detectField scores every field mention and returns the strongest, or ""
// when the question names no field.
func (x *Extractor) detectField(nt textnorm.NormalizedText, original string) string {
	best := make(map[string]fieldCandidate)
	offer := func(c fieldCandidate) {
		if prev, ok := best[c.key]; ok && !stronger(c, prev) {
			return
		}
		best[c.key] = c
	}

	for _, s := range nt.Spans {
		if s.Category != schema.CategoryField {
			continue
		}
		tier := tierAlias
		switch {
		case s.Alias == s.Key:
			tier = tierKey
		case s.Umbrella:
			tier = tierUmbrella
		}
		offer(x.candidate(s.Key, tier, s.Alias))
	}
	for _, l := range x.labels {
		if schema.ContainsTerm(original, l.label) {
			offer(x.candidate(l.key, tierLabel, l.label))
		}
	}

	if len(best) == 0 {
		return ""
	}
	ranked := make([]fieldCandidate, 0, len(best))
	for _, c := range best {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool { return stronger(ranked[i], ranked[j]) })
	return ranked[0].key
}

func (x *Extractor) candidate(key string, tier int, alias string) fieldCandidate {
	meta, _ := x.store.FieldMeta(key)
	return fieldCandidate{
		key:      key,
		tier:     tier,
		length:   utf8.RuneCountInString(alias),
		numbered: strings.IndexFunc(key, unicode.IsDigit) >= 0,
		flow:     isFlowFamily(meta),
		position: x.store.FieldPosition(key),
	}
}

// stronger orders candidates: evidence tier, then a numbered channel over
// its generic sibling, then the flow family, then the longer alias, then
// declaration order.
func stronger(a, b fieldCandidate) bool {
	if a.tier != b.tier {
		return a.tier > b.tier
	}
	if a.numbered != b.numbered {
		return a.numbered
	}
	if a.flow != b.flow {
		return a.flow
	}
	if a.length != b.length {
		return a.length > b.length
	}
	return a.position < b.position
}

func isFlowFamily(meta schema.FieldMeta) bool {
	switch strings.ToLower(meta.Family) {
	case "flow", "gas":
		return true
	}
	switch strings.ToLower(meta.PhysicalType) {
	case "flow", "gas":
		return true
	}
	return false
}
