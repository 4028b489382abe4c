// Package suggest offers example questions for autocompletion.
package suggest

import (
	"slices"
	"strings"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/textnorm"
)

// Kind is the analysis shape an example demonstrates.
type Kind string

const (
	KindSingle      Kind = "single"
	KindGrouped     Kind = "grouped"
	KindVariability Kind = "variability"
	KindComparison  Kind = "comparison"
	KindProcess     Kind = "process"
)

// Suggestion is one example question.
type Suggestion struct {
	Question string `json:"question" yaml:"question"`
	Kind     Kind   `json:"category" yaml:"category"`
}

const (
	DefaultLimit        = 10
	DefaultPopularLimit = 5
)

var templates = []Suggestion{
	{"압력 평균", KindSingle},
	{"질소 1 유량 평균", KindSingle},
	{"rf 전력 평균", KindSingle},
	{"vg11 표준편차", KindSingle},
	{"상단 온도 최대", KindSingle},
	{"하단 온도 최소", KindSingle},

	{"스텝별 압력 평균", KindGrouped},
	{"스텝별 압력 평균 상위 5개", KindGrouped},
	{"스텝별 압력 평균 하위 3개", KindGrouped},
	{"트레이스별 압력 평균", KindGrouped},
	{"일별 압력 평균", KindGrouped},

	{"변동 큰 스텝", KindVariability},
	{"압력 이상치 상위 10개", KindVariability},
	{"스텝별 압력 표준편차 상위 5개", KindVariability},

	{"standard_trace_001과 standard_trace_002 압력 비교", KindComparison},

	{"압력 오버슈트", KindProcess},
	{"스텝별 체류시간", KindProcess},
	{"안정화 구간 평균", KindProcess},
}

// topics groups examples by the quantity they ask about.
var topics = map[string][]string{
	"압력": {
		"압력 평균",
		"스텝별 압력 평균",
		"압력 이상치 상위 10개",
		"변동 큰 스텝",
	},
	"온도": {
		"상단 온도 평균",
		"하단 온도 평균",
		"스텝별 온도 평균",
	},
	"유량": {
		"질소 1 유량 평균",
		"암모니아 유량 평균",
	},
	"rf": {
		"rf 전력 평균",
		"스텝별 rf 전력 평균",
	},
	"비교": {
		"standard_trace_001과 standard_trace_002 압력 비교",
	},
	"공정지표": {
		"압력 오버슈트",
		"스텝별 체류시간",
	},
}

var popular = []string{
	"압력 평균",
	"스텝별 압력 평균",
	"변동 큰 스텝",
	"압력 이상치 상위 10개",
	"standard_trace_001과 standard_trace_002 압력 비교",
}

// Catalog is the fixed examples plus one average question per schema
// field. It is immutable after New.
type Catalog struct {
	items []Suggestion
	fold  func(string) string
}

func New(store *schema.Store, normalizer *textnorm.Normalizer) *Catalog {
	if store == nil {
		store = schema.NewStore(nil)
	}
	if normalizer == nil {
		normalizer = textnorm.New(store)
	}
	c := &Catalog{items: slices.Clone(templates), fold: normalizer.Fold}

	seen := make(map[string]struct{}, len(c.items))
	for _, s := range c.items {
		seen[c.fold(s.Question)] = struct{}{}
	}
	for _, key := range store.AllFields() {
		meta, _ := store.FieldMeta(key)
		q := meta.DomainName + " 평균"
		if _, dup := seen[c.fold(q)]; dup {
			continue
		}
		seen[c.fold(q)] = struct{}{}
		c.items = append(c.items, Suggestion{Question: q, Kind: KindSingle})
	}
	return c
}

// Suggest returns examples containing query, topped up with the rest of
// the catalog when fewer than limit match.
func (c *Catalog) Suggest(query string, limit int) []Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := c.fold(query)

	out := make([]Suggestion, 0, limit)
	taken := make(map[string]bool)
	if q != "" {
		for _, s := range c.items {
			if strings.Contains(c.fold(s.Question), q) {
				out = append(out, s)
				taken[s.Question] = true
			}
		}
	}
	for _, s := range c.items {
		if len(out) >= limit {
			break
		}
		if !taken[s.Question] {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Matches is Suggest without the top-up.
func (c *Catalog) Matches(query string) []Suggestion {
	q := c.fold(query)
	var out []Suggestion
	for _, s := range c.items {
		if q == "" || strings.Contains(c.fold(s.Question), q) {
			out = append(out, s)
		}
	}
	return out
}

// Topics lists the topic names ByTopic accepts.
func Topics() []string {
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ByTopic returns the examples of one topic. An unknown or empty topic
// returns every topic's examples, deduplicated and sorted.
func ByTopic(topic string) []string {
	if qs, ok := topics[strings.ToLower(strings.TrimSpace(topic))]; ok {
		return slices.Clone(qs)
	}
	var all []string
	for _, qs := range topics {
		all = append(all, qs...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// Popular returns the most asked examples.
func Popular(limit int) []string {
	if limit <= 0 || limit > len(popular) {
		limit = len(popular)
	}
	return slices.Clone(popular[:limit])
}
