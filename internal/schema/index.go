package schema

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// GroupPrefix marks canonical group tokens in normalized text.
const GroupPrefix = "group:"

// Entry is one alias owned by exactly one (category, key) pair.
type Entry struct {
	Alias    string
	Category Category
	Key      string
	// Umbrella is set for generic field words ("pressure", "압력") that
	// several sibling channels could claim.
	Umbrella bool
}

// Collision records an alias claimed by more than one key. The first
// registration keeps it.
type Collision struct {
	Alias string
	Kept  Entry
	Lost  Entry
}

// Match is an index hit inside a text.
type Match struct {
	Entry
	Pos int
}

// Replacement is the canonical token the alias stands for.
func (e Entry) Replacement() string {
	if e.Category == CategoryGroup {
		return GroupPrefix + e.Key
	}
	return e.Key
}

// RuneLen is the alias length used for longest-match ordering.
func (e Entry) RuneLen() int { return utf8.RuneCountInString(e.Alias) }

// AliasIndex maps folded alias text to canonical keys.
type AliasIndex struct {
	entries    []Entry
	byAlias    map[string]Entry
	byFirst    map[rune][]Entry
	collisions []Collision
}

// NewAliasIndex builds the index for def. fold must be the same folding the
// normalizer applies to user text before substitution, so stored aliases and
// input agree on case, Unicode form and compound spacing.
func NewAliasIndex(def *Definition, fold func(string) string) *AliasIndex {
	if def == nil {
		def = Empty()
	}
	if fold == nil {
		fold = strings.ToLower
	}

	x := &AliasIndex{
		byAlias: make(map[string]Entry),
		byFirst: make(map[rune][]Entry),
	}

	umbrella := make(map[string]struct{}, len(def.Meta.UmbrellaTerms))
	for _, t := range def.Meta.UmbrellaTerms {
		umbrella[fold(t)] = struct{}{}
	}

	// Canonical keys go first so they always map to themselves.
	for _, key := range def.Order {
		x.add(Entry{Alias: key, Category: CategoryField, Key: key})
	}
	for _, key := range def.MetricOrder {
		x.add(Entry{Alias: key, Category: CategoryMetric, Key: key})
	}
	for _, key := range def.GroupOrder {
		x.add(Entry{Alias: GroupPrefix + key, Category: CategoryGroup, Key: key})
	}

	for _, key := range def.Order {
		for _, alias := range def.Fields[key].Aliases {
			folded := fold(alias)
			_, generic := umbrella[folded]
			x.add(Entry{Alias: folded, Category: CategoryField, Key: key, Umbrella: generic})
		}
	}
	for _, key := range def.MetricOrder {
		for _, alias := range def.Metrics[key].Aliases {
			x.add(Entry{Alias: fold(alias), Category: CategoryMetric, Key: key})
		}
	}
	for _, key := range def.GroupOrder {
		for _, alias := range def.Groups[key].Aliases {
			x.add(Entry{Alias: fold(alias), Category: CategoryGroup, Key: key})
		}
	}

	sortEntries(x.entries)
	for r, bucket := range x.byFirst {
		sortEntries(bucket)
		x.byFirst[r] = bucket
	}
	return x
}

func (x *AliasIndex) add(e Entry) {
	e.Alias = strings.TrimSpace(e.Alias)
	if e.Alias == "" {
		return
	}
	if prev, ok := x.byAlias[e.Alias]; ok {
		if prev.Category != e.Category || prev.Key != e.Key {
			x.collisions = append(x.collisions, Collision{Alias: e.Alias, Kept: prev, Lost: e})
		}
		return
	}
	x.byAlias[e.Alias] = e
	x.entries = append(x.entries, e)
	first, _ := utf8.DecodeRuneInString(e.Alias)
	x.byFirst[first] = append(x.byFirst[first], e)
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		li, lj := entries[i].RuneLen(), entries[j].RuneLen()
		if li != lj {
			return li > lj
		}
		return entries[i].Alias < entries[j].Alias
	})
}

func (x *AliasIndex) Len() int { return len(x.entries) }

// Entries returns all aliases, longest first.
func (x *AliasIndex) Entries() []Entry {
	out := make([]Entry, len(x.entries))
	copy(out, x.entries)
	return out
}

func (x *AliasIndex) Collisions() []Collision { return x.collisions }

// Lookup finds an exact folded alias.
func (x *AliasIndex) Lookup(alias string) (Entry, bool) {
	e, ok := x.byAlias[alias]
	return e, ok
}

// MatchAt returns the longest alias starting at byte offset i of text that
// sits on valid boundaries.
func (x *AliasIndex) MatchAt(text string, i int) (Entry, bool) {
	if i < 0 || i >= len(text) {
		return Entry{}, false
	}
	first, _ := utf8.DecodeRuneInString(text[i:])
	for _, e := range x.byFirst[first] {
		if strings.HasPrefix(text[i:], e.Alias) && OnBoundary(text, i, i+len(e.Alias)) {
			return e, true
		}
	}
	return Entry{}, false
}

// Scan reports, for each rune position of text, the longest alias of the
// given category starting there. Matches may overlap.
func (x *AliasIndex) Scan(text string, category Category) []Match {
	var out []Match
	for i := 0; i < len(text); {
		first, size := utf8.DecodeRuneInString(text[i:])
		for _, e := range x.byFirst[first] {
			if e.Category != category {
				continue
			}
			if strings.HasPrefix(text[i:], e.Alias) && OnBoundary(text, i, i+len(e.Alias)) {
				out = append(out, Match{Entry: e, Pos: i})
				break
			}
		}
		i += size
	}
	return out
}

// OnBoundary reports whether text[start:end] can stand as a term: when the
// term begins or ends with an ASCII word character, the neighbouring byte
// must not be one. Hangul edges are allowed to touch particles.
func OnBoundary(text string, start, end int) bool {
	if start >= end {
		return false
	}
	if IsWordByte(text[start]) && start > 0 && IsWordByte(text[start-1]) {
		return false
	}
	if IsWordByte(text[end-1]) && end < len(text) && IsWordByte(text[end]) {
		return false
	}
	return true
}

// ContainsTerm reports whether term occurs in text on valid boundaries.
func ContainsTerm(text, term string) bool {
	return IndexTerm(text, term) >= 0
}

// IndexTerm is the byte offset of the first boundary-valid occurrence of term.
func IndexTerm(text, term string) int {
	if term == "" {
		return -1
	}
	offset := 0
	for {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return -1
		}
		start := offset + i
		if OnBoundary(text, start, start+len(term)) {
			return start
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

// IsWordByte matches ASCII letters, digits and underscore.
func IsWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
