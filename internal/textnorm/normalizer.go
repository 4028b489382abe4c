// Package textnorm rewrites free-form questions into a canonical token
// stream: lowercased, compound words split, ranking and step phrases
// canonicalized and every known alias replaced by its schema key.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
)

// maxSplitPasses bounds the compound splitter; each pass can only insert
// spaces, so a handful of passes always reaches the fixed point.
const maxSplitPasses = 4

// Span records one alias substitution.
type Span struct {
	Alias    string          `json:"alias"`
	Category schema.Category `json:"category"`
	Key      string          `json:"key"`
	Umbrella bool            `json:"umbrella,omitempty"`
}

// NormalizedText is the normalizer output. Text is canonical; Spans lists
// the substitutions in order of appearance.
type NormalizedText struct {
	Raw   string `json:"raw"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
}

// Tokens splits the canonical text on whitespace.
func (n NormalizedText) Tokens() []string {
	return strings.Fields(n.Text)
}

var (
	punctuation = strings.NewReplacer(",", " ", "?", " ", "!", " ", ";", " ")

	koreanCompound  = regexp.MustCompile(`([\p{Hangul}a-z0-9])(가스|유량|압력|온도|밸브|게이지|스텝|단계|공정|트레이스)`)
	englishCompound = regexp.MustCompile(`\b([a-z]{2,})(gas|flow|pressure|temperature|valve|gauge|step|stage|process|trace)\b`)

	// TracePattern matches trace identifiers in folded text.
	TracePattern = regexp.MustCompile(`\b(?:standard_)?trace_\d+\b`)
)

// Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	store *schema.Store
	index *schema.AliasIndex
}

// New builds the alias index for store once. Aliases are folded with the
// same stages the input goes through, so "챔버압력" in a schema and "챔버 압력"
// typed by a user meet in the middle.
func New(store *schema.Store) *Normalizer {
	if store == nil {
		store = schema.NewStore(nil)
	}
	n := &Normalizer{store: store}
	n.index = schema.NewAliasIndex(store.Definition(), n.Fold)
	return n
}

// Index exposes the alias index the normalizer substitutes with.
func (n *Normalizer) Index() *schema.AliasIndex { return n.index }

// Fold applies Unicode composition, lowercasing, punctuation stripping,
// whitespace collapsing and compound splitting.
func (n *Normalizer) Fold(s string) string {
	s = norm.NFC.String(s)
	// casers keep state between calls; never share one across goroutines
	s = cases.Lower(language.Und).String(s)
	s = punctuation.Replace(s)
	s = collapse(s)
	return splitCompounds(s)
}

// Normalize runs the full pipeline. Applying it to its own output returns
// the same text.
func (n *Normalizer) Normalize(raw string) NormalizedText {
	text := n.Fold(raw)
	text = canonicalizeRanking(text)
	text = n.canonicalizeSteps(text)
	text, spans := n.substitute(text)
	return NormalizedText{
		Raw:   raw,
		Text:  collapse(text),
		Spans: spans,
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func splitCompounds(s string) string {
	for i := 0; i < maxSplitPasses; i++ {
		next := koreanCompound.ReplaceAllString(s, "$1 $2")
		next = englishCompound.ReplaceAllString(next, "$1 $2")
		if next == s {
			break
		}
		s = next
	}
	return s
}

// substitute scans left to right; at each position the longest alias on a
// valid boundary is replaced and the scan resumes after it. Replacements
// are padded so a particle or a neighbouring alias never fuses with a key.
func (n *Normalizer) substitute(text string) (string, []Span) {
	var (
		b     strings.Builder
		spans []Span
	)
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if e, ok := n.index.MatchAt(text, i); ok {
			b.WriteByte(' ')
			b.WriteString(e.Replacement())
			b.WriteByte(' ')
			spans = append(spans, Span{Alias: e.Alias, Category: e.Category, Key: e.Key, Umbrella: e.Umbrella})
			i += len(e.Alias)
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+size])
		i += size
	}
	return b.String(), spans
}
