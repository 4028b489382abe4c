package intent

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/sayoon01/ald-nl2sql-stats/internal/resolve"
	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/textnorm"
)

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	store      *schema.Store
	normalizer *textnorm.Normalizer
	resolver   *resolve.Resolver
	lexicon    Lexicon
	labels     []fieldLabel
	logger     *slog.Logger
}

type fieldLabel struct {
	key   string
	label string
}

// Option configures an Extractor.
type Option func(*Extractor)

func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithLexicon replaces the keyword tables.
func WithLexicon(lex Lexicon) Option {
	return func(x *Extractor) {
		if lex != nil {
			x.lexicon = cloneLexicon(lex)
		}
	}
}

func New(store *schema.Store, normalizer *textnorm.Normalizer, resolver *resolve.Resolver, opts ...Option) *Extractor {
	if store == nil {
		store = schema.NewStore(nil)
	}
	if normalizer == nil {
		normalizer = textnorm.New(store)
	}
	if resolver == nil {
		resolver = resolve.New(nil)
	}
	x := &Extractor{
		store:      store,
		normalizer: normalizer,
		resolver:   resolver,
		lexicon:    LexiconFor(store),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}

	// keyword tables and labels are matched against folded text
	for bucket, words := range x.lexicon {
		folded := make([]string, 0, len(words))
		for _, w := range words {
			if f := normalizer.Fold(w); f != "" {
				folded = append(folded, f)
			}
		}
		x.lexicon[bucket] = folded
	}
	for _, key := range store.AllFields() {
		meta, _ := store.FieldMeta(key)
		if label := normalizer.Fold(meta.DomainName); label != "" {
			x.labels = append(x.labels, fieldLabel{key: key, label: label})
		}
	}
	return x
}

// Extract parses one question. It only fails with *UnresolvedFieldError.
func (x *Extractor) Extract(raw string) (ParsedIntent, error) {
	return x.ExtractNormalized(x.normalizer.Normalize(raw))
}

// ExtractNormalized parses a question that has already been normalized.
func (x *Extractor) ExtractNormalized(nt textnorm.NormalizedText) (ParsedIntent, error) {
	original := x.normalizer.Fold(nt.Raw)
	text := nt.Text

	p := ParsedIntent{Order: OrderDesc}

	metric := x.detectMetric(nt, original)
	field := x.detectField(nt, original)
	p.GroupBy = detectGroup(nt)
	p.Limit = detectLimit(text)
	if x.isAscending(nt, original) {
		p.Order = OrderAsc
	}

	p.Filters.DateStart, p.Filters.DateEnd = x.detectDates(original)
	traces := detectTraces(original)
	steps := detectSteps(text)
	switch len(traces) {
	case 0:
	case 1:
		p.Filters.TraceID = traces[0]
	default:
		p.Filters.TraceIDs = traces
	}
	switch len(steps) {
	case 0:
	case 1:
		p.Filters.StepName = steps[0]
	default:
		p.Filters.StepNames = steps
	}

	compareKeyword := x.lexicon.Any(BucketCompare, original)
	p.Flags = Flags{
		IsTraceCompare: len(traces) > 1 || (compareKeyword && len(steps) < 2),
		IsOutlier:      x.lexicon.Any(BucketOutlier, original),
		IsOvershoot:    x.lexicon.Any(BucketOvershoot, original),
		IsDwellTime:    x.lexicon.Any(BucketDwell, original),
		IsStableAvg:    x.lexicon.Any(BucketStable, original),
	}

	if field == "" {
		field = x.store.DefaultField()
	}
	if metric == "" {
		metric = Metric(x.store.DefaultMetric())
	}

	decision := x.resolver.Explain(resolverTokens(nt, original), field)
	field = decision.Field

	if !x.store.IsValidField(field) {
		field = x.store.DefaultField()
	}
	if !x.store.IsValidMetric(string(metric)) {
		metric = Metric(x.store.DefaultMetric())
	}
	if p.GroupBy != GroupNone && !x.store.IsValidGroup(string(p.GroupBy)) {
		p.GroupBy = GroupNone
	}

	p.Metric = metric
	p.Field = field
	p.Category = decideCategory(p)

	x.logger.Debug("intent extracted",
		"question", nt.Raw,
		"normalized", text,
		"metric", p.Metric,
		"field", p.Field,
		"resolution", decision.Stage,
		"group_by", p.GroupBy,
		"category", p.Category,
	)

	if p.Field == "" && p.Metric != MetricCount {
		return p, &UnresolvedFieldError{Question: nt.Raw, Metric: p.Metric}
	}
	return p, nil
}

// detectMetric picks the longest metric alias found in either the
// normalized or the folded original text; earlier matches win ties.
func (x *Extractor) detectMetric(nt textnorm.NormalizedText, original string) Metric {
	var (
		best    string
		bestLen int
	)
	for _, m := range x.normalizer.Index().Scan(original, schema.CategoryMetric) {
		if n := m.RuneLen(); n > bestLen {
			best, bestLen = m.Key, n
		}
	}
	for _, s := range nt.Spans {
		if s.Category != schema.CategoryMetric {
			continue
		}
		if n := len([]rune(s.Alias)); n > bestLen {
			best, bestLen = s.Key, n
		}
	}
	return Metric(best)
}

// detectGroup honours explicit grouping markers only. A time bucket beats
// an entity grouping.
func detectGroup(nt textnorm.NormalizedText) GroupKey {
	var entity GroupKey
	for _, s := range nt.Spans {
		if s.Category != schema.CategoryGroup {
			continue
		}
		g := GroupKey(s.Key)
		if g.IsTime() {
			return g
		}
		if entity == GroupNone {
			entity = g
		}
	}
	return entity
}

func detectLimit(text string) *uint {
	m := textnorm.TopN.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil || n == 0 {
		return nil
	}
	limit := uint(n)
	return &limit
}

func (x *Extractor) isAscending(nt textnorm.NormalizedText, original string) bool {
	for _, tok := range nt.Tokens() {
		if tok == textnorm.BottomMarker {
			return true
		}
	}
	return x.lexicon.Any(BucketAscending, original)
}

// decideCategory applies the fixed priority: comparison, stability,
// grouped ranking, group profile, plain ranking.
func decideCategory(p ParsedIntent) Category {
	switch {
	case p.Flags.IsTraceCompare || len(p.Filters.TraceIDs) > 1 || len(p.Filters.StepNames) > 1:
		return CategoryComparison
	case p.Flags.IsStability():
		return CategoryStability
	case p.GroupBy != GroupNone && p.Limit != nil:
		return CategoryRanking
	case p.GroupBy != GroupNone:
		return CategoryGroupProfile
	default:
		return CategoryRanking
	}
}

// resolverTokens offers the resolver both the canonical tokens and the
// words the user actually typed.
func resolverTokens(nt textnorm.NormalizedText, original string) []string {
	return append(nt.Tokens(), strings.Fields(original)...)
}
