// Package sqlgen compiles a ParsedIntent into one parameterized SQL
// statement. Identifiers come only from the schema and are checked against
// the column whitelist; every user-supplied value is a bound parameter.
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
)

const (
	DefaultOutlierThreshold = 1.0
	DefaultCompareLimit     = 5
	// stableWarmupFraction is the share of leading samples per step run
	// excluded from the stable-window average.
	stableWarmupFraction = "0.1"
)

// Template names the statement shape that was rendered.
type Template string

const (
	TemplateSingle            Template = "single"
	TemplateGrouped           Template = "grouped"
	TemplateTimeBucket        Template = "time_bucket"
	TemplateComparison        Template = "comparison"
	TemplateComparisonGrouped Template = "comparison_grouped"
	TemplateStableAvg         Template = "stable_avg"
	TemplateOvershoot         Template = "overshoot"
	TemplateDwellTime         Template = "dwell_time"
	TemplateOutlier           Template = "outlier_ratio"
)

// Statement is the compiler output.
type Statement struct {
	SQL      string   `json:"sql" yaml:"sql"`
	Params   []any    `json:"params" yaml:"params"`
	Template Template `json:"template" yaml:"template"`
	Dialect  string   `json:"dialect" yaml:"dialect"`
}

// Options configure a Compiler.
type Options struct {
	Dialect Dialect
	// Table overrides the schema's source table.
	Table string
	// IncludeStats adds count and spread companions to aggregates.
	IncludeStats     bool
	OutlierThreshold float64
	CompareLimit     int
}

// Compiler is immutable after New and safe for concurrent use.
type Compiler struct {
	store   *schema.Store
	dialect Dialect
	opts    Options

	table string
	ts    string
	trace string
	step  string
}

var (
	identifier      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	tableIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// New validates the structural identifiers once so Compile only has to
// check field columns.
func New(store *schema.Store, opts Options) (*Compiler, error) {
	if store == nil {
		store = schema.NewStore(nil)
	}
	if opts.Dialect == nil {
		opts.Dialect = DuckDB{}
	}
	if opts.OutlierThreshold <= 0 {
		opts.OutlierThreshold = DefaultOutlierThreshold
	}
	if opts.CompareLimit <= 0 {
		opts.CompareLimit = DefaultCompareLimit
	}

	meta := store.Meta()
	c := &Compiler{
		store:   store,
		dialect: opts.Dialect,
		opts:    opts,
		table:   meta.Table,
		ts:      meta.TimestampColumn,
		trace:   meta.TraceColumn,
		step:    meta.StepColumn,
	}
	if t := strings.TrimSpace(opts.Table); t != "" {
		c.table = t
	}

	if !tableIdentifier.MatchString(c.table) {
		return nil, fmt.Errorf("invalid table name %q", c.table)
	}
	for _, col := range []string{c.ts, c.trace, c.step} {
		if !identifier.MatchString(col) {
			return nil, fmt.Errorf("invalid column name %q", col)
		}
	}
	return c, nil
}

func (c *Compiler) Dialect() Dialect { return c.dialect }

// Compile renders p. It fails with *DisallowedFieldError when the field's
// column is not whitelisted and with *UnsupportedError when the dialect
// cannot express the request.
func (c *Compiler) Compile(p intent.ParsedIntent) (Statement, error) {
	col, err := c.column(p.Field)
	if err != nil {
		return Statement{}, err
	}

	q := &query{c: c, p: p, col: col, b: &binder{dialect: c.dialect}}

	var (
		sql string
		tpl Template
	)
	switch p.Category {
	case intent.CategoryComparison:
		sql, tpl, err = q.comparison()
	case intent.CategoryStability:
		sql, tpl, err = q.stability()
	case intent.CategoryRanking, intent.CategoryGroupProfile:
		sql, tpl, err = q.aggregate()
	default:
		return Statement{}, fmt.Errorf("unknown analysis category %q", p.Category)
	}
	if err != nil {
		return Statement{}, err
	}

	params := q.b.params
	if params == nil {
		params = []any{}
	}
	return Statement{SQL: sql, Params: params, Template: tpl, Dialect: c.dialect.Name()}, nil
}

// column resolves a field key to a whitelisted storage column.
func (c *Compiler) column(field string) (string, error) {
	if field == "" {
		return "", nil
	}
	col, ok := c.store.StorageColumn(field)
	if !ok {
		return "", &DisallowedFieldError{Field: field}
	}
	if !identifier.MatchString(col) || !c.store.IsAllowedColumn(col) {
		return "", &DisallowedFieldError{Field: field, Column: col}
	}
	return col, nil
}

// groupColumn is the column behind an entity grouping.
func (c *Compiler) groupColumn(g intent.GroupKey) string {
	if meta, ok := c.store.GroupMeta(string(g)); ok && meta.Column != "" && identifier.MatchString(meta.Column) {
		return meta.Column
	}
	if g == intent.GroupTrace {
		return c.trace
	}
	return c.step
}

// binder collects parameters in placeholder order.
type binder struct {
	dialect Dialect
	params  []any
}

func (b *binder) bind(v any) string {
	b.params = append(b.params, v)
	return b.dialect.Placeholder(len(b.params))
}

func (b *binder) list(values []string) string {
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = b.bind(v)
	}
	return strings.Join(marks, ", ")
}

// query carries the state of one compilation.
type query struct {
	c   *Compiler
	p   intent.ParsedIntent
	col string
	b   *binder
}

type skipFilter struct {
	trace bool
	step  bool
}

// conditions renders the intent's filters. Callers bind in the order the
// text is emitted.
func (q *query) conditions(skip skipFilter, extra ...string) []string {
	c := q.c
	conds := append([]string(nil), extra...)

	if !skip.trace {
		switch traces := q.p.TraceList(); {
		case len(traces) > 1:
			conds = append(conds, fmt.Sprintf("%s IN (%s)", c.trace, q.b.list(traces)))
		case len(traces) == 1:
			conds = append(conds, fmt.Sprintf("%s = %s", c.trace, q.b.bind(traces[0])))
		}
	}
	if !skip.step {
		switch steps := lowerAll(q.p.StepList()); {
		case len(steps) > 1:
			conds = append(conds, fmt.Sprintf("LOWER(%s) IN (%s)", c.step, q.b.list(steps)))
		case len(steps) == 1:
			conds = append(conds, fmt.Sprintf("LOWER(%s) = %s", c.step, q.b.bind(steps[0])))
		}
	}
	if q.p.Filters.DateStart != "" {
		conds = append(conds, fmt.Sprintf("%s >= %s", c.dialect.DateOf(c.ts), q.b.bind(q.p.Filters.DateStart)))
	}
	if q.p.Filters.DateEnd != "" {
		conds = append(conds, fmt.Sprintf("%s <= %s", c.dialect.DateOf(c.ts), q.b.bind(q.p.Filters.DateEnd)))
	}
	return conds
}

// aggregateExpr renders the metric over col.
func (q *query) aggregateExpr(col string) (string, error) {
	m := q.p.Metric
	if m == intent.MetricCount {
		return "COUNT(*)", nil
	}
	if col == "" {
		return "", fmt.Errorf("metric %s: %w", m, ErrFieldRequired)
	}
	d := q.c.dialect
	switch m {
	case intent.MetricAvg:
		return fmt.Sprintf("AVG(%s)", col), nil
	case intent.MetricMin:
		return fmt.Sprintf("MIN(%s)", col), nil
	case intent.MetricMax:
		return fmt.Sprintf("MAX(%s)", col), nil
	case intent.MetricStd:
		if expr, ok := d.Stddev(col); ok {
			return expr, nil
		}
	case intent.MetricP50, intent.MetricP95, intent.MetricP99:
		if expr, ok := d.Percentile(col, percentileFraction(m)); ok {
			return expr, nil
		}
	case intent.MetricNullRatio:
		return fmt.Sprintf("SUM(CASE WHEN %s IS NULL THEN 1 ELSE 0 END) * 100.0 / COUNT(*)", col), nil
	default:
		return "", fmt.Errorf("unknown metric %q", m)
	}
	return "", &UnsupportedError{Dialect: d.Name(), Feature: "metric " + string(m)}
}

func percentileFraction(m intent.Metric) float64 {
	switch m {
	case intent.MetricP95:
		return 0.95
	case intent.MetricP99:
		return 0.99
	default:
		return 0.5
	}
}

// companions are the optional count and spread columns.
func (q *query) companions(withRange bool) []string {
	if !q.c.opts.IncludeStats {
		return nil
	}
	m := q.p.Metric
	var out []string
	if m != intent.MetricCount {
		out = append(out, "COUNT(*) AS n")
	}
	if q.col == "" || m == intent.MetricCount || m == intent.MetricNullRatio {
		return out
	}
	if m != intent.MetricStd {
		if expr, ok := q.c.dialect.Stddev(q.col); ok {
			out = append(out, expr+" AS std")
		}
	}
	if withRange {
		out = append(out,
			fmt.Sprintf("MIN(%s) AS min_val", q.col),
			fmt.Sprintf("MAX(%s) AS max_val", q.col),
		)
	}
	return out
}

func (q *query) direction() string {
	if q.p.Order == intent.OrderAsc {
		return "ASC"
	}
	return "DESC"
}

func (q *query) limitClause() string {
	if !q.p.HasLimit() {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", q.p.LimitValue())
}

func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
