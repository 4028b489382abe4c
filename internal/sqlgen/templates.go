package sqlgen

import (
	"fmt"
	"strings"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
)

const indent = "    "

// sqlLines joins rendered lines, dropping empty ones.
type sqlLines []string

func (l *sqlLines) add(line string) {
	if line != "" {
		*l = append(*l, line)
	}
}

func (l sqlLines) String() string { return strings.Join(l, "\n") }

func whereClause(conds []string, prefix string) string {
	if len(conds) == 0 {
		return ""
	}
	return prefix + "WHERE " + strings.Join(conds, "\n"+prefix+"  AND ")
}

func selectList(cols ...string) string {
	var out []string
	for _, c := range cols {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, ", ")
}

// uniq keeps the first occurrence of each column.
func uniq(cols ...string) []string {
	seen := make(map[string]struct{}, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// aggregate renders the ranking and group-profile shapes.
func (q *query) aggregate() (string, Template, error) {
	switch {
	case q.p.GroupBy.IsTime():
		return q.timeBucketed()
	case q.p.GroupBy.IsEntity():
		return q.grouped(q.c.groupColumn(q.p.GroupBy), TemplateGrouped, "value", q.direction())
	default:
		return q.single()
	}
}

func (q *query) single() (string, Template, error) {
	agg, err := q.aggregateExpr(q.col)
	if err != nil {
		return "", "", err
	}
	var l sqlLines
	l.add("SELECT " + selectList(append([]string{agg + " AS value"}, q.companions(false)...)...))
	l.add("FROM " + q.c.table)
	l.add(whereClause(q.conditions(skipFilter{}), ""))
	return l.String(), TemplateSingle, nil
}

func (q *query) grouped(gcol string, tpl Template, orderBy, dir string) (string, Template, error) {
	agg, err := q.aggregateExpr(q.col)
	if err != nil {
		return "", "", err
	}
	cols := append([]string{gcol, agg + " AS value"}, q.companions(true)...)

	var l sqlLines
	l.add("SELECT " + selectList(cols...))
	l.add("FROM " + q.c.table)
	l.add(whereClause(q.conditions(skipFilter{}), ""))
	l.add("GROUP BY " + gcol)
	l.add("ORDER BY " + orderBy + " " + dir)
	l.add(q.limitClause())
	return l.String(), tpl, nil
}

// timeBucketed orders buckets chronologically; a limit re-ranks them in an
// outer pass.
func (q *query) timeBucketed() (string, Template, error) {
	agg, err := q.aggregateExpr(q.col)
	if err != nil {
		return "", "", err
	}
	unit := "day"
	if q.p.GroupBy == intent.GroupHour {
		unit = "hour"
	}
	bucket := q.c.dialect.Bucket(q.c.ts, unit)
	alias := string(q.p.GroupBy)

	var inner sqlLines
	inner.add("SELECT " + selectList(append([]string{bucket + " AS " + alias, agg + " AS value"}, q.companions(false)...)...))
	inner.add("FROM " + q.c.table)
	inner.add(whereClause(q.conditions(skipFilter{}), ""))
	inner.add("GROUP BY " + bucket)
	inner.add("ORDER BY " + alias + " ASC")

	if !q.p.HasLimit() {
		return inner.String(), TemplateTimeBucket, nil
	}

	var l sqlLines
	l.add("SELECT *")
	l.add("FROM (")
	for _, line := range inner {
		l.add(indent + line)
	}
	l.add(") AS buckets")
	l.add("ORDER BY value " + q.direction())
	l.add(q.limitClause())
	return l.String(), TemplateTimeBucket, nil
}

// comparison joins the aggregates of exactly two traces (per step) or two
// steps (per trace). Without a pair it falls back to a per-entity listing.
func (q *query) comparison() (string, Template, error) {
	traces, steps := q.p.TraceList(), q.p.StepList()
	switch {
	case len(traces) >= 2:
		return q.pairwise(false, traces[0], traces[1])
	case len(steps) >= 2:
		return q.pairwise(true, steps[0], steps[1])
	}
	gcol := q.c.trace
	if q.p.GroupBy.IsEntity() {
		gcol = q.c.groupColumn(q.p.GroupBy)
	}
	return q.grouped(gcol, TemplateComparisonGrouped, gcol, "ASC")
}

func (q *query) pairwise(byStep bool, a, b string) (string, Template, error) {
	agg, err := q.aggregateExpr(q.col)
	if err != nil {
		return "", "", err
	}

	c := q.c
	entity, key := c.trace, c.step
	skip := skipFilter{trace: true}
	if byStep {
		entity, key = "LOWER("+c.step+")", c.trace
		skip = skipFilter{step: true}
		a, b = strings.ToLower(a), strings.ToLower(b)
	}

	var l sqlLines
	l.add("WITH compare_keys AS (")
	l.add(indent + "SELECT DISTINCT " + key)
	l.add(indent + "FROM " + c.table)
	l.add(whereClause(q.conditions(skip, fmt.Sprintf("%s IN (%s)", entity, q.b.list([]string{a, b}))), indent))
	l.add("),")
	for i, side := range []string{a, b} {
		name := "side_a"
		closing := "),"
		if i == 1 {
			name, closing = "side_b", ")"
		}
		l.add(name + " AS (")
		l.add(indent + "SELECT " + key + ", " + agg + " AS agg_val")
		l.add(indent + "FROM " + c.table)
		l.add(whereClause(q.conditions(skip, fmt.Sprintf("%s = %s", entity, q.b.bind(side))), indent))
		l.add(indent + "GROUP BY " + key)
		l.add(closing)
	}
	l.add("SELECT k." + key + ",")
	l.add(indent + "COALESCE(a.agg_val, 0) AS value_a,")
	l.add(indent + "COALESCE(b.agg_val, 0) AS value_b,")
	l.add(indent + "ABS(COALESCE(a.agg_val, 0) - COALESCE(b.agg_val, 0)) AS diff,")
	l.add(indent + "COALESCE(a.agg_val, 0) - COALESCE(b.agg_val, 0) AS diff_signed")
	l.add("FROM compare_keys k")
	l.add("LEFT JOIN side_a a ON a." + key + " = k." + key)
	l.add("LEFT JOIN side_b b ON b." + key + " = k." + key)
	l.add("ORDER BY diff DESC")
	l.add(fmt.Sprintf("LIMIT %d", c.opts.CompareLimit))
	return l.String(), TemplateComparison, nil
}
