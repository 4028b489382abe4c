package sqlgen

import (
	"fmt"
	"strings"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
)

// stability picks one process-metric template. When several flags are set
// the outlier ratio wins, then overshoot, dwell time and the stable window.
func (q *query) stability() (string, Template, error) {
	f := q.p.Flags
	switch {
	case f.IsOutlier:
		return q.outlier()
	case f.IsOvershoot:
		return q.overshoot()
	case f.IsDwellTime:
		return q.dwell()
	case f.IsStableAvg:
		return q.stableAvg()
	default:
		return q.aggregate()
	}
}

// stabilityGroup is the explicit entity grouping or the template default.
func (q *query) stabilityGroup(fallback intent.GroupKey) string {
	if q.p.GroupBy.IsEntity() {
		return q.c.groupColumn(q.p.GroupBy)
	}
	return q.c.groupColumn(fallback)
}

func (q *query) requireColumn(template Template) error {
	if q.col == "" {
		return fmt.Errorf("%s: %w", template, ErrFieldRequired)
	}
	return nil
}

// stableAvg averages each step run after dropping its first decile of
// samples, where the process is still settling.
func (q *query) stableAvg() (string, Template, error) {
	if err := q.requireColumn(TemplateStableAvg); err != nil {
		return "", "", err
	}
	c := q.c
	gcol := q.stabilityGroup(intent.GroupStep)
	partition := c.trace + ", " + c.step

	var l sqlLines
	l.add("WITH ranked AS (")
	l.add(indent + "SELECT " + strings.Join(uniq(c.trace, c.step, gcol, q.col), ", ") + ",")
	l.add(indent + indent + "ROW_NUMBER() OVER (PARTITION BY " + partition + " ORDER BY " + c.ts + ") AS rn,")
	l.add(indent + indent + "COUNT(*) OVER (PARTITION BY " + partition + ") AS total")
	l.add(indent + "FROM " + c.table)
	l.add(whereClause(q.conditions(skipFilter{}), indent))
	l.add(")")
	cols := []string{gcol, "AVG(" + q.col + ") AS value", "COUNT(*) AS n"}
	if expr, ok := c.dialect.Stddev(q.col); ok && c.opts.IncludeStats {
		cols = append(cols, expr+" AS std")
	}
	l.add("SELECT " + selectList(cols...))
	l.add("FROM ranked")
	l.add("WHERE rn > total * " + stableWarmupFraction)
	l.add("GROUP BY " + gcol)
	l.add("ORDER BY value " + q.direction())
	l.add(q.limitClause())
	return l.String(), TemplateStableAvg, nil
}

// overshoot measures how far the channel runs above its setpoint. Channels
// without a setpoint are measured against their group mean.
func (q *query) overshoot() (string, Template, error) {
	if err := q.requireColumn(TemplateOvershoot); err != nil {
		return "", "", err
	}
	c := q.c
	gcol := q.stabilityGroup(intent.GroupStep)

	deviation := fmt.Sprintf("%s - AVG(%s) OVER (PARTITION BY %s)", q.col, q.col, gcol)
	if meta, ok := c.store.FieldMeta(q.p.Field); ok && meta.Setpoint != "" {
		sp, err := c.column(meta.Setpoint)
		if err != nil {
			return "", "", err
		}
		deviation = q.col + " - " + sp
	}

	var l sqlLines
	l.add("WITH deviations AS (")
	l.add(indent + "SELECT " + gcol + ", " + deviation + " AS dev")
	l.add(indent + "FROM " + c.table)
	l.add(whereClause(q.conditions(skipFilter{}, q.col+" IS NOT NULL"), indent))
	l.add(")")
	l.add("SELECT " + selectList(gcol, "MAX(dev) AS value", "AVG(dev) AS avg_dev", "MIN(dev) AS min_dev", "COUNT(*) AS n"))
	l.add("FROM deviations")
	l.add("GROUP BY " + gcol)
	l.add("ORDER BY value " + q.direction())
	l.add(q.limitClause())
	return l.String(), TemplateOvershoot, nil
}

// dwell is the elapsed time of each (trace, step) run, averaged per group.
func (q *query) dwell() (string, Template, error) {
	c := q.c
	gcol := q.stabilityGroup(intent.GroupStep)
	runKey := strings.Join(uniq(c.trace, c.step, gcol), ", ")

	var l sqlLines
	l.add("WITH step_times AS (")
	l.add(indent + "SELECT " + runKey + ", " + c.dialect.Seconds("MIN("+c.ts+")", "MAX("+c.ts+")") + " AS dwell_seconds")
	l.add(indent + "FROM " + c.table)
	l.add(whereClause(q.conditions(skipFilter{}), indent))
	l.add(indent + "GROUP BY " + runKey)
	l.add(")")
	l.add("SELECT " + selectList(gcol, "AVG(dwell_seconds) AS value", "MAX(dwell_seconds) AS max_dwell", "COUNT(*) AS n"))
	l.add("FROM step_times")
	l.add("GROUP BY " + gcol)
	l.add("ORDER BY value " + q.direction())
	l.add(q.limitClause())
	return l.String(), TemplateDwellTime, nil
}

// outlier reports, per entity, the percentage of samples whose z-score
// against the filtered population exceeds the threshold.
func (q *query) outlier() (string, Template, error) {
	if err := q.requireColumn(TemplateOutlier); err != nil {
		return "", "", err
	}
	c := q.c
	std, ok := c.dialect.Stddev(q.col)
	if !ok {
		return "", "", &UnsupportedError{Dialect: c.dialect.Name(), Feature: "outlier ratio"}
	}
	gcol := q.stabilityGroup(intent.GroupTrace)
	notNull := q.col + " IS NOT NULL"
	exceeds := fmt.Sprintf("SUM(CASE WHEN z_score > %s THEN 1 ELSE 0 END)", formatFloat(c.opts.OutlierThreshold))

	var l sqlLines
	l.add("WITH population AS (")
	l.add(indent + "SELECT AVG(" + q.col + ") AS mean_val, " + std + " AS std_val")
	l.add(indent + "FROM " + c.table)
	l.add(whereClause(q.conditions(skipFilter{}, notNull), indent))
	l.add("),")
	l.add("scored AS (")
	l.add(indent + "SELECT " + gcol + ",")
	l.add(indent + indent + "CASE WHEN pop.std_val > 0 THEN ABS(" + q.col + " - pop.mean_val) / pop.std_val ELSE 0 END AS z_score")
	l.add(indent + "FROM " + c.table)
	l.add(indent + "CROSS JOIN population pop")
	l.add(whereClause(q.conditions(skipFilter{}, notNull), indent))
	l.add(")")
	l.add("SELECT " + gcol + ",")
	l.add(indent + exceeds + " * 100.0 / COUNT(*) AS value,")
	l.add(indent + exceeds + " AS outlier_count,")
	l.add(indent + "COUNT(*) AS n")
	l.add("FROM scored")
	l.add("GROUP BY " + gcol)
	l.add("HAVING " + exceeds + " > 0")
	l.add("ORDER BY value " + q.direction())
	l.add(q.limitClause())
	return l.String(), TemplateOutlier, nil
}
