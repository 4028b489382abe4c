// Package intent turns a normalized question into a ParsedIntent: the
// metric, field, grouping, filters and analysis category the SQL compiler
// needs.
package intent

import "fmt"

// Metric is a canonical aggregation key.
type Metric string

const (
	MetricAvg       Metric = "avg"
	MetricMin       Metric = "min"
	MetricMax       Metric = "max"
	MetricCount     Metric = "count"
	MetricStd       Metric = "std"
	MetricP50       Metric = "p50"
	MetricP95       Metric = "p95"
	MetricP99       Metric = "p99"
	MetricNullRatio Metric = "null_ratio"
)

// GroupKey is a canonical grouping dimension. Empty means no grouping.
type GroupKey string

const (
	GroupNone  GroupKey = ""
	GroupTrace GroupKey = "trace"
	GroupStep  GroupKey = "step"
	GroupDate  GroupKey = "date"
	GroupHour  GroupKey = "hour"
)

// IsTime reports whether the grouping buckets timestamps.
func (g GroupKey) IsTime() bool { return g == GroupDate || g == GroupHour }

// IsEntity reports whether the grouping is by trace or step.
func (g GroupKey) IsEntity() bool { return g == GroupTrace || g == GroupStep }

// Category selects the SQL template family.
type Category string

const (
	CategoryRanking      Category = "ranking"
	CategoryGroupProfile Category = "group_profile"
	CategoryComparison   Category = "comparison"
	CategoryStability    Category = "stability"
)

// Order is the ranking direction.
type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

// Filters narrow the rows a query reads. Single and multi forms are
// mutually exclusive per entity kind.
type Filters struct {
	TraceID   string   `json:"trace_id,omitempty" yaml:"trace_id,omitempty"`
	TraceIDs  []string `json:"trace_ids,omitempty" yaml:"trace_ids,omitempty"`
	StepName  string   `json:"step_name,omitempty" yaml:"step_name,omitempty"`
	StepNames []string `json:"step_names,omitempty" yaml:"step_names,omitempty"`
	DateStart string   `json:"date_start,omitempty" yaml:"date_start,omitempty"`
	DateEnd   string   `json:"date_end,omitempty" yaml:"date_end,omitempty"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.TraceID == "" && len(f.TraceIDs) == 0 && f.StepName == "" &&
		len(f.StepNames) == 0 && f.DateStart == "" && f.DateEnd == ""
}

// Flags are the special-analysis switches.
type Flags struct {
	IsTraceCompare bool `json:"is_trace_compare,omitempty" yaml:"is_trace_compare,omitempty"`
	IsOutlier      bool `json:"is_outlier,omitempty" yaml:"is_outlier,omitempty"`
	IsOvershoot    bool `json:"is_overshoot,omitempty" yaml:"is_overshoot,omitempty"`
	IsDwellTime    bool `json:"is_dwell_time,omitempty" yaml:"is_dwell_time,omitempty"`
	IsStableAvg    bool `json:"is_stable_avg,omitempty" yaml:"is_stable_avg,omitempty"`
}

// IsStability reports whether any stability flag is set.
func (f Flags) IsStability() bool {
	return f.IsOutlier || f.IsOvershoot || f.IsDwellTime || f.IsStableAvg
}

// ParsedIntent is the IR handed to the compiler. Field is empty only when
// Metric is count or the schema has no fields.
type ParsedIntent struct {
	Metric   Metric   `json:"metric" yaml:"metric"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
	GroupBy  GroupKey `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	Filters  Filters  `json:"filters" yaml:"filters"`
	Limit    *uint    `json:"top_n,omitempty" yaml:"top_n,omitempty"`
	Order    Order    `json:"order" yaml:"order"`
	Category Category `json:"analysis_type" yaml:"analysis_type"`
	Flags    Flags    `json:"flags" yaml:"flags"`
}

// HasLimit reports whether a ranking limit was parsed.
func (p ParsedIntent) HasLimit() bool { return p.Limit != nil }

// LimitValue is the limit or zero.
func (p ParsedIntent) LimitValue() uint {
	if p.Limit == nil {
		return 0
	}
	return *p.Limit
}

// TraceList returns the trace filter as a list.
func (p ParsedIntent) TraceList() []string {
	if len(p.Filters.TraceIDs) > 0 {
		return p.Filters.TraceIDs
	}
	if p.Filters.TraceID != "" {
		return []string{p.Filters.TraceID}
	}
	return nil
}

// StepList returns the step filter as a list.
func (p ParsedIntent) StepList() []string {
	if len(p.Filters.StepNames) > 0 {
		return p.Filters.StepNames
	}
	if p.Filters.StepName != "" {
		return []string{p.Filters.StepName}
	}
	return nil
}

// UnresolvedFieldError means a field-based metric was asked for but the
// schema offers no field to fall back on.
type UnresolvedFieldError struct {
	Question string
	Metric   Metric
}

func (e *UnresolvedFieldError) Error() string {
	return fmt.Sprintf("no field could be resolved for metric %q in %q: schema has no fields", e.Metric, e.Question)
}
