// Package schema loads the dataset vocabulary (fields, metrics, groups) and
// exposes it read-only to the rest of the pipeline.
package schema

// Category tags what an alias resolves to.
type Category string

const (
	CategoryField  Category = "field"
	CategoryMetric Category = "metric"
	CategoryGroup  Category = "group"
)

// GroupKind separates entity groupings (trace, step) from time buckets.
type GroupKind string

const (
	GroupKindEntity GroupKind = "entity"
	GroupKindTime   GroupKind = "time"
)

// FieldMeta describes one measurable channel of the dataset.
type FieldMeta struct {
	Key          string   `json:"key" yaml:"key"`
	DomainName   string   `json:"domain_name" yaml:"domain_name"`
	PhysicalType string   `json:"physical_type" yaml:"physical_type"`
	Unit         string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	StorageNames []string `json:"storage_names" yaml:"storage_names"`
	Aliases      []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	// Family groups sibling channels (pressure, flow, temperature, ...).
	Family string `json:"family,omitempty" yaml:"family,omitempty"`
	// Setpoint names the field holding this channel's target value.
	Setpoint string `json:"setpoint,omitempty" yaml:"setpoint,omitempty"`
}

// Label is the display metadata of a metric.
type Label struct {
	Key     string   `json:"key" yaml:"key"`
	Label   string   `json:"label" yaml:"label"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// GroupMeta describes a grouping dimension.
type GroupMeta struct {
	Key     string    `json:"key" yaml:"key"`
	Label   string    `json:"label" yaml:"label"`
	Kind    GroupKind `json:"kind" yaml:"kind"`
	Column  string    `json:"column,omitempty" yaml:"column,omitempty"`
	Aliases []string  `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Meta holds dataset-wide settings.
type Meta struct {
	PrimaryField    string   `json:"primary_field" yaml:"primary_field"`
	DefaultMetric   string   `json:"default_metric" yaml:"default_metric"`
	UmbrellaTerms   []string `json:"umbrella_terms,omitempty" yaml:"umbrella_terms,omitempty"`
	Table           string   `json:"table" yaml:"table"`
	TimestampColumn string   `json:"timestamp_column" yaml:"timestamp_column"`
	TraceColumn     string   `json:"trace_column" yaml:"trace_column"`
	StepColumn      string   `json:"step_column" yaml:"step_column"`
	AllowedColumns  []string `json:"allowed_columns,omitempty" yaml:"allowed_columns,omitempty"`
}

// Definition is the immutable result of loading a schema document.
type Definition struct {
	Version     int                  `json:"version"`
	Dataset     string               `json:"dataset,omitempty"`
	Meta        Meta                 `json:"meta"`
	Fields      map[string]FieldMeta `json:"fields"`
	Order       []string             `json:"order"`
	Metrics     map[string]Label     `json:"metrics"`
	MetricOrder []string             `json:"metric_order"`
	Groups      map[string]GroupMeta `json:"groups"`
	GroupOrder  []string             `json:"group_order"`
	// Keywords overrides intent lexicon buckets (compare, outlier, ...).
	Keywords map[string][]string `json:"keywords,omitempty"`
}

// Empty returns a definition with no vocabulary. Every lookup against it
// misses, which is what callers get when the schema document is unusable.
func Empty() *Definition {
	return &Definition{
		Version:  1,
		Meta:     normalizeMeta(Meta{}),
		Fields:   map[string]FieldMeta{},
		Metrics:  map[string]Label{},
		Groups:   map[string]GroupMeta{},
		Keywords: map[string][]string{},
	}
}

// IsEmpty reports whether the definition carries no fields.
func (d *Definition) IsEmpty() bool {
	return d == nil || len(d.Fields) == 0
}
