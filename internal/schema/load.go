package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNoSchemaPath is returned by Load when it is called without a path.
var ErrNoSchemaPath = errors.New("schema path is empty")

//go:embed builtin/schema.yaml
var builtinDocument []byte

var (
	builtinOnce sync.Once
	builtinDef  *Definition
)

// supportedMetrics is the closed metric vocabulary the compiler can render.
var supportedMetrics = map[string]struct{}{
	"avg": {}, "min": {}, "max": {}, "count": {}, "std": {},
	"p50": {}, "p95": {}, "p99": {}, "null_ratio": {},
}

var defaultGroupKinds = map[string]GroupKind{
	"trace": GroupKindEntity,
	"step":  GroupKindEntity,
	"date":  GroupKindTime,
	"hour":  GroupKindTime,
}

type document struct {
	Version  int                 `yaml:"version"`
	Dataset  string              `yaml:"dataset"`
	Meta     Meta                `yaml:"meta"`
	Columns  yaml.Node           `yaml:"columns"`
	Metrics  yaml.Node           `yaml:"metrics"`
	Groups   yaml.Node           `yaml:"groups"`
	Keywords map[string][]string `yaml:"keywords"`
}

type columnDoc struct {
	DomainName   string   `yaml:"domain_name"`
	PhysicalType string   `yaml:"physical_type"`
	Unit         string   `yaml:"unit"`
	CSVColumns   []string `yaml:"csv_columns"`
	StorageNames []string `yaml:"storage_names"`
	Aliases      []string `yaml:"aliases"`
	Family       string   `yaml:"family"`
	Setpoint     string   `yaml:"setpoint"`
}

type metricDoc struct {
	Label   string   `yaml:"label"`
	Aliases []string `yaml:"aliases"`
}

type groupDoc struct {
	Label   string   `yaml:"label"`
	Kind    string   `yaml:"kind"`
	Column  string   `yaml:"column"`
	Aliases []string `yaml:"aliases"`
}

// Load reads and parses the schema document at path.
func Load(path string, logger *slog.Logger) (*Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoSchemaPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	def, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return def, nil
}

// LoadOrEmpty never fails: an empty path selects the built-in document and
// any load error degrades to an empty definition after a warning.
func LoadOrEmpty(path string, logger *slog.Logger) *Definition {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(path) == "" {
		return Builtin()
	}
	def, err := Load(path, logger)
	if err != nil {
		logger.Warn("schema unavailable, continuing with empty vocabulary", "path", path, "error", err)
		return Empty()
	}
	return def
}

// Builtin returns the embedded ALD trace schema. The result is shared and
// must not be mutated.
func Builtin() *Definition {
	builtinOnce.Do(func() {
		def, err := Parse(builtinDocument, slog.Default())
		if err != nil {
			slog.Default().Error("embedded schema is invalid", "error", err)
			def = Empty()
		}
		builtinDef = def
	})
	return builtinDef
}

// Parse decodes a schema document. Structural YAML errors are returned;
// individual invalid entries are skipped with a warning.
func Parse(data []byte, logger *slog.Logger) (*Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	def := Empty()
	def.Version = doc.Version
	if def.Version == 0 {
		def.Version = 1
	}
	def.Dataset = doc.Dataset
	def.Meta = normalizeMeta(doc.Meta)

	err := eachEntry(&doc.Columns, func(key string, node *yaml.Node) error {
		var c columnDoc
		if err := node.Decode(&c); err != nil {
			logger.Warn("skipping column", "key", key, "error", err)
			return nil
		}
		if _, dup := def.Fields[key]; dup {
			logger.Warn("skipping duplicate column", "key", key)
			return nil
		}
		def.Fields[key] = buildField(key, c)
		def.Order = append(def.Order, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	err = eachEntry(&doc.Metrics, func(key string, node *yaml.Node) error {
		if _, ok := supportedMetrics[key]; !ok {
			logger.Warn("skipping unsupported metric", "key", key)
			return nil
		}
		var m metricDoc
		if err := node.Decode(&m); err != nil {
			logger.Warn("skipping metric", "key", key, "error", err)
			return nil
		}
		if _, dup := def.Metrics[key]; dup {
			return nil
		}
		label := strings.TrimSpace(m.Label)
		if label == "" {
			label = key
		}
		def.Metrics[key] = Label{Key: key, Label: label, Aliases: cleanList(m.Aliases)}
		def.MetricOrder = append(def.MetricOrder, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	err = eachEntry(&doc.Groups, func(key string, node *yaml.Node) error {
		kind, ok := defaultGroupKinds[key]
		if !ok {
			logger.Warn("skipping unsupported group", "key", key)
			return nil
		}
		var g groupDoc
		if err := node.Decode(&g); err != nil {
			logger.Warn("skipping group", "key", key, "error", err)
			return nil
		}
		if _, dup := def.Groups[key]; dup {
			return nil
		}
		def.Groups[key] = buildGroup(key, kind, g, def.Meta)
		def.GroupOrder = append(def.GroupOrder, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}

	if _, ok := def.Fields[def.Meta.PrimaryField]; !ok {
		def.Meta.PrimaryField = ""
		if len(def.Order) > 0 {
			def.Meta.PrimaryField = def.Order[0]
		}
	}

	if len(def.Meta.AllowedColumns) == 0 {
		for _, key := range def.Order {
			def.Meta.AllowedColumns = append(def.Meta.AllowedColumns, def.Fields[key].StorageNames...)
		}
	}

	for bucket, words := range doc.Keywords {
		bucket = strings.ToLower(strings.TrimSpace(bucket))
		if bucket == "" {
			continue
		}
		def.Keywords[bucket] = cleanList(words)
	}

	return def, nil
}

// eachEntry walks a YAML mapping in document order. A missing section is
// not an error.
func eachEntry(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping at line %d", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(node.Content[i].Value))
		if key == "" {
			continue
		}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func normalizeMeta(m Meta) Meta {
	m.PrimaryField = strings.ToLower(strings.TrimSpace(m.PrimaryField))
	m.DefaultMetric = strings.ToLower(strings.TrimSpace(m.DefaultMetric))
	if _, ok := supportedMetrics[m.DefaultMetric]; !ok {
		m.DefaultMetric = "avg"
	}
	m.Table = orDefault(m.Table, "traces_dedup")
	m.TimestampColumn = orDefault(m.TimestampColumn, "timestamp")
	m.TraceColumn = orDefault(m.TraceColumn, "trace_id")
	m.StepColumn = orDefault(m.StepColumn, "step_name")
	m.UmbrellaTerms = cleanList(m.UmbrellaTerms)
	allowed := make([]string, 0, len(m.AllowedColumns))
	for _, c := range cleanList(m.AllowedColumns) {
		allowed = append(allowed, strings.ToLower(c))
	}
	m.AllowedColumns = allowed
	return m
}

func buildField(key string, c columnDoc) FieldMeta {
	names := c.StorageNames
	if len(names) == 0 {
		names = c.CSVColumns
	}
	storage := make([]string, 0, len(names))
	for _, n := range cleanList(names) {
		storage = append(storage, strings.ToLower(n))
	}
	if len(storage) == 0 {
		storage = []string{key}
	}
	return FieldMeta{
		Key:          key,
		DomainName:   orDefault(c.DomainName, key),
		PhysicalType: orDefault(c.PhysicalType, "unknown"),
		Unit:         strings.TrimSpace(c.Unit),
		StorageNames: storage,
		Aliases:      cleanList(c.Aliases),
		Family:       strings.ToLower(strings.TrimSpace(c.Family)),
		Setpoint:     strings.ToLower(strings.TrimSpace(c.Setpoint)),
	}
}

func buildGroup(key string, kind GroupKind, g groupDoc, meta Meta) GroupMeta {
	if k := GroupKind(strings.ToLower(strings.TrimSpace(g.Kind))); k == GroupKindEntity || k == GroupKindTime {
		kind = k
	}
	column := strings.ToLower(strings.TrimSpace(g.Column))
	if column == "" && kind == GroupKindEntity {
		switch key {
		case "trace":
			column = meta.TraceColumn
		case "step":
			column = meta.StepColumn
		}
	}
	return GroupMeta{
		Key:     key,
		Label:   orDefault(g.Label, key),
		Kind:    kind,
		Column:  column,
		Aliases: cleanList(g.Aliases),
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
