package schema

import "strings"

// Store answers vocabulary questions against a loaded Definition. It is
// read-only and safe for concurrent use.
type Store struct {
	def     *Definition
	allowed map[string]struct{}
}

// NewStore wraps def. A nil definition behaves like Empty().
func NewStore(def *Definition) *Store {
	if def == nil {
		def = Empty()
	}
	allowed := make(map[string]struct{}, len(def.Meta.AllowedColumns))
	for _, c := range def.Meta.AllowedColumns {
		allowed[strings.ToLower(c)] = struct{}{}
	}
	return &Store{def: def, allowed: allowed}
}

func (s *Store) Definition() *Definition { return s.def }

func (s *Store) Meta() Meta { return s.def.Meta }

func (s *Store) IsEmpty() bool { return s.def.IsEmpty() }

func (s *Store) IsValidField(key string) bool {
	_, ok := s.def.Fields[key]
	return ok
}

func (s *Store) IsValidMetric(key string) bool {
	_, ok := s.def.Metrics[key]
	return ok
}

func (s *Store) IsValidGroup(key string) bool {
	_, ok := s.def.Groups[key]
	return ok
}

// AllFields returns field keys in declaration order.
func (s *Store) AllFields() []string {
	out := make([]string, len(s.def.Order))
	copy(out, s.def.Order)
	return out
}

// AllMetrics returns metric keys in declaration order.
func (s *Store) AllMetrics() []string {
	out := make([]string, len(s.def.MetricOrder))
	copy(out, s.def.MetricOrder)
	return out
}

func (s *Store) FieldMeta(key string) (FieldMeta, bool) {
	f, ok := s.def.Fields[key]
	return f, ok
}

func (s *Store) MetricLabel(key string) (Label, bool) {
	m, ok := s.def.Metrics[key]
	return m, ok
}

func (s *Store) GroupMeta(key string) (GroupMeta, bool) {
	g, ok := s.def.Groups[key]
	return g, ok
}

// FieldPosition is the declaration index of key, or -1.
func (s *Store) FieldPosition(key string) int {
	for i, k := range s.def.Order {
		if k == key {
			return i
		}
	}
	return -1
}

// DefaultField is the primary field, empty when the schema has no fields.
func (s *Store) DefaultField() string { return s.def.Meta.PrimaryField }

func (s *Store) DefaultMetric() string {
	if m := s.def.Meta.DefaultMetric; m != "" {
		return m
	}
	return "avg"
}

// StorageColumn maps a field key to its first physical column name.
func (s *Store) StorageColumn(key string) (string, bool) {
	f, ok := s.def.Fields[key]
	if !ok || len(f.StorageNames) == 0 {
		return "", false
	}
	return f.StorageNames[0], true
}

// IsAllowedColumn checks the closed storage whitelist.
func (s *Store) IsAllowedColumn(column string) bool {
	_, ok := s.allowed[strings.ToLower(column)]
	return ok
}

// Keywords returns the configured override for a lexicon bucket, if any.
func (s *Store) Keywords(bucket string) ([]string, bool) {
	words, ok := s.def.Keywords[bucket]
	return words, ok && len(words) > 0
}
