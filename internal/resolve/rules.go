// Package resolve settles which sensor channel a question means when a
// generic noun ("pressure") competes with a specific channel ("VG11").
package resolve

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

// ErrNoRulesPath is returned by Load when it is called without a path.
var ErrNoRulesPath = errors.New("rules path is empty")

//go:embed builtin/rules.yaml
var builtinDocument []byte

var (
	builtinOnce  sync.Once
	builtinRules *RuleSet
)

// Rule prefers a field when any of its triggers appears in the question.
// A trigger with spaces must match consecutive tokens.
type Rule struct {
	TriggerTokens   []string `yaml:"if_any_tokens" json:"if_any_tokens"`
	PreferredField  string   `yaml:"prefer_column" json:"prefer_column"`
	SuppressGeneric bool     `yaml:"suppress_generic" json:"suppress_generic,omitempty"`
}

// RuleSet is immutable after load.
type RuleSet struct {
	ContextOverrides          []Rule   `json:"context_overrides"`
	FlowChannelRules          []Rule   `json:"flow_channel_rules"`
	GenericField              string   `json:"generic_field"`
	GenericTokens             []string `json:"generic_tokens"`
	DefaultFieldWhenAmbiguous string   `json:"default_field_when_ambiguous"`
}

type document struct {
	Resolution struct {
		GenericField  string   `yaml:"generic_field"`
		GenericTokens []string `yaml:"generic_tokens"`
		Defaults      struct {
			GenericField string `yaml:"generic_field"`
			// accepted for documents written against the older key
			GenericPressureColumn string `yaml:"generic_pressure_column"`
		} `yaml:"defaults"`
		ContextOverrides []Rule `yaml:"context_overrides"`
		FlowChannelRules []Rule `yaml:"flow_channel_rules"`
	} `yaml:"resolution"`
}

// Empty is the no-op rule set: Resolve returns its input unchanged.
func Empty() *RuleSet { return &RuleSet{} }

// Parse decodes a rules document.
func Parse(data []byte) (*RuleSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	r := doc.Resolution
	set := &RuleSet{
		ContextOverrides: cleanRules(r.ContextOverrides),
		FlowChannelRules: cleanRules(r.FlowChannelRules),
		GenericField:     strings.ToLower(strings.TrimSpace(r.GenericField)),
		GenericTokens:    lowerAll(r.GenericTokens),
	}
	set.DefaultFieldWhenAmbiguous = strings.ToLower(strings.TrimSpace(r.Defaults.GenericField))
	if set.DefaultFieldWhenAmbiguous == "" {
		set.DefaultFieldWhenAmbiguous = strings.ToLower(strings.TrimSpace(r.Defaults.GenericPressureColumn))
	}
	return set, nil
}

// Load reads the rules document at path.
func Load(path string) (*RuleSet, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoRulesPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return set, nil
}

// LoadOrEmpty selects the built-in rules for an empty path and degrades to
// the no-op set on any load error.
func LoadOrEmpty(path string, logger *slog.Logger) *RuleSet {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(path) == "" {
		return Builtin()
	}
	set, err := Load(path)
	if err != nil {
		logger.Warn("resolution rules unavailable, ambiguity resolution disabled", "path", path, "error", err)
		return Empty()
	}
	return set
}

// Builtin returns the embedded rules. The result is shared.
func Builtin() *RuleSet {
	builtinOnce.Do(func() {
		set, err := Parse(builtinDocument)
		if err != nil {
			slog.Default().Error("embedded resolution rules are invalid", "error", err)
			set = Empty()
		}
		builtinRules = set
	})
	return builtinRules
}

func cleanRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.PreferredField = strings.ToLower(strings.TrimSpace(r.PreferredField))
		r.TriggerTokens = lowerAll(r.TriggerTokens)
		if r.PreferredField == "" || len(r.TriggerTokens) == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.ToLower(strings.TrimSpace(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
