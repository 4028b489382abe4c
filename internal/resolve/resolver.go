package resolve

import "strings"

// Stage names the decision step that produced a resolution.
type Stage string

const (
	StageContextOverride Stage = "context_override"
	StageFlowChannel     Stage = "flow_channel"
	StageGenericDefault  Stage = "generic_default"
	StageUnchanged       Stage = "unchanged"
)

// Decision explains a resolution.
type Decision struct {
	Field      string `json:"field"`
	Stage      Stage  `json:"stage"`
	Trigger    string `json:"trigger,omitempty"`
	Suppressed string `json:"suppressed,omitempty"`
}

// Resolver applies a RuleSet. It never fails and holds no mutable state.
type Resolver struct {
	rules *RuleSet
}

func New(rules *RuleSet) *Resolver {
	if rules == nil {
		rules = Empty()
	}
	return &Resolver{rules: rules}
}

func (r *Resolver) Rules() *RuleSet { return r.rules }

// Resolve returns the field to use for a question with the given tokens
// when current is the tentative choice. Empty current means none.
func (r *Resolver) Resolve(tokens []string, current string) string {
	return r.Explain(tokens, current).Field
}

// Explain is Resolve plus the reason. First match wins: context overrides,
// then flow-channel rules, then the bare-generic-noun default.
func (r *Resolver) Explain(tokens []string, current string) Decision {
	lowered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}

	for _, rule := range r.rules.ContextOverrides {
		if trigger, ok := firstTrigger(lowered, rule.TriggerTokens); ok {
			d := Decision{Field: rule.PreferredField, Stage: StageContextOverride, Trigger: trigger}
			if rule.SuppressGeneric && current != "" && current == r.rules.GenericField && current != rule.PreferredField {
				d.Suppressed = current
			}
			return d
		}
	}

	for _, rule := range r.rules.FlowChannelRules {
		if trigger, ok := firstTrigger(lowered, rule.TriggerTokens); ok {
			return Decision{Field: rule.PreferredField, Stage: StageFlowChannel, Trigger: trigger}
		}
	}

	if r.rules.DefaultFieldWhenAmbiguous != "" && current != "" && current == r.rules.GenericField && r.onlyGeneric(lowered) {
		return Decision{Field: r.rules.DefaultFieldWhenAmbiguous, Stage: StageGenericDefault}
	}

	return Decision{Field: current, Stage: StageUnchanged}
}

// onlyGeneric reports whether every token is the generic noun or the
// generic field key itself.
func (r *Resolver) onlyGeneric(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if t == r.rules.GenericField {
			continue
		}
		if !contains(r.rules.GenericTokens, t) {
			return false
		}
	}
	return true
}

func firstTrigger(tokens, triggers []string) (string, bool) {
	for _, trigger := range triggers {
		if hasPhrase(tokens, strings.Fields(trigger)) {
			return trigger, true
		}
	}
	return "", false
}

func hasPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, word := range phrase {
			if tokens[i+j] != word {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
