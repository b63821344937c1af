package privacy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Registry is an ordered set of uniquely named rules. It is built once and
// then only read, so a single registry can serve concurrent redactions.
// The zero value is an empty registry ready to use.
type Registry struct {
	rules []PatternRule
	index map[string]int
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// AddRule appends a rule after the ones already registered
func (r *Registry) AddRule(rule PatternRule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return &ConfigError{Err: errors.New("rule name is empty")}
	}
	if _, exists := r.index[rule.Name]; exists {
		return &DuplicateNameError{Name: rule.Name}
	}
	if rule.Pattern == nil {
		return &ConfigError{Rule: rule.Name, Err: errors.New("pattern is nil")}
	}

	switch rule.Style {
	case "":
		rule.Style = StyleTag
	case StyleTag, StylePreserve:
	default:
		return &ConfigError{Rule: rule.Name, Err: fmt.Errorf("unknown mask style %q", rule.Style)}
	}

	// Preserve rules fall back to the placeholder, so it is checked for
	// every style.
	rendered := RenderPlaceholder(rule.Placeholder, rule.Name, 1)
	if rule.Pattern.MatchString(rendered) {
		return &ConfigError{Rule: rule.Name, Err: fmt.Errorf("placeholder %q matches the rule's own pattern", rendered)}
	}

	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[rule.Name] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// CompileRule turns a declarative rule into a PatternRule
func CompileRule(def RuleDef) (PatternRule, error) {
	if strings.TrimSpace(def.Name) == "" {
		return PatternRule{}, &ConfigError{Err: errors.New("rule name is empty")}
	}

	if def.Pattern == "" {
		return PatternRule{}, &ConfigError{Rule: def.Name, Err: errors.New("pattern is empty")}
	}
	pattern, err := regexp.Compile(def.Pattern)
	if err != nil {
		return PatternRule{}, &ConfigError{Rule: def.Name, Err: err}
	}

	style := MaskStyle(strings.ToLower(def.Style))
	switch style {
	case "":
		style = StyleTag
	case StyleTag, StylePreserve:
	default:
		return PatternRule{}, &ConfigError{Rule: def.Name, Err: fmt.Errorf("unknown mask style %q", def.Style)}
	}

	return PatternRule{
		Name:        def.Name,
		Pattern:     pattern,
		Placeholder: def.Placeholder,
		Style:       style,
	}, nil
}

// Select builds a registry holding only the named rules, keeping this
// registry's order. The name "all" selects every rule.
func (r *Registry) Select(names []string) (*Registry, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "all" {
			for _, rule := range r.rules {
				wanted[rule.Name] = true
			}
			continue
		}
		if _, ok := r.index[name]; !ok {
			return nil, &ConfigError{Rule: name, Err: errors.New("unknown detector")}
		}
		wanted[name] = true
	}

	selected := NewRegistry()
	for _, rule := range r.rules {
		if !wanted[rule.Name] {
			continue
		}
		if err := selected.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return selected, nil
}

// Rules returns the rules in application order
func (r *Registry) Rules() []PatternRule {
	if r == nil {
		return nil
	}
	out := make([]PatternRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Names returns rule names in application order
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

// Rule looks up a rule by name
func (r *Registry) Rule(name string) (PatternRule, bool) {
	if r == nil {
		return PatternRule{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return PatternRule{}, false
	}
	return r.rules[i], true
}

// Len returns the number of registered rules
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}
