// match.go decides whether a route or an error is excluded from reporting.

package faultline

import (
	"regexp"
	"strings"

	"github.com/ryanuber/go-glob"
)

// RuleKind selects how a Rule is evaluated.
type RuleKind int

const (
	// RuleString matches a route by equality or prefix, and an error by class name
	// equality or message substring.
	RuleString RuleKind = iota

	// RuleExact matches a route by equality and an error by class name equality.
	RuleExact

	// RulePrefix matches when the route, or the error's "Class: message" form, starts with Value.
	RulePrefix

	// RulePattern matches when Pattern finds a match in the route or "Class: message".
	RulePattern

	// RuleGlob matches a '*' glob against the route or "Class: message".
	RuleGlob
)

// Rule is one ignore predicate. Rules in a list are OR-combined.
type Rule struct {
	Kind    RuleKind
	Value   string
	Pattern *regexp.Regexp
}

// StringRule matches an exception by name or message substring, and a route by prefix.
func StringRule(v string) Rule { return Rule{Kind: RuleString, Value: v} }

// ExactRule matches an exception name or a route path exactly.
func ExactRule(v string) Rule { return Rule{Kind: RuleExact, Value: v} }

// PrefixRule matches a route path, or "Name: message", by prefix.
func PrefixRule(v string) Rule { return Rule{Kind: RulePrefix, Value: v} }

// GlobRule matches a route path, or "Name: message", against a '*' glob.
func GlobRule(v string) Rule { return Rule{Kind: RuleGlob, Value: v} }

// PatternRule matches a route path, or "Name: message", against re.
// A nil re is rejected by Init.
func PatternRule(re *regexp.Regexp) Rule {
	r := Rule{Kind: RulePattern, Pattern: re}
	if re != nil {
		r.Value = re.String()
	}
	return r
}

// MustPatternRule compiles expr and panics if it is invalid.
func MustPatternRule(expr string) Rule {
	return PatternRule(regexp.MustCompile(expr))
}

// StringRules converts plain strings into RuleString rules.
func StringRules(values ...string) []Rule {
	rules := make([]Rule, len(values))
	for i, v := range values {
		rules[i] = StringRule(v)
	}
	return rules
}

// String renders the rule as "kind:value"; string rules render as the bare value.
func (r Rule) String() string {
	switch r.Kind {
	case RuleExact:
		return "exact:" + r.Value
	case RulePrefix:
		return "prefix:" + r.Value
	case RulePattern:
		return "pattern:" + r.Value
	case RuleGlob:
		return "glob:" + r.Value
	default:
		return r.Value
	}
}

func (r Rule) matchRoute(path string) bool {
	switch r.Kind {
	case RuleString:
		return path == r.Value || strings.HasPrefix(path, r.Value)
	case RuleExact:
		return path == r.Value
	case RulePrefix:
		return strings.HasPrefix(path, r.Value)
	case RulePattern:
		return r.Pattern != nil && r.Pattern.MatchString(path)
	case RuleGlob:
		return glob.Glob(r.Value, path)
	}
	return false
}

func (r Rule) matchException(name, message string) bool {
	composite := name + ": " + message
	switch r.Kind {
	case RuleString:
		return name == r.Value || strings.Contains(message, r.Value)
	case RuleExact:
		return name == r.Value
	case RulePrefix:
		return strings.HasPrefix(composite, r.Value)
	case RulePattern:
		return r.Pattern != nil && r.Pattern.MatchString(composite)
	case RuleGlob:
		return glob.Glob(r.Value, composite)
	}
	return false
}

// Matcher evaluates the ignore rules of the live configuration.
type Matcher struct {
	store *Store
}

// NewMatcher creates a matcher reading rules from store.
func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// ShouldIgnoreRoute reports whether path matches any ignored-route rule.
// Note that RuleString is a prefix match: "/health" also ignores "/healthcheck".
func (m *Matcher) ShouldIgnoreRoute(path string) (bool, error) {
	cfg, err := m.store.Config()
	if err != nil {
		return false, err
	}
	for _, rule := range cfg.IgnoredRoutes {
		if rule.matchRoute(path) {
			return true, nil
		}
	}
	return false, nil
}

// ShouldIgnoreException reports whether err matches any ignored-exception rule.
func (m *Matcher) ShouldIgnoreException(err error) (bool, error) {
	cfg, cfgErr := m.store.Config()
	if cfgErr != nil {
		return false, cfgErr
	}
	if err == nil || len(cfg.IgnoredExceptions) == 0 {
		return false, nil
	}
	name, message := ExceptionName(err), err.Error()
	for _, rule := range cfg.IgnoredExceptions {
		if rule.matchException(name, message) {
			return true, nil
		}
	}
	return false, nil
}
