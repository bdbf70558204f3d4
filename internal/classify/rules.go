package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternError reports a non-text pattern that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("compile non-text pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// RuleSet is the immutable filter configuration for one extraction run.
// Field names are stored lower-cased and looked up case-insensitively.
type RuleSet struct {
	allowed  map[string]struct{}
	ignored  map[string]struct{}
	repeated map[string]struct{}
	patterns []*regexp.Regexp
}

// DefaultRepeatedFields are the tags treated as list items when none are configured.
var DefaultRepeatedFields = []string{"li"}

// NewRuleSet builds a RuleSet. Patterns are anchored at the start of the text,
// the same way a plain prefix match would behave. An invalid pattern is a hard error.
func NewRuleSet(allowed, ignored, patterns, repeated []string) (*RuleSet, error) {
	rs := &RuleSet{
		allowed:  lowerSet(allowed),
		ignored:  lowerSet(ignored),
		repeated: lowerSet(repeated),
	}
	if len(rs.repeated) == 0 {
		rs.repeated = lowerSet(DefaultRepeatedFields)
	}

	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(`^(?:` + p + `)`)
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		rs.patterns = append(rs.patterns, re)
	}
	return rs, nil
}

// MustRuleSet is NewRuleSet for static rule tables; it panics on a bad pattern.
func MustRuleSet(allowed, ignored, patterns, repeated []string) *RuleSet {
	rs, err := NewRuleSet(allowed, ignored, patterns, repeated)
	if err != nil {
		panic(err)
	}
	return rs
}

// Allowed reports whether field is in the allow-list.
func (rs *RuleSet) Allowed(field string) bool {
	_, ok := rs.allowed[strings.ToLower(field)]
	return ok
}

// Ignored reports whether field is in the ignore-list.
func (rs *RuleSet) Ignored(field string) bool {
	_, ok := rs.ignored[strings.ToLower(field)]
	return ok
}

// Repeated reports whether tag marks a repeated sibling (list item).
func (rs *RuleSet) Repeated(tag string) bool {
	_, ok := rs.repeated[strings.ToLower(tag)]
	return ok
}

// MatchesNonText reports whether text matches any configured non-text pattern.
func (rs *RuleSet) MatchesNonText(text string) bool {
	for _, re := range rs.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// PatternCount returns the number of compiled non-text patterns.
func (rs *RuleSet) PatternCount() int {
	return len(rs.patterns)
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}
