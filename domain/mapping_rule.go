package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MappingRule declares that source blocks of SourceType may translate to
// target blocks of TargetType whose text mentions TargetContains.
// SourceContains, when set, is a regular expression the assignment target
// of the source block must match.
type MappingRule struct {
	SourceType     BlockType `yaml:"sourceType" json:"sourceType"`
	SourceContains string    `yaml:"sourceContains,omitempty" json:"sourceContains,omitempty"`
	TargetType     BlockType `yaml:"targetType" json:"targetType"`
	TargetContains string    `yaml:"targetContains" json:"targetContains"`

	sourcePattern *regexp.Regexp
	targetNeedle  string
}

// RuleSet is an immutable, ordered list of compiled mapping rules.
type RuleSet struct {
	rules []MappingRule
}

// NewRuleSet validates and compiles rules. Patterns are matched
// case-insensitively against lower-cased text.
func NewRuleSet(rules []MappingRule) (*RuleSet, error) {
	compiled := make([]MappingRule, 0, len(rules))
	for i, r := range rules {
		if r.SourceType == "" || r.TargetType == "" {
			return nil, fmt.Errorf("rule %d: sourceType and targetType are required", i)
		}
		if strings.TrimSpace(r.TargetContains) == "" {
			return nil, fmt.Errorf("rule %d: targetContains is required", i)
		}
		if strings.TrimSpace(r.SourceContains) != "" {
			re, err := regexp.Compile(strings.ToLower(r.SourceContains))
			if err != nil {
				return nil, fmt.Errorf("rule %d: invalid sourceContains %q: %w", i, r.SourceContains, err)
			}
			r.sourcePattern = re
		}
		r.targetNeedle = strings.ToLower(r.TargetContains)
		compiled = append(compiled, r)
	}
	return &RuleSet{rules: compiled}, nil
}

// Rules returns a copy of the rule list.
func (s *RuleSet) Rules() []MappingRule {
	out := make([]MappingRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// matchKind describes how a target block satisfied a rule.
type matchKind int

const (
	noMatch matchKind = iota
	substringMatch
	callMatch
)

// equivalent reports the strongest way any rule relates source to target.
func (s *RuleSet) equivalent(source, target Block) matchKind {
	best := noMatch
	for _, r := range s.rules {
		if r.SourceType != source.Type || r.TargetType != target.Type {
			continue
		}
		if r.sourcePattern != nil && !r.sourcePattern.MatchString(assignmentTarget(source.Text)) {
			continue
		}
		if m := r.matchTarget(target.Text); m > best {
			best = m
			if best == callMatch {
				return best
			}
		}
	}
	return best
}

func (r MappingRule) matchTarget(text string) matchKind {
	lower := strings.ToLower(text)
	if strings.Contains(lower, r.targetNeedle+"(") {
		return callMatch
	}
	if strings.Contains(lower, r.targetNeedle) {
		return substringMatch
	}
	return noMatch
}

// assignmentTarget returns the lower-cased left-hand side of a PL/SQL
// assignment, or the whole text when there is no ":=".
func assignmentTarget(text string) string {
	lhs, _, _ := strings.Cut(text, ":=")
	return strings.ToLower(strings.TrimSpace(lhs))
}
