package model

import (
	"regexp"
	"strings"
)

// variablePattern finds {{ name }} placeholders in a matcher clause.
var variablePattern = regexp.MustCompile(`\{\{\s*([^\s{}]+)\s*\}\}`)

// Matcher is a reusable clause template. The clause is a raw JSON fragment
// containing {{ field }}, {{ value }}, and arbitrary named placeholders.
type Matcher struct {
	name      string
	clause    string
	params    map[string]string
	variables map[string]*regexp.Regexp
}

// NewMatcher creates a matcher from a clause template and parameter defaults.
// One placeholder regex per variable name is compiled once here; each matches
// every occurrence of its placeholder, whatever the spacing.
func NewMatcher(name, clause string, params map[string]string) (*Matcher, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("'matchers' has a matcher with an empty name")
	}
	if strings.Contains(name, ".") {
		return nil, NewValidationError("'matchers.%s' must not have periods in its name", name)
	}
	if strings.TrimSpace(clause) == "" {
		return nil, NewValidationError("'matchers.%s.clause' must not be empty", name)
	}
	m := &Matcher{
		name:      name,
		clause:    clause,
		params:    map[string]string{},
		variables: map[string]*regexp.Regexp{},
	}
	for k, v := range params {
		m.params[k] = v
	}
	for _, sub := range variablePattern.FindAllStringSubmatch(clause, -1) {
		variable := sub[1]
		if _, ok := m.variables[variable]; ok {
			continue
		}
		m.variables[variable] = regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(variable) + `\s*\}\}`)
	}
	return m, nil
}

// Name returns the matcher name.
func (m *Matcher) Name() string { return m.name }

// Clause returns the raw clause template.
func (m *Matcher) Clause() string { return m.clause }

// Params returns the matcher's default parameter values.
func (m *Matcher) Params() map[string]string { return m.params }

// Variables returns the compiled placeholder pattern per variable name.
func (m *Matcher) Variables() map[string]*regexp.Regexp { return m.variables }
