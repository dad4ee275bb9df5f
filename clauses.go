package entigo

import (
	"regexp"
	"strings"

	"github.com/hupe1980/entigo/model"
)

// Clause combiners accepted by the clause builders.
const (
	combinerShould = "should"
	combinerFilter = "filter"
)

func validCombiner(combiner string) bool {
	return combiner == combinerShould || combiner == combinerFilter
}

// indexFieldHasMatcher reports whether a field of an index names a matcher
// that the model defines.
func indexFieldHasMatcher(m *model.Model, indexName, indexFieldName string) bool {
	matcherName := m.Indices()[indexName].Fields()[indexFieldName].Matcher()
	if matcherName == "" {
		return false
	}
	_, ok := m.Matchers()[matcherName]
	return ok
}

// placeholderPattern finds every {{ name }} placeholder of a clause template.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^\s{}]+)\s*\}\}`)

// populateMatcherClause substitutes the {{ field }} and {{ value }} variables
// and arbitrary parameters into a matcher's clause template. Parameter values
// come from the request attribute first, then the matcher's defaults; a
// placeholder with neither fails.
//
// All placeholders are replaced in a single pass over the template, so
// duplicated placeholders are all replaced. Replacements are literal: they are
// not rescanned for further placeholders.
func populateMatcherClause(matcher *model.Matcher, indexFieldName, value string, attribute *Attribute) (string, error) {
	replacements := make(map[string]string, len(matcher.Variables()))
	for variable := range matcher.Variables() {
		switch variable {
		case "field":
			replacements[variable] = indexFieldName
		case "value":
			replacements[variable] = value
		default:
			if v, ok := attribute.Params()[variable]; ok {
				replacements[variable] = v
			} else if v, ok := matcher.Params()[variable]; ok {
				replacements[variable] = v
			} else {
				return "", model.NewValidationError("'matchers.%s' was given no value for '{{ %s }}'", matcher.Name(), variable)
			}
		}
	}
	return placeholderPattern.ReplaceAllStringFunc(matcher.Clause(), func(placeholder string) string {
		return replacements[placeholderPattern.FindStringSubmatch(placeholder)[1]]
	}), nil
}

// makeIndexFieldClauses builds one clause per index field mapped to the
// attribute, combining multiple value clauses per field with the given
// combiner. Fields without a matcher and values without a serialized form
// contribute nothing.
func makeIndexFieldClauses(m *model.Model, indexName string, attributes map[string]*Attribute, attributeName, combiner string) ([]string, error) {
	if !validCombiner(combiner) {
		return nil, model.NewValidationError("'%s' is not a supported clause combiner", combiner)
	}
	attribute, ok := attributes[attributeName]
	if !ok {
		return nil, nil
	}
	var indexFieldClauses []string
	for _, indexFieldName := range m.Indices()[indexName].FieldsForAttribute(attributeName) {
		if !indexFieldHasMatcher(m, indexName, indexFieldName) {
			continue
		}

		matcherName := m.Indices()[indexName].Fields()[indexFieldName].Matcher()
		matcher := m.Matchers()[matcherName]

		var valueClauses []string
		for _, value := range attribute.Values() {
			if value.Serialized() == "" {
				continue
			}
			clause, err := populateMatcherClause(matcher, indexFieldName, value.Serialized(), attribute)
			if err != nil {
				return nil, err
			}
			valueClauses = append(valueClauses, clause)
		}
		if len(valueClauses) == 0 {
			continue
		}

		valuesClause := strings.Join(valueClauses, ",")
		if len(valueClauses) > 1 {
			valuesClause = `{"bool":{"` + combiner + `":[` + valuesClause + `]}}`
		}
		indexFieldClauses = append(indexFieldClauses, valuesClause)
	}
	return indexFieldClauses, nil
}

// makeAttributeClauses builds one clause per attribute, each combining its
// index-field clauses with the given combiner. Attributes are visited in
// lexicographic order; attributes that contribute no clause are skipped.
func makeAttributeClauses(m *model.Model, indexName string, attributes map[string]*Attribute, combiner string) ([]string, error) {
	if !validCombiner(combiner) {
		return nil, model.NewValidationError("'%s' is not a supported clause combiner", combiner)
	}
	var attributeClauses []string
	for _, attributeName := range sortedAttributeNames(attributes) {
		indexFieldClauses, err := makeIndexFieldClauses(m, indexName, attributes, attributeName, combiner)
		if err != nil {
			return nil, err
		}
		if len(indexFieldClauses) == 0 {
			continue
		}

		indexFieldsClause := strings.Join(indexFieldClauses, ",")
		if len(indexFieldClauses) > 1 {
			indexFieldsClause = `{"bool":{"` + combiner + `":[` + indexFieldsClause + `]}}`
		}
		attributeClauses = append(attributeClauses, indexFieldsClause)
	}
	return attributeClauses, nil
}
