package entigo

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hupe1980/entigo/model"
)

// canQuery reports whether a query can be constructed for a resolver on an
// index with the given attribute state. Each attribute of the resolver must
// be present with at least one non-empty value, be mapped to at least one
// field of the index, and at least one such field must have a matcher.
func canQuery(m *model.Model, indexName, resolverName string, attributes map[string]*Attribute) bool {
	for _, attributeName := range m.Resolvers()[resolverName].Attributes() {
		attribute, ok := attributes[attributeName]
		if !ok {
			return false
		}
		hasValue := false
		for _, v := range attribute.Values() {
			if v.Serialized() != "" {
				hasValue = true
				break
			}
		}
		if !hasValue {
			return false
		}

		fields := m.Indices()[indexName].FieldsForAttribute(attributeName)
		if len(fields) == 0 {
			return false
		}
		hasMatcher := false
		for _, indexFieldName := range fields {
			if indexFieldHasMatcher(m, indexName, indexFieldName) {
				hasMatcher = true
				break
			}
		}
		if !hasMatcher {
			return false
		}
	}
	return true
}

// queryPlan is the assembled query for one index in one hop.
type queryPlan struct {
	body      string
	resolvers []string
	tree      filterTree
}

// assembleQuery combines the doc-id exclusion, the scope include/exclude
// clauses, and the resolvers filter tree into the final query document.
// It returns nil when no resolver applies to the index.
func assembleQuery(input *Input, indexName string, attributes map[string]*Attribute, docIDs []string, maxDocsPerQuery int, profile bool) (*queryPlan, error) {
	m := input.Model()

	var resolvers []string
	for _, resolverName := range m.ResolverNames() {
		if canQuery(m, indexName, resolverName, attributes) {
			resolvers = append(resolvers, resolverName)
		}
	}
	if len(resolvers) == 0 {
		return nil, nil
	}

	var queryClauses []string

	// Exclude docs already seen on this index, then anything matching the
	// exclude scope.
	var mustNotClauses []string
	if len(docIDs) > 0 {
		quoted := make([]string, len(docIDs))
		for i, id := range docIDs {
			b, _ := json.Marshal(id)
			quoted[i] = string(b)
		}
		mustNotClauses = append(mustNotClauses, `{"ids":{"values":[`+strings.Join(quoted, ",")+`]}}`)
	}
	if len(input.Scope().ExcludeAttributes()) > 0 {
		attributeClauses, err := makeAttributeClauses(m, indexName, input.Scope().ExcludeAttributes(), combinerShould)
		if err != nil {
			return nil, err
		}
		if len(attributeClauses) > 1 {
			mustNotClauses = append(mustNotClauses, `{"bool":{"should":[`+strings.Join(attributeClauses, ",")+`]}}`)
		} else if len(attributeClauses) == 1 {
			mustNotClauses = append(mustNotClauses, attributeClauses[0])
		}
	}
	if len(mustNotClauses) > 0 {
		queryClauses = append(queryClauses, `"must_not":[`+strings.Join(mustNotClauses, ",")+`]`)
	}

	// Constrain to the include scope, then require some resolver path to
	// fire.
	var filterClauses []string
	if len(input.Scope().IncludeAttributes()) > 0 {
		attributeClauses, err := makeAttributeClauses(m, indexName, input.Scope().IncludeAttributes(), combinerFilter)
		if err != nil {
			return nil, err
		}
		if len(attributeClauses) > 1 {
			filterClauses = append(filterClauses, `{"bool":{"filter":[`+strings.Join(attributeClauses, ",")+`]}}`)
		} else if len(attributeClauses) == 1 {
			filterClauses = append(filterClauses, attributeClauses[0])
		}
	}

	counts := countAttributesAcrossResolvers(m, resolvers)
	resolversSorted := sortResolverAttributes(m, resolvers, counts)
	tree := makeResolversFilterTree(resolversSorted)
	resolversClause, err := populateResolversFilterTree(m, indexName, tree, attributes)
	if err != nil {
		return nil, err
	}
	filterClauses = append(filterClauses, resolversClause)

	if len(filterClauses) > 1 {
		queryClauses = append(queryClauses, `"filter":[`+strings.Join(filterClauses, ",")+`]`)
	} else {
		queryClauses = append(queryClauses, `"filter":`+filterClauses[0])
	}

	queryClause := "{}"
	if len(queryClauses) > 0 {
		queryClause = `{"bool":{` + strings.Join(queryClauses, ",") + `}}`
	}

	body := `{"query":` + queryClause + `,"size":` + strconv.Itoa(maxDocsPerQuery)
	if profile {
		body += `,"profile":true`
	}
	body += `}`

	return &queryPlan{body: body, resolvers: resolvers, tree: tree}, nil
}
