package entigo

import (
	"sort"
	"strings"

	"github.com/hupe1980/entigo/model"
)

// filterTree is the sort-optimized nested representation of the active
// resolvers: each path from the root to a leaf is one resolver's attribute
// sequence, with common prefixes shared. It marshals as nested JSON objects
// for the query log.
type filterTree map[string]filterTree

// countAttributesAcrossResolvers counts how many resolvers each attribute
// appears in. Attributes that appear in more resolvers are placed higher in
// the filter tree, so boolean-query evaluators can factor the shared
// constraints.
func countAttributesAcrossResolvers(m *model.Model, resolvers []string) map[string]int {
	counts := map[string]int{}
	for _, resolverName := range resolvers {
		for _, attributeName := range m.Resolvers()[resolverName].Attributes() {
			counts[attributeName]++
		}
	}
	return counts
}

// sortResolverAttributes orders each resolver's attributes first in
// descending order by how many resolvers the attribute appears in, then in
// ascending order by name. Resolvers keep their input order.
func sortResolverAttributes(m *model.Model, resolvers []string, counts map[string]int) [][]string {
	resolversSorted := make([][]string, 0, len(resolvers))
	for _, resolverName := range resolvers {
		attrs := m.Resolvers()[resolverName].Attributes()
		sorted := append([]string(nil), attrs...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if counts[sorted[i]] != counts[sorted[j]] {
				return counts[sorted[i]] > counts[sorted[j]]
			}
			return sorted[i] < sorted[j]
		})
		resolversSorted = append(resolversSorted, sorted)
	}
	return resolversSorted
}

// makeResolversFilterTree inserts each resolver's sorted attribute sequence
// as a path, reusing existing nodes so shared prefixes collapse.
func makeResolversFilterTree(resolversSorted [][]string) filterTree {
	root := filterTree{}
	for _, resolverSorted := range resolversSorted {
		current := root
		for _, attributeName := range resolverSorted {
			if _, ok := current[attributeName]; !ok {
				current[attributeName] = filterTree{}
			}
			current = current[attributeName]
		}
	}
	return root
}

// populateResolversFilterTree emits the boolean clause for the tree: the
// outer "should" means any resolver path may fire, the inner "filter" chain
// means all attributes along a chosen path must match.
func populateResolversFilterTree(m *model.Model, indexName string, tree filterTree, attributes map[string]*Attribute) (string, error) {
	var attributeClauses []string
	children := make([]string, 0, len(tree))
	for attributeName := range tree {
		children = append(children, attributeName)
	}
	sort.Strings(children)

	for _, attributeName := range children {
		indexFieldClauses, err := makeIndexFieldClauses(m, indexName, attributes, attributeName, combinerShould)
		if err != nil {
			return "", err
		}
		if len(indexFieldClauses) == 0 {
			continue
		}

		indexFieldsClause := strings.Join(indexFieldClauses, ",")
		if len(indexFieldClauses) > 1 {
			indexFieldsClause = `{"bool":{"should":[` + indexFieldsClause + `]}}`
		}

		filter, err := populateResolversFilterTree(m, indexName, tree[attributeName], attributes)
		if err != nil {
			return "", err
		}
		if filter != "{}" {
			attributeClauses = append(attributeClauses, `{"bool":{"filter":[`+indexFieldsClause+`,`+filter+`]}}`)
		} else {
			attributeClauses = append(attributeClauses, indexFieldsClause)
		}
	}

	switch size := len(attributeClauses); {
	case size > 1:
		return `{"bool":{"should":[` + strings.Join(attributeClauses, ",") + `]}}`, nil
	case size == 1:
		return `{"bool":{"filter":` + attributeClauses[0] + `}}`, nil
	default:
		return "{}", nil
	}
}
