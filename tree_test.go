package entigo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo/model"
	"github.com/hupe1980/entigo/testutil"
)

// triadModel has three resolvers {a,b}, {a,c}, {b,c} over one index.
func triadModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.Parse([]byte(`{
	  "attributes": {
	    "a": {"type": "string"},
	    "b": {"type": "string"},
	    "c": {"type": "string"}
	  },
	  "matchers": {
	    "exact": {"clause": {"term": {"{{ field }}": "{{ value }}"}}}
	  },
	  "resolvers": {
	    "ab": {"attributes": ["a", "b"]},
	    "ac": {"attributes": ["a", "c"]},
	    "bc": {"attributes": ["b", "c"]}
	  },
	  "indices": {
	    "docs": {
	      "fields": {
	        "a": {"attribute": "a", "matcher": "exact"},
	        "b": {"attribute": "b", "matcher": "exact"},
	        "c": {"attribute": "c", "matcher": "exact"}
	      }
	    }
	  }
	}`))
	require.NoError(t, err)
	return m
}

func TestCountAttributesAcrossResolvers(t *testing.T) {
	m := triadModel(t)
	counts := countAttributesAcrossResolvers(m, []string{"ab", "ac", "bc"})
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 2}, counts)
}

func TestSortResolverAttributes(t *testing.T) {
	m := triadModel(t)
	counts := countAttributesAcrossResolvers(m, []string{"ab", "ac", "bc"})

	// All counts tie, so each resolver sorts by attribute name.
	sorted := sortResolverAttributes(m, []string{"ab", "ac", "bc"}, counts)
	assert.Equal(t, [][]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}, sorted)
}

func TestSortResolverAttributesByFrequency(t *testing.T) {
	m := triadModel(t)

	// With only {a,b} and {b,c} active, b appears twice and leads both
	// paths despite sorting after a by name.
	counts := countAttributesAcrossResolvers(m, []string{"ab", "bc"})
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 1}, counts)

	sorted := sortResolverAttributes(m, []string{"ab", "bc"}, counts)
	assert.Equal(t, [][]string{{"b", "a"}, {"b", "c"}}, sorted)
}

func TestMakeResolversFilterTree(t *testing.T) {
	// The shared "a" prefix of {a,b} and {a,c} collapses into one node.
	tree := makeResolversFilterTree([][]string{{"a", "b"}, {"a", "c"}, {"b", "c"}})
	assert.Equal(t, filterTree{
		"a": filterTree{
			"b": filterTree{},
			"c": filterTree{},
		},
		"b": filterTree{
			"c": filterTree{},
		},
	}, tree)
}

func TestPopulateResolversFilterTreeEmpty(t *testing.T) {
	m := triadModel(t)
	clause, err := populateResolversFilterTree(m, "docs", filterTree{}, map[string]*Attribute{})
	require.NoError(t, err)
	assert.Equal(t, "{}", clause)
}

func TestPopulateResolversFilterTree(t *testing.T) {
	m := triadModel(t)
	attrs := seedAttributes(t, m, map[string]any{"a": "1", "b": "2", "c": "3"})

	tree := makeResolversFilterTree([][]string{{"a", "b"}, {"a", "c"}, {"b", "c"}})
	clause, err := populateResolversFilterTree(m, "docs", tree, attrs)
	require.NoError(t, err)

	// Two children at the root combine with "should": any resolver path may
	// fire. Each path chains its attributes with "filter": all attributes
	// along the path must match.
	assert.Equal(t,
		`{"bool":{"should":[`+
			`{"bool":{"filter":[{"term":{"a":"1"}},`+
			`{"bool":{"should":[{"term":{"b":"2"}},{"term":{"c":"3"}}]}}]}},`+
			`{"bool":{"filter":[{"term":{"b":"2"}},`+
			`{"bool":{"filter":{"term":{"c":"3"}}}}]}}`+
			`]}}`,
		clause)
}

func TestPopulateResolversFilterTreeSkipsEmptyAttributes(t *testing.T) {
	m := triadModel(t)
	// Only attribute a has a value: the b and c branches contribute
	// nothing, and a's subtree collapses away.
	attrs := seedAttributes(t, m, map[string]any{"a": "1"})

	tree := makeResolversFilterTree([][]string{{"a", "b"}, {"a", "c"}, {"b", "c"}})
	clause, err := populateResolversFilterTree(m, "docs", tree, attrs)
	require.NoError(t, err)
	assert.Equal(t, `{"bool":{"filter":{"term":{"a":"1"}}}}`, clause)
}

func TestFilterTreeUsesSharedPrefixInModel(t *testing.T) {
	m := testutil.PersonModel()
	attrs := seedAttributes(t, m, map[string]any{"name": "Alice", "phone": "555"})

	var resolvers []string
	for _, r := range m.ResolverNames() {
		if canQuery(m, "ppl", r, attrs) {
			resolvers = append(resolvers, r)
		}
	}
	assert.Equal(t, []string{"name", "name_phone"}, resolvers)

	counts := countAttributesAcrossResolvers(m, resolvers)
	assert.Equal(t, map[string]int{"name": 2, "phone": 1}, counts)

	tree := makeResolversFilterTree(sortResolverAttributes(m, resolvers, counts))
	assert.Equal(t, filterTree{"name": filterTree{"phone": filterTree{}}}, tree)
}
