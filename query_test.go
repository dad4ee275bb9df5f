package entigo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo/testutil"
)

func TestCanQuery(t *testing.T) {
	m := testutil.PersonModel()

	attrs := seedAttributes(t, m, map[string]any{"name": "Alice"})
	assert.True(t, canQuery(m, "ppl", "name", attrs))
	// name_phone needs a phone value too.
	assert.False(t, canQuery(m, "ppl", "name_phone", attrs))

	attrs = seedAttributes(t, m, map[string]any{"name": "Alice", "phone": "555"})
	assert.True(t, canQuery(m, "ppl", "name_phone", attrs))

	// An attribute whose only value is blank does not count.
	attrs = seedAttributes(t, m, map[string]any{"name": "Alice", "phone": ""})
	assert.False(t, canQuery(m, "ppl", "name_phone", attrs))
}

func TestCanQueryRequiresMatcher(t *testing.T) {
	// phone is mapped but its only field has no matcher.
	m := parseModel(t, `{
	  "attributes": {"phone": {"type": "string"}},
	  "matchers":   {"exact": {"clause": {"term": {"{{ field }}": "{{ value }}"}}}},
	  "resolvers":  {"phone": {"attributes": ["phone"]}},
	  "indices":    {"ppl": {"fields": {"phone": {"attribute": "phone"}}}}
	}`)
	attrs := seedAttributes(t, m, map[string]any{"phone": "555"})
	assert.False(t, canQuery(m, "ppl", "phone", attrs))
}

func TestAssembleQueryNoApplicableResolvers(t *testing.T) {
	m := testutil.PersonModel()
	input, err := NewInput(m, map[string]any{"phone": ""})
	require.NoError(t, err)

	plan, err := assembleQuery(input, "ppl", input.Attributes(), nil, DefaultMaxDocsPerQuery, false)
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestAssembleQuerySeedOnly(t *testing.T) {
	m := testutil.PersonModel()
	input, err := NewInput(m, map[string]any{"name": "Alice"})
	require.NoError(t, err)

	plan, err := assembleQuery(input, "ppl", input.Attributes(), nil, DefaultMaxDocsPerQuery, false)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, []string{"name"}, plan.resolvers)
	assert.Equal(t,
		`{"query":{"bool":{"filter":{"bool":{"filter":`+
			`{"bool":{"should":[{"match":{"name":"Alice"}},{"term":{"name.keyword":"Alice"}}]}}`+
			`}}}},"size":1000}`,
		plan.body)
}

func TestAssembleQueryExcludesSeenDocs(t *testing.T) {
	m := testutil.PersonModel()
	input, err := NewInput(m, map[string]any{"name": "Alice"})
	require.NoError(t, err)

	plan, err := assembleQuery(input, "ppl", input.Attributes(), []string{"d1", "d2"}, 50, false)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Contains(t, plan.body, `"must_not":[{"ids":{"values":["d1","d2"]}}]`)
	assert.Contains(t, plan.body, `"size":50`)
}

func TestAssembleQueryExcludeScope(t *testing.T) {
	m := testutil.PersonModel()
	input, err := NewInput(m, map[string]any{"name": "Alice"})
	require.NoError(t, err)
	require.NoError(t, input.SetScopeExcludeAttributes(map[string]any{"name": "Bob"}))

	plan, err := assembleQuery(input, "ppl", input.Attributes(), nil, DefaultMaxDocsPerQuery, false)
	require.NoError(t, err)
	require.NotNil(t, plan)

	// Both fields mapped to name match Bob under a should: any of them
	// firing rejects the document.
	assert.Contains(t, plan.body,
		`"must_not":[{"bool":{"should":[{"match":{"name":"Bob"}},{"term":{"name.keyword":"Bob"}}]}}]`)
}

func TestAssembleQueryIncludeScope(t *testing.T) {
	m := testutil.PersonModel()
	input, err := NewInput(m, map[string]any{"name": "Alice"})
	require.NoError(t, err)
	require.NoError(t, input.SetScopeIncludeAttributes(map[string]any{"phone": "555"}))

	plan, err := assembleQuery(input, "ppl", input.Attributes(), nil, DefaultMaxDocsPerQuery, false)
	require.NoError(t, err)
	require.NotNil(t, plan)

	// The include clause and the resolvers clause stack in the filter array.
	assert.Contains(t, plan.body, `"filter":[{"term":{"phone":"555"}},`)
}

func TestAssembleQueryProfile(t *testing.T) {
	m := testutil.PersonModel()
	input, err := NewInput(m, map[string]any{"name": "Alice"})
	require.NoError(t, err)

	plan, err := assembleQuery(input, "ppl", input.Attributes(), nil, DefaultMaxDocsPerQuery, true)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Contains(t, plan.body, `,"profile":true}`)
}
