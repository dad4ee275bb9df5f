package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo/codec"
)

func searchIDs(t *testing.T, b *Backend, index, body string) []string {
	t.Helper()
	res, err := b.Search(context.Background(), index, []byte(body))
	require.NoError(t, err)

	var response struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	require.NoError(t, codec.Default.Unmarshal(res, &response))

	var ids []string
	for _, h := range response.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func peopleBackend(t *testing.T) *Backend {
	t.Helper()
	b := New()
	require.NoError(t, b.Add("ppl", "d1", map[string]any{"name": "Alice Jones", "phone": "555"}))
	require.NoError(t, b.Add("ppl", "d2", map[string]any{"name": "Bob Smith", "phone": "555"}))
	require.NoError(t, b.Add("ppl", "d3", map[string]any{"name": "Alice Brown", "phone": "777"}))
	return b
}

func TestAddDuplicate(t *testing.T) {
	b := New()
	require.NoError(t, b.Add("ppl", "d1", map[string]any{"name": "Alice"}))
	assert.Error(t, b.Add("ppl", "d1", map[string]any{"name": "Alice"}))
}

func TestSearchMatchAll(t *testing.T) {
	b := peopleBackend(t)
	assert.Equal(t, []string{"d1", "d2", "d3"}, searchIDs(t, b, "ppl", `{"query":{},"size":10}`))
	assert.Equal(t, []string{"d1"}, searchIDs(t, b, "ppl", `{"query":{"match_all":{}},"size":1}`))
}

func TestSearchUnknownIndex(t *testing.T) {
	b := peopleBackend(t)
	assert.Empty(t, searchIDs(t, b, "ghosts", `{"query":{},"size":10}`))
}

func TestSearchTerm(t *testing.T) {
	b := peopleBackend(t)
	assert.Equal(t, []string{"d1", "d2"}, searchIDs(t, b, "ppl", `{"query":{"term":{"phone":"555"}},"size":10}`))
	// Exact term matching is full-value: a partial value does not match.
	assert.Empty(t, searchIDs(t, b, "ppl", `{"query":{"term":{"name":"Alice"}},"size":10}`))
	// The keyword multi-field falls back to the parent's exact token.
	assert.Equal(t, []string{"d1"}, searchIDs(t, b, "ppl", `{"query":{"term":{"name.keyword":"Alice Jones"}},"size":10}`))
}

func TestSearchMatch(t *testing.T) {
	b := peopleBackend(t)
	// Analyzed matching is tokenized, lowercased, and OR-combined.
	assert.Equal(t, []string{"d1", "d3"}, searchIDs(t, b, "ppl", `{"query":{"match":{"name":"alice"}},"size":10}`))
	assert.Equal(t, []string{"d1", "d2", "d3"}, searchIDs(t, b, "ppl", `{"query":{"match":{"name":"alice bob"}},"size":10}`))
}

func TestSearchBool(t *testing.T) {
	b := peopleBackend(t)

	// filter is a conjunction.
	ids := searchIDs(t, b, "ppl", `{"query":{"bool":{"filter":[{"match":{"name":"alice"}},{"term":{"phone":"555"}}]}},"size":10}`)
	assert.Equal(t, []string{"d1"}, ids)

	// must_not subtracts.
	ids = searchIDs(t, b, "ppl", `{"query":{"bool":{"must_not":[{"ids":{"values":["d1","d3"]}}]}},"size":10}`)
	assert.Equal(t, []string{"d2"}, ids)

	// should alone is a required disjunction.
	ids = searchIDs(t, b, "ppl", `{"query":{"bool":{"should":[{"term":{"phone":"777"}},{"match":{"name":"bob"}}]}},"size":10}`)
	assert.Equal(t, []string{"d2", "d3"}, ids)
}

func TestSearchNestedBool(t *testing.T) {
	b := peopleBackend(t)
	// The shape the planner emits: should of filter chains.
	body := `{"query":{"bool":{"filter":{"bool":{"should":[
	  {"bool":{"filter":[{"match":{"name":"alice"}},{"bool":{"filter":{"term":{"phone":"555"}}}}]}},
	  {"bool":{"filter":{"term":{"phone":"777"}}}}
	]}}}},"size":10}`
	assert.Equal(t, []string{"d1", "d3"}, searchIDs(t, b, "ppl", body))
}

func TestSearchUnsupportedClause(t *testing.T) {
	b := peopleBackend(t)
	_, err := b.Search(context.Background(), "ppl", []byte(`{"query":{"regexp":{"name":"a.*"}},"size":10}`))
	assert.Error(t, err)
}
