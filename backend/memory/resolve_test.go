package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo"
	"github.com/hupe1980/entigo/backend/memory"
	"github.com/hupe1980/entigo/testutil"
)

// TestResolveAgainstMemoryBackend drives the full engine against the
// embedded backend: the analyzed name match on "alice" or "jones" finds d1,
// d2 and d3 on the first hop; d4 shares no name token and is never linked.
func TestResolveAgainstMemoryBackend(t *testing.T) {
	be := memory.New()
	require.NoError(t, be.Add("ppl", "d1", map[string]any{"name": "Alice Jones", "phone": "555"}))
	require.NoError(t, be.Add("ppl", "d2", map[string]any{"name": "Alicia Jones", "phone": "555"}))
	require.NoError(t, be.Add("ppl", "d3", map[string]any{"name": "Alicia Jones", "phone": "888"}))
	require.NoError(t, be.Add("ppl", "d4", map[string]any{"name": "Unrelated Person", "phone": "999"}))

	input, err := entigo.NewInput(testutil.PersonModel(), map[string]any{"name": "Alice Jones"})
	require.NoError(t, err)

	envelope, err := entigo.NewJob(be, input).Run(context.Background())
	require.NoError(t, err)

	s := string(envelope)
	assert.Contains(t, s, `"total":3`)
	assert.Contains(t, s, `"_id":"d1"`)
	assert.Contains(t, s, `"_id":"d2"`)
	assert.Contains(t, s, `"_id":"d3"`)
	assert.NotContains(t, s, `"_id":"d4"`)
}

// TestResolveScopeExclude rejects documents matching the exclude scope even
// when the resolvers would link them.
func TestResolveScopeExclude(t *testing.T) {
	be := memory.New()
	require.NoError(t, be.Add("ppl", "d1", map[string]any{"name": "Alice Jones", "phone": "555"}))
	require.NoError(t, be.Add("ppl", "d2", map[string]any{"name": "Bob Jones", "phone": "555"}))

	input, err := entigo.NewInput(testutil.PersonModel(), map[string]any{"name": "Alice Jones"})
	require.NoError(t, err)
	require.NoError(t, input.SetScopeExcludeAttributes(map[string]any{"name": "Bob Smith"}))

	envelope, err := entigo.NewJob(be, input).Run(context.Background())
	require.NoError(t, err)

	s := string(envelope)
	assert.Contains(t, s, `"_id":"d1"`)
	assert.NotContains(t, s, `"_id":"d2"`)
}
