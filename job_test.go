package entigo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo/model"
	"github.com/hupe1980/entigo/testutil"
)

var tookPattern = regexp.MustCompile(`"took":\d+`)

func normalizeTook(envelope []byte) string {
	return tookPattern.ReplaceAllString(string(envelope), `"took":0`)
}

func parseModel(t *testing.T, doc string) *model.Model {
	t.Helper()
	m, err := model.Parse([]byte(doc))
	require.NoError(t, err)
	return m
}

func personInput(t *testing.T, seeds map[string]any) *Input {
	t.Helper()
	input, err := NewInput(testutil.PersonModel(), seeds)
	require.NoError(t, err)
	return input
}

func TestRunNoResults(t *testing.T) {
	be := testutil.NewScriptedBackend()
	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))

	envelope, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"took":0,"hits":{"total":0,"hits":[]}}`, normalizeTook(envelope))

	// One query was submitted, none after the empty hop.
	assert.Len(t, be.Requests(), 1)
}

func TestRunTwoHops(t *testing.T) {
	be := testutil.NewScriptedBackend()
	// Hop 0 finds Alice's record and harvests her phone; hop 1 queries with
	// the phone and finds a second record that adds nothing new.
	be.Script("ppl",
		testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})),
		testutil.Response(testutil.Doc("ppl", "d2", map[string]any{"phone": "555"})),
	)

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t,
		`{"took":0,"hits":{"total":2,"hits":[`+
			`{"_attributes":{"name":"Alice","phone":"555"},"_hop":0,"_id":"d1","_index":"ppl","_source":{"name":"Alice","phone":"555"}},`+
			`{"_attributes":{"phone":"555"},"_hop":1,"_id":"d2","_index":"ppl","_source":{"phone":"555"}}`+
			`]}}`,
		normalizeTook(envelope))

	// The second query must exclude the already-seen document and carry the
	// harvested phone.
	requests := be.RequestBodies()
	require.Len(t, requests, 2)
	assert.Contains(t, requests[1], `{"ids":{"values":["d1"]}}`)
	assert.Contains(t, requests[1], `{"term":{"phone":"555"}}`)
}

func TestRunPathParentFallback(t *testing.T) {
	// The model queries name.keyword, which is a multi-field: it is absent
	// from _source, so harvesting falls back to the parent path.
	be := testutil.NewScriptedBackend()
	be.Script("ppl", testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice"})))

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(envelope), `"_attributes":{"name":"Alice"}`)
}

func TestRunDedupesRepeatedDocs(t *testing.T) {
	be := testutil.NewScriptedBackend()
	doc := testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})
	// The backend misbehaves and returns the same document again on the
	// second hop, despite the ids exclusion.
	be.Script("ppl", testutil.Response(doc), testutil.Response(doc))

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(envelope), `"total":1`)
}

func TestRunMaxHopsZero(t *testing.T) {
	be := testutil.NewScriptedBackend()
	be.Script("ppl",
		testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})),
		testutil.Response(testutil.Doc("ppl", "d2", map[string]any{"phone": "555"})),
	)

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}), WithMaxHops(0))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)

	// Exactly one hop: the harvested phone is never searched.
	assert.Contains(t, string(envelope), `"total":1`)
	assert.Len(t, be.Requests(), 1)
}

func TestRunUnboundedHops(t *testing.T) {
	be := testutil.NewScriptedBackend()
	be.Script("ppl",
		testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})),
		testutil.Response(testutil.Doc("ppl", "d2", map[string]any{"name": "Al", "phone": "555"})),
	)

	// maxHops -1 runs until saturation: hop 2 discovers nothing new.
	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}), WithMaxHops(-1))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(envelope), `"total":2`)
	assert.Len(t, be.Requests(), 3)
}

func TestRunIncludeQueries(t *testing.T) {
	be := testutil.NewScriptedBackend()
	be.Script("ppl", testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})))

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}), WithIncludeQueries(true))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)

	s := string(envelope)
	assert.Contains(t, s, `"queries":[{"_hop":0,"_index":"ppl","resolvers":{"list":["name"],"tree":{"name":{}}}`)
	// The logged response must not carry the hit documents.
	assert.Contains(t, s, `"response":{"hits":{"total":1},"timed_out":false,"took":1}`)
}

func TestRunIncludeHitsFalseStillTraverses(t *testing.T) {
	be := testutil.NewScriptedBackend()
	be.Script("ppl",
		testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})),
		testutil.Response(testutil.Doc("ppl", "d2", map[string]any{"phone": "555"})),
	)

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}), WithIncludeHits(false))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, `{"took":0}`, normalizeTook(envelope))
	// Harvesting ran regardless of the output flags: the phone discovered
	// in hop 0 drove a second query.
	require.Len(t, be.Requests(), 2)
	assert.Contains(t, be.RequestBodies()[1], `{"term":{"phone":"555"}}`)
}

func TestRunIncludeSourceFalse(t *testing.T) {
	be := testutil.NewScriptedBackend()
	be.Script("ppl", testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})))

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}),
		WithIncludeSource(false), WithIncludeAttributes(false))
	envelope, err := job.Run(context.Background())
	require.NoError(t, err)

	s := string(envelope)
	assert.NotContains(t, s, `"_source"`)
	assert.NotContains(t, s, `"_attributes"`)
	assert.Contains(t, s, `"_hop":0`)
}

func TestRunPretty(t *testing.T) {
	be := testutil.NewScriptedBackend()
	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}), WithPretty(true))

	envelope, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(envelope), "{\n  \"took\"")
}

func TestRunDeterminism(t *testing.T) {
	script := func() *testutil.ScriptedBackend {
		be := testutil.NewScriptedBackend()
		be.Script("ppl",
			testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})),
			testutil.Response(testutil.Doc("ppl", "d2", map[string]any{"phone": "555"})),
		)
		return be
	}

	be1, be2 := script(), script()
	env1, err := NewJob(be1, personInput(t, map[string]any{"name": "Alice"}), WithIncludeQueries(true)).Run(context.Background())
	require.NoError(t, err)
	env2, err := NewJob(be2, personInput(t, map[string]any{"name": "Alice"}), WithIncludeQueries(true)).Run(context.Background())
	require.NoError(t, err)

	// Byte-identical apart from the duration.
	assert.Equal(t, normalizeTook(env1), normalizeTook(env2))
	assert.Equal(t, be1.RequestBodies(), be2.RequestBodies())
}

func TestRunReuseResetsState(t *testing.T) {
	be := testutil.NewScriptedBackend()
	response := testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"}))
	empty := testutil.Response()
	be.Script("ppl", response, empty, response, empty)

	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))

	env1, err := job.Run(context.Background())
	require.NoError(t, err)
	env2, err := job.Run(context.Background())
	require.NoError(t, err)

	// The second run starts from the seed again: same hits, no carried-over
	// doc exclusions or attribute values.
	assert.Equal(t, normalizeTook(env1), normalizeTook(env2))
	requests := be.RequestBodies()
	require.Len(t, requests, 4)
	assert.Equal(t, requests[0], requests[2])
	assert.Equal(t, requests[1], requests[3])
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	be := testutil.NewScriptedBackend()
	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))

	envelope, err := job.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, envelope)
	assert.Empty(t, be.Requests())
}

type failingBackend struct{ err error }

func (b *failingBackend) Search(context.Context, string, []byte) ([]byte, error) {
	return nil, b.err
}

func TestRunBackendError(t *testing.T) {
	be := &failingBackend{err: errors.New("connection refused")}
	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}))

	envelope, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, envelope)

	var ioe *IOError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, "ppl", ioe.Index)
}

func TestRunMetrics(t *testing.T) {
	be := testutil.NewScriptedBackend()
	be.Script("ppl", testutil.Response(testutil.Doc("ppl", "d1", map[string]any{"name": "Alice", "phone": "555"})))

	metrics := &BasicMetricsCollector{}
	job := NewJob(be, personInput(t, map[string]any{"name": "Alice"}), WithMetricsCollector(metrics))

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.SearchCount.Load())
	assert.Equal(t, int64(1), metrics.RunCount.Load())
	assert.Equal(t, int64(1), metrics.HitsCollected.Load())
	assert.Equal(t, int64(1), metrics.ValuesDiscovered.Load())
}
