package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/entigo/codec"
	"github.com/hupe1980/entigo/model"
)

// PersonModelDoc is a small but complete entity model over a single "ppl"
// index: a name attribute matched exactly and as text, and a phone attribute
// matched exactly. The "name" resolver lets a seed with only a name start
// the traversal; the "name_phone" resolver links through both.
const PersonModelDoc = `{
  "attributes": {
    "name":  {"type": "string"},
    "phone": {"type": "string"}
  },
  "matchers": {
    "exact": {"clause": {"term": {"{{ field }}": "{{ value }}"}}},
    "text":  {"clause": {"match": {"{{ field }}": "{{ value }}"}}}
  },
  "resolvers": {
    "name":       {"attributes": ["name"]},
    "name_phone": {"attributes": ["name", "phone"]}
  },
  "indices": {
    "ppl": {
      "fields": {
        "name":         {"attribute": "name", "matcher": "text"},
        "name.keyword": {"attribute": "name", "matcher": "exact"},
        "phone":        {"attribute": "phone", "matcher": "exact"}
      }
    }
  }
}`

// PersonModel parses PersonModelDoc, panicking on failure.
func PersonModel() *model.Model {
	m, err := model.Parse([]byte(PersonModelDoc))
	if err != nil {
		panic(err)
	}
	return m
}

// Doc builds a search hit document.
func Doc(index, id string, source map[string]any) map[string]any {
	return map[string]any{
		"_index":  index,
		"_id":     id,
		"_score":  1.0,
		"_source": source,
	}
}

// Response serializes a search response carrying the given hit documents.
func Response(docs ...map[string]any) string {
	if docs == nil {
		docs = []map[string]any{}
	}
	body := map[string]any{
		"took":      1,
		"timed_out": false,
		"hits": map[string]any{
			"total": len(docs),
			"hits":  docs,
		},
	}
	return string(codec.MustMarshal(nil, body))
}

// ScriptedRequest records one search submitted to a ScriptedBackend.
type ScriptedRequest struct {
	Index string
	Body  string
}

// ScriptedBackend replays canned responses per index, in script order, and
// records every request. Once an index's script is exhausted, it answers
// with an empty response. Safe for concurrent use.
type ScriptedBackend struct {
	mu        sync.Mutex
	responses map[string][]string
	requests  []ScriptedRequest
}

// NewScriptedBackend creates an empty scripted backend.
func NewScriptedBackend() *ScriptedBackend {
	return &ScriptedBackend{responses: map[string][]string{}}
}

// Script appends responses to the index's script.
func (b *ScriptedBackend) Script(index string, responses ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[index] = append(b.responses[index], responses...)
}

// Requests returns the recorded searches in submission order.
func (b *ScriptedBackend) Requests() []ScriptedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ScriptedRequest(nil), b.requests...)
}

// RequestBodies returns the bodies of all recorded searches.
func (b *ScriptedBackend) RequestBodies() []string {
	var bodies []string
	for _, r := range b.Requests() {
		bodies = append(bodies, r.Body)
	}
	return bodies
}

// Search implements backend.Backend.
func (b *ScriptedBackend) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, ScriptedRequest{Index: index, Body: string(body)})

	script := b.responses[index]
	if len(script) == 0 {
		return []byte(Response()), nil
	}
	next := script[0]
	b.responses[index] = script[1:]
	return []byte(next), nil
}
