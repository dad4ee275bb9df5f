package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/entigo/codec"
)

// Search evaluates the query body against the named index and returns an
// Elasticsearch-shaped response. An unknown index yields an empty result,
// matching a store with no documents.
func (b *Backend) Search(ctx context.Context, indexName string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var request struct {
		Query map[string]any `json:"query"`
		Size  *int           `json:"size"`
	}
	if err := codec.Default.Unmarshal(body, &request); err != nil {
		return nil, fmt.Errorf("malformed query body: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := b.indices[indexName]
	if idx == nil {
		idx = &index{}
	}

	matched, err := idx.evaluate(request.Query)
	if err != nil {
		return nil, err
	}

	total := int(matched.GetCardinality())
	size := total
	if request.Size != nil && *request.Size < size {
		size = *request.Size
	}

	hits := make([]map[string]any, 0, size)
	it := matched.Iterator()
	for it.HasNext() && len(hits) < size {
		ordinal := it.Next()
		hits = append(hits, map[string]any{
			"_index":  indexName,
			"_id":     idx.ids[ordinal],
			"_score":  1.0,
			"_source": idx.sources[ordinal],
		})
	}

	response := map[string]any{
		"took":      0,
		"timed_out": false,
		"hits": map[string]any{
			"total": total,
			"hits":  hits,
		},
	}
	return codec.Default.Marshal(response)
}

func (idx *index) all() *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, uint64(len(idx.ids)))
	return bm
}

// evaluate turns a query node into the bitmap of matching ordinals.
func (idx *index) evaluate(query map[string]any) (*roaring.Bitmap, error) {
	if len(query) == 0 {
		return idx.all(), nil
	}
	for kind, arg := range query {
		switch kind {
		case "match_all":
			return idx.all(), nil
		case "bool":
			obj, ok := arg.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("'bool' must be an object")
			}
			return idx.evaluateBool(obj)
		case "ids":
			obj, ok := arg.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("'ids' must be an object")
			}
			return idx.evaluateIDs(obj)
		case "term":
			obj, ok := arg.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("'term' must be an object")
			}
			return idx.evaluateTerm(obj)
		case "match":
			obj, ok := arg.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("'match' must be an object")
			}
			return idx.evaluateMatch(obj)
		default:
			return nil, fmt.Errorf("unsupported query clause %q", kind)
		}
	}
	return idx.all(), nil
}

// evaluateBool implements filter (conjunction), should (disjunction,
// required only when no filter is present), and must_not (negation).
func (idx *index) evaluateBool(obj map[string]any) (*roaring.Bitmap, error) {
	result := idx.all()

	filters, err := idx.clauseList(obj["filter"])
	if err != nil {
		return nil, err
	}
	for _, clause := range filters {
		bm, err := idx.evaluate(clause)
		if err != nil {
			return nil, err
		}
		result.And(bm)
	}

	shoulds, err := idx.clauseList(obj["should"])
	if err != nil {
		return nil, err
	}
	if len(shoulds) > 0 && len(filters) == 0 {
		union := roaring.New()
		for _, clause := range shoulds {
			bm, err := idx.evaluate(clause)
			if err != nil {
				return nil, err
			}
			union.Or(bm)
		}
		result.And(union)
	}

	mustNots, err := idx.clauseList(obj["must_not"])
	if err != nil {
		return nil, err
	}
	for _, clause := range mustNots {
		bm, err := idx.evaluate(clause)
		if err != nil {
			return nil, err
		}
		result.AndNot(bm)
	}

	return result, nil
}

// clauseList accepts a single clause object or an array of them.
func (idx *index) clauseList(raw any) ([]map[string]any, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return []map[string]any{x}, nil
	case []any:
		clauses := make([]map[string]any, 0, len(x))
		for _, e := range x {
			obj, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("boolean clause must be an object")
			}
			clauses = append(clauses, obj)
		}
		return clauses, nil
	default:
		return nil, fmt.Errorf("boolean clause must be an object or an array")
	}
}

func (idx *index) evaluateIDs(obj map[string]any) (*roaring.Bitmap, error) {
	values, ok := obj["values"].([]any)
	if !ok {
		return nil, fmt.Errorf("'ids.values' must be an array")
	}
	bm := roaring.New()
	for _, v := range values {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("'ids.values' must be strings")
		}
		if ordinal, ok := idx.ordinals[id]; ok {
			bm.Add(ordinal)
		}
	}
	return bm, nil
}

func (idx *index) evaluateTerm(obj map[string]any) (*roaring.Bitmap, error) {
	for field, value := range obj {
		if nested, ok := value.(map[string]any); ok {
			value = nested["value"]
		}
		text, ok := scalarText(value)
		if !ok {
			return nil, fmt.Errorf("'term.%s' must be a scalar", field)
		}
		return idx.postingsFor(field, exactToken(text)), nil
	}
	return roaring.New(), nil
}

func (idx *index) evaluateMatch(obj map[string]any) (*roaring.Bitmap, error) {
	for field, value := range obj {
		if nested, ok := value.(map[string]any); ok {
			value = nested["query"]
		}
		text, ok := scalarText(value)
		if !ok {
			return nil, fmt.Errorf("'match.%s' must be a scalar", field)
		}
		union := roaring.New()
		for _, token := range tokenize(text) {
			union.Or(idx.postingsFor(field, token))
		}
		return union, nil
	}
	return roaring.New(), nil
}

// postingsFor resolves the posting list for a field. Multi-fields
// ("name.keyword") are not indexed separately; a field with no postings
// falls back to its parent, whose exact token carries keyword semantics.
func (idx *index) postingsFor(field, token string) *roaring.Bitmap {
	byToken := idx.postings[field]
	if byToken == nil {
		if i := strings.LastIndex(field, "."); i > 0 {
			return idx.postingsFor(field[:i], token)
		}
		return roaring.New()
	}
	bm := byToken[token]
	if bm == nil {
		return roaring.New()
	}
	return bm.Clone()
}
