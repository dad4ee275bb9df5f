// Package memory implements an embedded search backend for tests and small
// data sets.
//
// Documents are indexed per named index into posting lists (field → token →
// bitmap of document ordinals). The query evaluator covers exactly the
// boolean query subset the planner emits: bool (filter/should/must_not),
// ids, term, match, and match_all.
package memory

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Backend is an in-memory search backend. Safe for concurrent use.
type Backend struct {
	mu      sync.RWMutex
	indices map[string]*index
}

type index struct {
	ids      []string
	ordinals map[string]uint32
	sources  []map[string]any
	postings map[string]map[string]*roaring.Bitmap
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{indices: map[string]*index{}}
}

// Add indexes a document under the given index and identifier. Adding an
// existing identifier replaces nothing: documents are immutable here, and a
// duplicate add is an error.
func (b *Backend) Add(indexName, id string, source map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indices[indexName]
	if idx == nil {
		idx = &index{
			ordinals: map[string]uint32{},
			postings: map[string]map[string]*roaring.Bitmap{},
		}
		b.indices[indexName] = idx
	}
	if _, ok := idx.ordinals[id]; ok {
		return fmt.Errorf("document %q already exists in index %q", id, indexName)
	}

	ordinal := uint32(len(idx.ids))
	idx.ordinals[id] = ordinal
	idx.ids = append(idx.ids, id)
	idx.sources = append(idx.sources, source)

	leaves := map[string]any{}
	flatten("", source, leaves)
	for field, leaf := range leaves {
		scalars, ok := leaf.([]any)
		if !ok {
			scalars = []any{leaf}
		}
		for _, scalar := range scalars {
			text, ok := scalarText(scalar)
			if !ok {
				continue
			}
			idx.post(field, exactToken(text), ordinal)
			for _, token := range tokenize(text) {
				idx.post(field, token, ordinal)
			}
		}
	}
	return nil
}

func (idx *index) post(field, token string, ordinal uint32) {
	byToken := idx.postings[field]
	if byToken == nil {
		byToken = map[string]*roaring.Bitmap{}
		idx.postings[field] = byToken
	}
	bm := byToken[token]
	if bm == nil {
		bm = roaring.New()
		byToken[token] = bm
	}
	bm.Add(ordinal)
}

// flatten records every leaf of a nested document under its dotted path.
// Arrays keep their position: the whole array is one leaf.
func flatten(prefix string, node any, out map[string]any) {
	obj, ok := node.(map[string]any)
	if !ok {
		out[prefix] = node
		return
	}
	for key, value := range obj {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		flatten(path, value, out)
	}
}

func scalarText(scalar any) (string, bool) {
	switch x := scalar.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// exactToken namespaces full-value tokens away from analyzed tokens.
func exactToken(text string) string { return "\x00" + text }

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
