package entigo

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/entigo/backend"
	"github.com/hupe1980/entigo/codec"
	"github.com/hupe1980/entigo/model"
)

// Job runs one entity resolution over a search backend.
//
// A Job is single-threaded: queries run serially across indices and hops,
// and the only blocking operation is the backend search call. A Job is not
// safe for concurrent reuse; distinct jobs share no mutable state and may
// run in parallel (see RunAll).
//
// Run may be called again on the same Job; the per-run state is then reset
// from the input.
type Job struct {
	backend backend.Backend
	input   *Input
	opts    options

	attributes map[string]*Attribute
	docIDs     map[string]map[string]struct{}
	hits       []string
	queries    []string
	hop        int
	ran        bool
}

// NewJob creates a job for the given backend and input.
func NewJob(be backend.Backend, input *Input, optFns ...Option) *Job {
	j := &Job{
		backend: be,
		input:   input,
		opts:    applyOptions(optFns),
	}
	j.resetState()
	return j
}

// resetState re-seeds the per-run state from the input, for Job reuse.
func (j *Job) resetState() {
	j.attributes = cloneAttributes(j.input.Attributes())
	j.docIDs = map[string]map[string]struct{}{}
	j.hits = nil
	j.queries = nil
	j.hop = 0
}

// Run executes the resolution and returns the JSON response envelope:
//
//	{"took":12,"hits":{"total":2,"hits":[...]},"queries":[...]}
//
// The hits section is omitted under WithIncludeHits(false); the queries
// section appears only under WithIncludeQueries(true) or WithProfile(true).
// On error no partial envelope is returned.
func (j *Job) Run(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var runErr error
	defer func() {
		j.ran = true
		j.opts.metrics.RecordRun(j.hop, len(j.hits), time.Since(start), runErr)
	}()

	if j.ran {
		j.resetState()
	}

	if runErr = j.traverse(ctx); runErr != nil {
		return nil, runErr
	}

	took := time.Since(start).Milliseconds()
	parts := []string{`"took":` + strconv.FormatInt(took, 10)}
	if j.opts.includeHits {
		parts = append(parts, `"hits":{"total":`+strconv.Itoa(len(j.hits))+`,"hits":[`+strings.Join(j.hits, ",")+`]}`)
	}
	if j.opts.includeQueries || j.opts.profile {
		parts = append(parts, `"queries":[`+strings.Join(j.queries, ",")+`]`)
	}
	envelope := []byte("{" + strings.Join(parts, ",") + "}")

	if j.opts.pretty {
		return codec.Indent(envelope)
	}
	return envelope, nil
}

// traverse is the breadth-first hop loop: submit a query per index, harvest
// attribute values from new documents, merge them into the attribute state,
// and stop when a hop discovers nothing new or the hop limit is reached.
func (j *Job) traverse(ctx context.Context) error {
	m := j.input.Model()

	for {
		nextInput := map[string]*Attribute{}

		for _, indexName := range m.IndexNames() {
			if err := ctx.Err(); err != nil {
				return err
			}

			ids := j.docIDs[indexName]
			if ids == nil {
				ids = map[string]struct{}{}
				j.docIDs[indexName] = ids
			}

			plan, err := assembleQuery(j.input, indexName, j.attributes, sortedIDs(ids), j.opts.maxDocsPerQuery, j.opts.profile)
			if err != nil {
				return err
			}
			if plan == nil {
				continue
			}

			logger := j.opts.logger.WithHop(j.hop).WithIndex(indexName)
			logger.Debug("submitting query", "resolvers", plan.resolvers)

			searchStart := time.Now()
			res, err := j.backend.Search(ctx, indexName, []byte(plan.body))
			j.opts.metrics.RecordSearch(indexName, time.Since(searchStart), err)
			if err != nil {
				return &IOError{Index: indexName, cause: err}
			}

			var response map[string]any
			if err := j.opts.codec.Unmarshal(res, &response); err != nil {
				return &IOError{Index: indexName, cause: err}
			}

			if j.opts.includeQueries || j.opts.profile {
				if err := j.logQuery(indexName, plan, response); err != nil {
					return err
				}
			}

			docs := responseDocs(response)
			logger.Debug("processing response", "docs", len(docs))
			for _, doc := range docs {
				id, ok := doc["_id"].(string)
				if !ok {
					continue
				}
				if _, seen := ids[id]; seen {
					continue
				}
				ids[id] = struct{}{}

				docAttributes := j.harvest(m, indexName, doc, nextInput)

				if j.opts.includeHits {
					if err := j.appendHit(doc, docAttributes); err != nil {
						return err
					}
				}
			}
		}

		newValues := 0
		for _, attributeName := range sortedAttributeNames(nextInput) {
			harvested := nextInput[attributeName]
			attribute := j.attributes[attributeName]
			if attribute == nil {
				attribute = NewAttribute(attributeName, harvested.Type())
				j.attributes[attributeName] = attribute
			}
			for _, v := range harvested.Values() {
				if attribute.Add(v) {
					newValues++
				}
			}
		}
		j.opts.metrics.RecordHop(j.hop, newValues)

		if j.opts.maxHops > -1 && j.hop >= j.opts.maxHops {
			return nil
		}
		if newValues == 0 {
			return nil
		}
		j.hop++
	}
}

// harvest extracts attribute values from one source document. Each index
// field reads the document at its path, falling back to the parent path for
// multi-fields, which are not present in _source. Harvesting always runs so
// that traversal converges regardless of the output flags.
func (j *Job) harvest(m *model.Model, indexName string, doc map[string]any, nextInput map[string]*Attribute) map[string]any {
	docAttributes := map[string]any{}
	source, _ := doc["_source"].(map[string]any)
	if source == nil {
		return docAttributes
	}

	idx := m.Indices()[indexName]
	for _, fieldName := range idx.FieldNames() {
		field := idx.Fields()[fieldName]
		attributeName := field.Attribute()
		def, ok := m.Attributes()[attributeName]
		if !ok {
			continue
		}

		leaf, found := lookupPointer(source, field.Path())
		if !found && field.PathParent() != "" {
			leaf, found = lookupPointer(source, field.PathParent())
		}
		if !found {
			continue
		}
		docAttributes[attributeName] = leaf

		harvested := nextInput[attributeName]
		if harvested == nil {
			harvested = NewAttribute(attributeName, def.Type())
			nextInput[attributeName] = harvested
		}
		for _, scalar := range leafScalars(leaf) {
			v, err := NewValue(def.Type(), scalar)
			if err != nil {
				continue
			}
			harvested.Add(v)
		}
	}
	return docAttributes
}

// appendHit serializes the hit envelope: the document without its _score,
// stamped with the hop it was found in, optionally carrying the harvested
// attributes and optionally stripped of its _source.
func (j *Job) appendHit(doc map[string]any, docAttributes map[string]any) error {
	envelope := make(map[string]any, len(doc)+2)
	for k, v := range doc {
		envelope[k] = v
	}
	delete(envelope, "_score")
	envelope["_hop"] = j.hop
	if j.opts.includeAttributes {
		envelope["_attributes"] = docAttributes
	}
	if !j.opts.includeSource {
		delete(envelope, "_source")
	}

	b, err := j.opts.codec.Marshal(envelope)
	if err != nil {
		return err
	}
	j.hits = append(j.hits, string(b))
	return nil
}

// logQuery appends one query log record, with the hit documents stripped
// from the logged response.
func (j *Job) logQuery(indexName string, plan *queryPlan, response map[string]any) error {
	logged := make(map[string]any, len(response))
	for k, v := range response {
		logged[k] = v
	}
	if hitsObj, ok := logged["hits"].(map[string]any); ok {
		trimmed := make(map[string]any, len(hitsObj))
		for k, v := range hitsObj {
			trimmed[k] = v
		}
		delete(trimmed, "hits")
		logged["hits"] = trimmed
	}

	// filterTree is a self-referential map type, which go-json cannot
	// encode; it is encoded with encoding/json and embedded as raw JSON.
	tree, err := json.Marshal(plan.tree)
	if err != nil {
		return err
	}

	record := map[string]any{
		"_hop":   j.hop,
		"_index": indexName,
		"resolvers": map[string]any{
			"list": plan.resolvers,
			"tree": json.RawMessage(tree),
		},
		"search": map[string]any{
			"request":  json.RawMessage(plan.body),
			"response": logged,
		},
	}
	b, err := j.opts.codec.Marshal(record)
	if err != nil {
		return err
	}
	j.queries = append(j.queries, string(b))
	return nil
}

// responseDocs extracts hits.hits from a decoded search response.
func responseDocs(response map[string]any) []map[string]any {
	hitsObj, ok := response["hits"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := hitsObj["hits"].([]any)
	if !ok {
		return nil
	}
	docs := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if doc, ok := d.(map[string]any); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// lookupPointer walks a decoded JSON object along a JSON pointer.
func lookupPointer(node any, pointer string) (any, bool) {
	if pointer == "" || pointer == "/" {
		return node, true
	}
	for _, segment := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// leafScalars flattens a harvested leaf into scalar candidates: a scalar
// yields itself, an array yields its scalar elements, an object yields
// nothing.
func leafScalars(leaf any) []any {
	switch x := leaf.(type) {
	case []any:
		scalars := make([]any, 0, len(x))
		for _, e := range x {
			switch e.(type) {
			case []any, map[string]any:
			default:
				scalars = append(scalars, e)
			}
		}
		return scalars
	case map[string]any:
		return nil
	default:
		return []any{leaf}
	}
}

func sortedIDs(ids map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
