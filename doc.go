// Package entigo provides iterative entity resolution over document stores.
//
// Given a set of seed attribute values (names, phones, emails, ...) and an
// entity model describing how attributes match index fields, a Job repeatedly
// queries the configured search backend, harvests new attribute values from
// each matched document, and re-queries with the enlarged value set until no
// new values are discovered or the hop limit is reached. The result is the
// union of documents transitively linked to the seed. Resolution is purely
// set-theoretic: no scoring, no ranking, no probabilistic matching.
//
// # Quick Start
//
//	m, err := model.Parse(modelDoc)
//	if err != nil {
//	    return err
//	}
//	input, err := entigo.NewInput(m, map[string]any{
//	    "name": "Alice Jones",
//	    "phone": []any{"555-123-4567"},
//	})
//	if err != nil {
//	    return err
//	}
//	job := entigo.NewJob(be, input,
//	    entigo.WithMaxHops(10),
//	    entigo.WithIncludeQueries(true),
//	)
//	envelope, err := job.Run(ctx)
//
// The returned envelope is a JSON document:
//
//	{"took":12,"hits":{"total":2,"hits":[...]},"queries":[...]}
//
// # Backends
//
// The engine talks to an opaque backend.Backend. Built-in implementations:
//
//   - backend/elastic: HTTP client for Elasticsearch-compatible servers
//   - backend/memory: embedded in-memory index for tests and small data sets
//
// # Models
//
// Entity models are parsed and validated by the model package and can be
// persisted through modelstore (memory, local filesystem, S3, MinIO, with an
// optional caching wrapper).
//
// # Concurrency
//
// A Job is single-threaded and not safe for concurrent reuse. Distinct jobs
// share no mutable state; RunAll executes a batch of them in parallel.
//
// Two runs with identical inputs and identical backend behavior produce
// byte-identical envelopes (modulo the took duration): indices are visited in
// lexicographic order, documents in response order, and all emitted objects
// serialize with sorted keys.
package entigo
