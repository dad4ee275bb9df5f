// Package backend defines the search backend interface the traversal engine
// queries.
//
// # Built-in Implementations
//
//   - elastic.Client: HTTP client for Elasticsearch-compatible servers
//   - memory.Backend: embedded in-memory index for tests and small data sets
//
// # Custom Implementations
//
// Implement the Backend interface to resolve entities against any document
// store that can evaluate the emitted boolean query documents.
package backend

import "context"

// Backend executes one search against a named index.
//
// Implementations must faithfully forward the query body and return a JSON
// response of the shape {"hits":{"hits":[{"_id":...,"_source":...},...]}}.
// Implementations must be safe for sequential calls from a job; they are
// shared across jobs and should be safe for concurrent use.
type Backend interface {
	Search(ctx context.Context, index string, body []byte) ([]byte, error)
}
