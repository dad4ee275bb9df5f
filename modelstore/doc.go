// Package modelstore provides persistence for entity models.
//
// Store is the interface for reading and writing model documents by entity
// type. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory map, for tests and embedding
//   - LocalStore: one document per entity type on the local filesystem
//   - CachingStore: read-through cache around any Store
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible object stores
//
// Stored documents may be compressed; see Compression.
package modelstore
