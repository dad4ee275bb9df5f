package modelstore

import (
	"context"
	"sync"

	"github.com/hupe1980/entigo/model"
)

// CachingStore wraps a Store with a read-through cache of parsed models.
// Writes and deletes invalidate the cached entry. Thread-safe.
//
// The cache assumes this process is the only writer; external writes to the
// inner store are not observed until the entry is invalidated.
type CachingStore struct {
	inner Store
	mu    sync.RWMutex
	cache map[string]*model.Model
}

// NewCachingStore creates a caching wrapper around the inner store.
func NewCachingStore(inner Store) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: map[string]*model.Model{},
	}
}

// Get returns the cached model or loads it from the inner store.
func (s *CachingStore) Get(ctx context.Context, entityType string) (*model.Model, error) {
	s.mu.RLock()
	m, ok := s.cache[entityType]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := s.inner.Get(ctx, entityType)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[entityType] = m
	s.mu.Unlock()
	return m, nil
}

// Put writes through to the inner store and invalidates the cached entry.
func (s *CachingStore) Put(ctx context.Context, entityType string, doc []byte) error {
	s.mu.Lock()
	delete(s.cache, entityType)
	s.mu.Unlock()
	return s.inner.Put(ctx, entityType, doc)
}

// Delete deletes from the inner store and invalidates the cached entry.
func (s *CachingStore) Delete(ctx context.Context, entityType string) error {
	s.mu.Lock()
	delete(s.cache, entityType)
	s.mu.Unlock()
	return s.inner.Delete(ctx, entityType)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

// Invalidate drops a cached entry, or the whole cache when entityType is
// empty.
func (s *CachingStore) Invalidate(entityType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entityType == "" {
		s.cache = map[string]*model.Model{}
		return
	}
	delete(s.cache, entityType)
}
