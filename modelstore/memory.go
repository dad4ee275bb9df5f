package modelstore

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/entigo/model"
)

// MemoryStore is an in-memory Store implementation for testing and
// embedding. Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates a new in-memory model store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

// Get loads and parses the model for the entity type.
func (m *MemoryStore) Get(_ context.Context, entityType string) (*model.Model, error) {
	m.mu.RLock()
	doc, ok := m.docs[entityType]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return model.Parse(doc)
}

// Put validates and stores a model document.
func (m *MemoryStore) Put(_ context.Context, entityType string, doc []byte) error {
	if err := ValidateEntityType(entityType); err != nil {
		return err
	}
	if err := validateDoc(doc); err != nil {
		return err
	}
	copied := make([]byte, len(doc))
	copy(copied, doc)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[entityType] = copied
	return nil
}

// Delete removes the model for the entity type.
func (m *MemoryStore) Delete(_ context.Context, entityType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[entityType]; !ok {
		return ErrNotFound
	}
	delete(m.docs, entityType)
	return nil
}

// List returns the stored entity types in lexicographic order.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
