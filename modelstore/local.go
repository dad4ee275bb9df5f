package modelstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/entigo/model"
)

// LocalStore keeps one model document per entity type under a root
// directory, named "<entityType>.json" plus the compression suffix. Writes
// are atomic: the document lands in a temp file that is renamed into place.
type LocalStore struct {
	root        string
	compression Compression
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithCompression stores documents through the given compression codec.
func WithCompression(c Compression) LocalOption {
	return func(s *LocalStore) {
		if c != nil {
			s.compression = c
		}
	}
}

// NewLocalStore creates a store rooted at the given directory, creating it
// if needed.
func NewLocalStore(root string, optFns ...LocalOption) (*LocalStore, error) {
	s := &LocalStore{root: root, compression: None{}}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) path(entityType string, c Compression) string {
	return filepath.Join(s.root, entityType+".json"+c.Suffix())
}

// read locates the document under any known compression suffix; stored
// objects are self-describing by suffix, so the store can be reopened with a
// different configured codec.
func (s *LocalStore) read(entityType string) ([]byte, error) {
	for _, name := range []string{s.compression.Name(), "none", "gzip", "lz4"} {
		c, _ := CompressionByName(name)
		data, err := os.ReadFile(s.path(entityType, c))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return c.Decompress(data)
	}
	return nil, ErrNotFound
}

// Get loads and parses the model for the entity type.
func (s *LocalStore) Get(_ context.Context, entityType string) (*model.Model, error) {
	if err := ValidateEntityType(entityType); err != nil {
		return nil, err
	}
	doc, err := s.read(entityType)
	if err != nil {
		return nil, err
	}
	return model.Parse(doc)
}

// Put validates and stores a model document.
func (s *LocalStore) Put(_ context.Context, entityType string, doc []byte) error {
	if err := ValidateEntityType(entityType); err != nil {
		return err
	}
	if err := validateDoc(doc); err != nil {
		return err
	}
	data, err := s.compression.Compress(doc)
	if err != nil {
		return err
	}

	target := s.path(entityType, s.compression)
	tmp, err := os.CreateTemp(s.root, entityType+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Delete removes the model for the entity type, whatever its compression.
func (s *LocalStore) Delete(_ context.Context, entityType string) error {
	if err := ValidateEntityType(entityType); err != nil {
		return err
	}
	deleted := false
	for _, name := range []string{"none", "gzip", "lz4"} {
		c, _ := CompressionByName(name)
		err := os.Remove(s.path(entityType, c))
		if err == nil {
			deleted = true
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// List returns the stored entity types in lexicographic order.
func (s *LocalStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		name = strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".lz4")
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		name = strings.TrimSuffix(name, ".json")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
