// Package minio implements a model store on MinIO and S3-compatible object
// stores.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/entigo/model"
	"github.com/hupe1980/entigo/modelstore"
)

// Store implements modelstore.Store for MinIO.
type Store struct {
	client      *minio.Client
	bucket      string
	prefix      string
	compression modelstore.Compression
}

// Option configures a Store.
type Option func(*Store)

// WithCompression stores documents through the given compression codec.
func WithCompression(c modelstore.Compression) Option {
	return func(s *Store) {
		if c != nil {
			s.compression = c
		}
	}
}

// NewStore creates a MinIO model store.
// rootPrefix is prepended to all keys (e.g. "models/").
func NewStore(client *minio.Client, bucket, rootPrefix string, optFns ...Option) *Store {
	s := &Store{
		client:      client,
		bucket:      bucket,
		prefix:      rootPrefix,
		compression: modelstore.None{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	return s
}

func (s *Store) key(entityType string) string {
	return path.Join(s.prefix, entityType+".json"+s.compression.Suffix())
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

// Get loads and parses the model for the entity type.
func (s *Store) Get(ctx context.Context, entityType string) (*model.Model, error) {
	if err := modelstore.ValidateEntityType(entityType); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(entityType), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, modelstore.ErrNotFound
		}
		return nil, err
	}
	doc, err := s.compression.Decompress(data)
	if err != nil {
		return nil, err
	}
	return model.Parse(doc)
}

// Put validates and stores a model document.
func (s *Store) Put(ctx context.Context, entityType string, doc []byte) error {
	if err := modelstore.ValidateEntityType(entityType); err != nil {
		return err
	}
	if _, err := model.Parse(doc); err != nil {
		return err
	}
	data, err := s.compression.Compress(doc)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(entityType), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

// Delete removes the model for the entity type.
func (s *Store) Delete(ctx context.Context, entityType string) error {
	if err := modelstore.ValidateEntityType(entityType); err != nil {
		return err
	}
	_, err := s.client.StatObject(ctx, s.bucket, s.key(entityType), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return modelstore.ErrNotFound
		}
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, s.key(entityType), minio.RemoveObjectOptions{})
}

// List returns the stored entity types in lexicographic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		name = strings.TrimPrefix(name, "/")
		name = strings.TrimSuffix(name, s.compression.Suffix())
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}
