// Package s3 implements a model store on Amazon S3.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/entigo/model"
	"github.com/hupe1980/entigo/modelstore"
)

// Store implements modelstore.Store for S3.
type Store struct {
	client      *s3.Client
	uploader    *manager.Uploader
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

// NewStore creates an S3 model store.
// rootPrefix is prepended to all keys (e.g. "models/").
func NewStore(client *s3.Client, bucket, rootPrefix string, optFns ...Option) *Store {
	s := &Store{
		client:      client,
		uploader:    manager.NewUploader(client),
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

// NewFromDefaultConfig creates a store using the default AWS credential and
// region chain.
func NewFromDefaultConfig(ctx context.Context, bucket, rootPrefix string, optFns ...Option) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix, optFns...), nil
}

func (s *Store) key(entityType string) string {
	return path.Join(s.prefix, entityType+".json"+s.compression.Suffix())
}

// Get loads and parses the model for the entity type.
func (s *Store) Get(ctx context.Context, entityType string) (*model.Model, error) {
	if err := modelstore.ValidateEntityType(entityType); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(entityType)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, modelstore.ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
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
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(entityType)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes the model for the entity type.
func (s *Store) Delete(ctx context.Context, entityType string) error {
	if err := modelstore.ValidateEntityType(entityType); err != nil {
		return err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(entityType)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return modelstore.ErrNotFound
		}
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(entityType)),
	})
	return err
}

// List returns the stored entity types in lexicographic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			name = strings.TrimPrefix(name, "/")
			name = strings.TrimSuffix(name, s.compression.Suffix())
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			names = append(names, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}
