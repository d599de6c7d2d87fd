package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore - credentialsFile이 비어 있으면 ADC(Application Default Credentials) 사용
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket must not be empty")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: listing gs://%s/%s: %w", s.bucket, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs: gs://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("gcs: opening gs://%s/%s: %w", s.bucket, key, err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: reading gs://%s/%s: %w", s.bucket, key, err)
	}
	return body, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: writing gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: closing writer for gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
