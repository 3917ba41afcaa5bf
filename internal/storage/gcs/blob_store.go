// Package gcs provides an artifact store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	appstorage "github.com/JakeFAU/annotation-tables/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore writes table artifacts to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed artifact store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// BucketFromPath extracts the bucket name from a gs:// location.
func BucketFromPath(path string) (string, error) {
	if !appstorage.IsGCSPath(path) {
		return "", fmt.Errorf("not a gs:// path: %q", path)
	}
	rest := strings.TrimPrefix(path, appstorage.GCSScheme)
	bucket, _, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", fmt.Errorf("missing bucket in %q", path)
	}
	return bucket, nil
}

// PutObject uploads data to the configured bucket and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	object, err := s.objectName(path)
	if err != nil {
		return "", err
	}
	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

// Exists reports whether any object lives under the artifact prefix.
func (s *BlobStore) Exists(ctx context.Context, path string) (bool, error) {
	prefix, err := s.prefix(path)
	if err != nil {
		return false, err
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	if _, err := it.Next(); err != nil {
		if errors.Is(err, iterator.Done) {
			return false, nil
		}
		return false, fmt.Errorf("list objects: %w", err)
	}
	return true, nil
}

// RemoveAll deletes every object under the artifact prefix.
func (s *BlobStore) RemoveAll(ctx context.Context, path string) error {
	prefix, err := s.prefix(path)
	if err != nil {
		return err
	}
	bkt := s.client.Bucket(s.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete object %s: %w", attrs.Name, err)
		}
	}
}

func (s *BlobStore) objectName(path string) (string, error) {
	bucket, err := BucketFromPath(path)
	if err != nil {
		return "", err
	}
	if bucket != s.bucket {
		return "", fmt.Errorf("path %q is outside bucket %q", path, s.bucket)
	}
	object := strings.TrimPrefix(path, appstorage.GCSScheme+bucket+"/")
	if object == "" || object == path {
		return "", fmt.Errorf("object name is required in %q", path)
	}
	return object, nil
}

// prefix turns an artifact location into a listing prefix ending with a slash.
func (s *BlobStore) prefix(path string) (string, error) {
	object, err := s.objectName(strings.TrimRight(path, "/"))
	if err != nil {
		return "", err
	}
	return object + "/", nil
}
