// Package storage defines the interfaces for a table artifact store.
// This abstraction allows the persistence engine to be independent of a specific
// storage implementation (e.g., Google Cloud Storage or the local filesystem).
package storage

import (
	"context"
	"io"
	"strings"
)

// Provider defines the common interface for an artifact store.
// Paths are full artifact locations (a filesystem path or a gs:// URI), and
// an artifact is the set of objects sharing a path prefix.
type Provider interface {
	// PutObject writes one object and returns its URI.
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
	// Exists reports whether any object lives under the artifact path.
	Exists(ctx context.Context, path string) (bool, error)
	// RemoveAll deletes every object under the artifact path. Missing paths are not an error.
	RemoveAll(ctx context.Context, path string) error
}

// GCSScheme prefixes artifact locations stored in Google Cloud Storage.
const GCSScheme = "gs://"

// IsGCSPath reports whether the location addresses a GCS bucket.
func IsGCSPath(path string) bool {
	return strings.HasPrefix(path, GCSScheme)
}

// JoinPath appends an object name to an artifact path without collapsing URI schemes.
func JoinPath(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + strings.TrimLeft(name, "/")
}
