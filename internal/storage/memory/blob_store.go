// Package memory stores table artifacts in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// BlobStore stores objects in-memory and returns pseudo URIs.
type BlobStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	puts    int
	removes int
}

// NewBlobStore creates a new in-memory artifact store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// PutObject persists the content and returns a URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	byteData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), byteData...)
	s.puts++
	return fmt.Sprintf("memory://%s", path), nil
}

// Exists reports whether any object is stored at or under path.
func (s *BlobStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key := range s.data {
		if underPrefix(key, path) {
			return true, nil
		}
	}
	return false, nil
}

// RemoveAll deletes every object at or under path.
func (s *BlobStore) RemoveAll(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.data {
		if underPrefix(key, path) {
			delete(s.data, key)
		}
	}
	s.removes++
	return nil
}

// Object returns a copy of the stored bytes.
func (s *BlobStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Paths lists stored object paths in sorted order.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for key := range s.data {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Puts returns the number of PutObject calls.
func (s *BlobStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// Removes returns the number of RemoveAll calls.
func (s *BlobStore) Removes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.removes
}

func underPrefix(key, path string) bool {
	path = strings.TrimRight(path, "/")
	return key == path || strings.HasPrefix(key, path+"/")
}
