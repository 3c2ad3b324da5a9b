// Package memory provides an in-memory blob store for tests.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/blob"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Store keeps blobs in a map.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// New creates an empty in-memory blob store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put stores a copy of data under key.
func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) error {
	if err := blob.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.types[key] = contentType
	return nil
}

// Get returns a copy of the object at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the object at key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

// ContentType returns the content type recorded for key.
func (s *Store) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[key]
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
