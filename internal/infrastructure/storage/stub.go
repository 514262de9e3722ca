package storage

import (
	"context"
	"errors"
	"sync"
)

// StubBlobStorage is an in-memory BlobStorage for development and tests
type StubBlobStorage struct {
	// BaseURL prefixes the URLs returned by Upload
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewStubBlobStorage creates an empty in-memory receipt store
func NewStubBlobStorage() *StubBlobStorage {
	return &StubBlobStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

var _ BlobStorage = (*StubBlobStorage)(nil)

// Upload keeps the object in memory and returns a deterministic URL
func (s *StubBlobStorage) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return s.BaseURL + "/" + key, nil
}

// Delete removes the object; absent keys succeed
func (s *StubBlobStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Has reports whether an object is stored under the key
func (s *StubBlobStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}
