package storage

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory ObjectStorage for tests and local runs
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewMemoryStorage creates an empty in-memory object store. URLs are
// issued under baseURL, e.g. "http://localhost/files".
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

func (s *MemoryStorage) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("ads/%s%s", uuid.New().String(), path.Ext(name))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *MemoryStorage) PublicURL(storagePath string) string {
	return s.baseURL + "/" + storagePath
}

func (s *MemoryStorage) Remove(ctx context.Context, storagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storagePath)
	return nil
}

// Object returns a stored blob, for assertions in tests
func (s *MemoryStorage) Object(storagePath string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storagePath]
	return data, ok
}

// Len reports how many objects are stored
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
