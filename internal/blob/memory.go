package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements ObjectStore in memory for local development and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an object. Used by tests and the local upload path.
func (s *MemoryStore) Put(path string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
}

func (s *MemoryStore) Download(_ context.Context, path string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, "", fmt.Errorf("object %s does not exist", path)
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}
