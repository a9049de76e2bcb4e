// Package memory provides in-process adapter implementations used when no
// external backing service is configured.
package memory

import (
	"context"
	"sync"
)

// KeyValueStore is a process-local key-value store. Data does not survive
// a restart; it stands in for MongoDB in development and tests.
type KeyValueStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewKeyValueStore creates an empty in-memory store
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{data: make(map[string]string)}
}

// Get returns the value for key. A missing key yields "" with no error.
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

// Set writes value under key, replacing any previous value
func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
