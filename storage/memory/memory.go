// Package memory provides a thread-safe in-memory implementation of storage.Store.
package memory

import (
	"sort"
	"sync"

	"github.com/ferrisk/beacon/storage"
)

// Store is a thread-safe in-memory implementation of storage.Store.
// Suitable for testing and for running the platform without persistence.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{data: make(map[string]map[string][]byte)}
}

func cloneBytes(v []byte) []byte {
	return append([]byte(nil), v...)
}

func (s *Store) Put(collection, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[collection]; !ok {
		s.data[collection] = make(map[string][]byte)
	}
	s.data[collection][id] = cloneBytes(value)
	return nil
}

func (s *Store) Get(collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.data[collection]
	if !ok {
		return nil, storage.ErrNotFound
	}
	value, ok := records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBytes(value), nil
}

func (s *Store) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.data[collection]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := records[id]; !ok {
		return storage.ErrNotFound
	}
	delete(records, id)
	return nil
}

func (s *Store) List(collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) ForEach(collection string, fn func(id string, value []byte) bool) error {
	// Snapshot under the read lock so fn may call back into the store.
	s.mu.RLock()
	records := s.data[collection]
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([][]byte, len(ids))
	for i, id := range ids {
		values[i] = cloneBytes(records[id])
	}
	s.mu.RUnlock()

	for i, id := range ids {
		if !fn(id, values[i]) {
			return nil
		}
	}
	return nil
}
