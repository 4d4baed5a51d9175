package memory

import (
	"encoding/json"
	"sort"
	"sync"
)

// InMemoryStore is a concurrency-safe map-backed Store. Contents do not
// survive process restarts.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]interface{}
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]map[string]map[string]interface{}),
	}
}

// deepCopy round-trips a record through JSON so callers never alias store
// internals.
func deepCopy(v map[string]interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

// Get returns the record for a namespace/key pair.
func (s *InMemoryStore) Get(namespace, key string) (map[string]interface{}, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, false, nil
	}
	record, ok := ns[key]
	if !ok {
		return nil, false, nil
	}
	return deepCopy(record), true, nil
}

// Put stores a record.
func (s *InMemoryStore) Put(namespace, key string, value map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]map[string]interface{})
		s.data[namespace] = ns
	}
	ns[key] = deepCopy(value)
	return nil
}

// Delete removes a record; deleting an absent key is not an error.
func (s *InMemoryStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

// Keys lists the keys of a namespace in sorted order.
func (s *InMemoryStore) Keys(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
