package storage

import (
	"sort"
	"sync"
)

// MemoryStore is a non-durable Provider for tests and throwaway sessions.
// FailWrites makes every Write fail with the given error, which lets
// callers exercise their persistence error paths.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]string
	FailWrites error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]string)}
}

func (s *MemoryStore) Init() error  { return nil }
func (s *MemoryStore) Load() error  { return nil }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	return s.Write(Op{Key: key, Value: value})
}

func (s *MemoryStore) Remove(key string) error {
	return s.Write(Op{Key: key, Delete: true})
}

func (s *MemoryStore) Write(ops ...Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for _, op := range ops {
		if op.Delete {
			delete(s.records, op.Key)
		} else {
			s.records[op.Key] = op.Value
		}
	}
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) GetConfigPath() string {
	return "memory"
}
