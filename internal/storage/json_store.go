package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type document struct {
	Version int               `json:"version"`
	Records map[string]string `json:"records"`
}

// JSONStore keeps every record in one JSON document on disk. Writes go to
// a temp file that is renamed over the original, so a crash leaves either
// the old or the new document.
type JSONStore struct {
	path string
	lock *Lockfile

	mu  sync.RWMutex
	doc *document
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
		lock: NewLockfile(configPath),
	}
}

func (s *JSONStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	if err := s.lock.Acquire(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &document{Version: SchemaVersion, Records: make(map[string]string)}
	if err := s.save(doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Version > SchemaVersion {
		return fmt.Errorf("storage version (%d) is newer than supported version (%d) - please upgrade the application", doc.Version, SchemaVersion)
	}
	if doc.Records == nil {
		doc.Records = make(map[string]string)
	}

	if err := s.lock.Acquire(); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	s.doc = nil
	s.mu.Unlock()
	return s.lock.Release()
}

func (s *JSONStore) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func (s *JSONStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return "", false, ErrNotLoaded
	}
	v, ok := s.doc.Records[key]
	return v, ok, nil
}

func (s *JSONStore) Set(key, value string) error {
	return s.Write(Op{Key: key, Value: value})
}

func (s *JSONStore) Remove(key string) error {
	return s.Write(Op{Key: key, Delete: true})
}

func (s *JSONStore) Write(ops ...Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotLoaded
	}

	next := &document{Version: SchemaVersion, Records: make(map[string]string, len(s.doc.Records)+len(ops))}
	for k, v := range s.doc.Records {
		next.Records[k] = v
	}
	for _, op := range ops {
		if op.Delete {
			delete(next.Records, op.Key)
		} else {
			next.Records[op.Key] = op.Value
		}
	}

	if err := s.save(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *JSONStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	keys := make([]string, 0, len(s.doc.Records))
	for k := range s.doc.Records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}
