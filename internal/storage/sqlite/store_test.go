package sqlite

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/julianstephens/healthchain/internal/storage"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoad_NotInitialized(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := s.Load(); !errors.Is(err, storage.ErrNotInitialized) {
		t.Errorf("Load() = %v, want ErrNotInitialized", err)
	}
}

func TestGetBeforeLoad(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "x.db"))
	if _, _, err := s.Get("user"); !errors.Is(err, storage.ErrNotLoaded) {
		t.Errorf("Get() = %v, want ErrNotLoaded", err)
	}
}

func TestSetGetRemove(t *testing.T) {
	s := setupStore(t)

	if _, ok, err := s.Get("user"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := s.Set("user", `{"id":"u1"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("user", `{"id":"u2"}`); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	v, ok, err := s.Get("user")
	if err != nil || !ok || v != `{"id":"u2"}` {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}
	if err := s.Remove("user"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := s.Get("user"); ok {
		t.Error("expected key to be removed")
	}
}

func TestWrite_Atomic(t *testing.T) {
	s := setupStore(t)

	err := s.Write(
		storage.Op{Key: "wallet", Value: "w"},
		storage.Op{Key: "transactions", Value: "t"},
		storage.Op{Key: "meals", Delete: true},
	)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if want := []string{"transactions", "wallet"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	// A failing op rolls back the ops before it.
	s.db.Exec("DROP TABLE kv")
	s.db.Exec("CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL CHECK (value <> 'bad'), updated_at TEXT)")
	if err := s.Write(storage.Op{Key: "a", Value: "ok"}, storage.Op{Key: "b", Value: "bad"}); err == nil {
		t.Fatal("expected constraint failure")
	}
	if _, ok, _ := s.Get("a"); ok {
		t.Error("first op should have been rolled back")
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s := NewStore(path)
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := s.Set("rewards", "[]"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Close()

	s2 := NewStore(path)
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer s2.Close()
	if v, ok, _ := s2.Get("rewards"); !ok || v != "[]" {
		t.Errorf("Get() after reopen = %q, %v", v, ok)
	}
}
