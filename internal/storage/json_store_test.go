package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func setupJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "healthchain.json")
	store := NewJSONStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestJSONStore_InitTwice(t *testing.T) {
	store := setupJSONStore(t)
	again := NewJSONStore(store.GetConfigPath())
	if err := again.Init(); err == nil {
		t.Error("second Init() succeeded, want already initialized error")
	}
}

func TestJSONStore_LoadMissing(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "none.json"))
	if err := store.Load(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Load() error = %v, want ErrNotInitialized", err)
	}
}

func TestJSONStore_NotLoaded(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "x.json"))
	if _, _, err := store.Get("user"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Get() error = %v, want ErrNotLoaded", err)
	}
	if err := store.Set("user", "{}"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Set() error = %v, want ErrNotLoaded", err)
	}
}

func TestJSONStore_Persistence(t *testing.T) {
	store := setupJSONStore(t)

	if err := store.Write(
		Op{Key: "meals", Value: "[]"},
		Op{Key: "todayMetrics", Value: `{"calories":0}`},
	); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Remove("meals"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := NewJSONStore(store.GetConfigPath())
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer reopened.Close()

	keys, err := reopened.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"todayMetrics"}) {
		t.Errorf("Keys() = %v, want [todayMetrics]", keys)
	}
	v, ok, err := reopened.Get("todayMetrics")
	if err != nil || !ok || v != `{"calories":0}` {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}
}

func TestJSONStore_FailedWriteKeepsState(t *testing.T) {
	store := setupJSONStore(t)
	if err := store.Set("wallet", "w1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Replace the temp file path with a directory so the write fails.
	if err := os.Mkdir(store.GetConfigPath()+".tmp", 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := store.Write(Op{Key: "wallet", Value: "w2"}, Op{Key: "transactions", Value: "[]"}); err == nil {
		t.Fatal("Write() succeeded, want error")
	}

	v, _, _ := store.Get("wallet")
	if v != "w1" {
		t.Errorf("Get(wallet) = %q after failed write, want w1", v)
	}
	if _, ok, _ := store.Get("transactions"); ok {
		t.Error("partial write leaked into memory")
	}
}
