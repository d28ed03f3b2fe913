package postgres

import (
	"os"
	"testing"

	"github.com/julianstephens/healthchain/internal/storage"
)

// TestStore_Integration tests PostgreSQL store with a real database
// Set POSTGRES_TEST_URL environment variable to run this test
// Example: POSTGRES_TEST_URL="postgres://healthchain_user@localhost:5432/healthchain_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	store := New(connStr)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	t.Cleanup(func() {
		store.db.Exec("DELETE FROM kv WHERE key LIKE 'it_%'")
	})

	t.Run("SetGet", func(t *testing.T) {
		if err := store.Set("it_user", `{"id":"u1"}`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set("it_user", `{"id":"u2"}`); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		v, ok, err := store.Get("it_user")
		if err != nil || !ok || v != `{"id":"u2"}` {
			t.Errorf("Get() = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("WriteBatch", func(t *testing.T) {
		err := store.Write(
			storage.Op{Key: "it_wallet", Value: "w"},
			storage.Op{Key: "it_transactions", Value: "t"},
			storage.Op{Key: "it_user", Delete: true},
		)
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, ok, _ := store.Get("it_user"); ok {
			t.Error("expected it_user to be deleted")
		}
		if v, ok, _ := store.Get("it_wallet"); !ok || v != "w" {
			t.Errorf("Get(it_wallet) = %q, %v", v, ok)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		other := New(connStr)
		if err := other.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		defer other.Close()
		if _, ok, _ := other.Get("it_transactions"); !ok {
			t.Error("expected record visible from a second connection")
		}
	})
}
