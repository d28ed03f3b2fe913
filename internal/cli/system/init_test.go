package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/identity"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/storage"
	"github.com/julianstephens/healthchain/internal/storage/sqlite"
)

func newInitContext(t *testing.T, dbPath string) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() { _ = store.Close() })
	return cli.NewContext(store, identity.NewMock(0), nil)
}

func TestInitCmd_Fresh(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "healthchain.db")
	ctx := newInitContext(t, dbPath)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestInitCmd_Force(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthchain.db")
	ctx := newInitContext(t, dbPath)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := storage.Put(ctx.Store, constants.KeyMeals, []models.Meal{{ID: "m1", Name: "Oats"}}); err != nil {
		t.Fatalf("Put() = %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	if _, ok, err := ctx.Store.Get(constants.KeyMeals); err != nil || ok {
		t.Errorf("records survived reset: ok=%v err=%v", ok, err)
	}
}

func TestInitCmd_ForceKeyValueStore(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := cli.NewContext(store, identity.NewMock(0), nil)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	if err := store.Set("wallet", "{}"); err != nil {
		t.Fatalf("Set() = %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after reset = %v, want none", keys)
	}
}

func TestInitCmd_Source(t *testing.T) {
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "source.json")
	src := storage.NewJSONStore(srcPath)
	if err := src.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	meals := []models.Meal{{ID: "m1", Name: "Oats"}, {ID: "m2", Name: "Salad"}}
	if err := storage.Put(src, constants.KeyMeals, meals); err != nil {
		t.Fatalf("Put() = %v", err)
	}
	if err := storage.Put(src, constants.KeyWallet, models.Wallet{ID: "w1"}); err != nil {
		t.Fatalf("Put() = %v", err)
	}
	_ = src.Close()

	ctx := newInitContext(t, filepath.Join(dir, "dest.db"))
	if err := (&InitCmd{Source: srcPath}).Run(ctx); err != nil {
		t.Fatalf("init --source failed: %v", err)
	}

	var got []models.Meal
	found, err := storage.Fetch(ctx.Store, constants.KeyMeals, &got)
	if err != nil || !found {
		t.Fatalf("Fetch() = %v, %v", found, err)
	}
	if len(got) != 2 || got[1].Name != "Salad" {
		t.Errorf("copied meals = %+v", got)
	}
}

func TestInitCmd_ForceSameSource(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthchain.db")
	ctx := newInitContext(t, dbPath)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if err := (&InitCmd{Force: true, Source: dbPath}).Run(ctx); err == nil {
		t.Error("expected error when source and destination are the same")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database was deleted: %v", err)
	}
}
