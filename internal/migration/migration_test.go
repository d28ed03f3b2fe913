package migration

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFS(files map[string]string) fstest.MapFS {
	m := fstest.MapFS{}
	for name, content := range files {
		m[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return m
}

func TestGetCurrentVersion(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, testFS(map[string]string{"001_test.sql": "CREATE TABLE test (id INTEGER);"}), DriverSQLite)

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	version, err = runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	db := setupTestDB(t)

	t.Run("sorted and filtered", func(t *testing.T) {
		runner := NewRunner(db, testFS(map[string]string{
			"002_second.sql": "SELECT 2;",
			"001_first.sql":  "SELECT 1;",
			"README.md":      "ignored",
		}), DriverSQLite)

		migrations, err := runner.ReadMigrationFiles()
		if err != nil {
			t.Fatalf("ReadMigrationFiles failed: %v", err)
		}
		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != 1 || migrations[0].Name != "first" {
			t.Errorf("unexpected first migration: %+v", migrations[0])
		}
	})

	t.Run("invalid filename", func(t *testing.T) {
		runner := NewRunner(db, testFS(map[string]string{"init.sql": "SELECT 1;"}), DriverSQLite)
		if _, err := runner.ReadMigrationFiles(); err == nil {
			t.Error("expected error for filename without version")
		}
	})

	t.Run("duplicate version", func(t *testing.T) {
		runner := NewRunner(db, testFS(map[string]string{
			"001_a.sql": "SELECT 1;",
			"01_b.sql":  "SELECT 1;",
		}), DriverSQLite)
		_, err := runner.ReadMigrationFiles()
		if err == nil || !strings.Contains(err.Error(), "duplicate") {
			t.Errorf("expected duplicate version error, got %v", err)
		}
	})
}

func TestApplyMigrations(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, testFS(map[string]string{
		"001_kv.sql":    "CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL);",
		"002_index.sql": "CREATE INDEX kv_value ON kv(value);",
	}), DriverSQLite)

	var logs []string
	applied, err := runner.ApplyMigrations(func(msg string) { logs = append(logs, msg) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 applied, got %d", applied)
	}
	if len(logs) == 0 {
		t.Error("expected progress messages")
	}

	pending, err := runner.Pending()
	if err != nil || pending != 0 {
		t.Errorf("Pending() = %d, %v; want 0", pending, err)
	}

	applied, err = runner.ApplyMigrations(nil)
	if err != nil || applied != 0 {
		t.Errorf("second ApplyMigrations = %d, %v; want 0, nil", applied, err)
	}
}

func TestApplyMigrations_FailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, testFS(map[string]string{
		"001_ok.sql":  "CREATE TABLE ok (id INTEGER);",
		"002_bad.sql": "CREATE TABLE broken (;",
	}), DriverSQLite)

	applied, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 applied before failure, got %d", applied)
	}
	version, _ := runner.GetCurrentVersion()
	if version != 1 {
		t.Errorf("expected version 1 after failure, got %d", version)
	}
}

func TestValidateVersion_NewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, testFS(map[string]string{"001_a.sql": "SELECT 1;"}), DriverSQLite)
	if err := runner.SetVersion(3); err != nil {
		t.Fatal(err)
	}
	if err := runner.ValidateVersion(); err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("ValidateVersion() = %v, want newer-version error", err)
	}
}
