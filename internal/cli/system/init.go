package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing data before initialization."`
	Source string `help:"Source store path or connection string to copy records from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	// Initialize destination store
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized healthchain storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Migrating data from: %s\n", c.Source)
		n, err := copyRecords(ctx.Store, c.Source)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Printf("Migration completed successfully! Copied %d records.\n", n)
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	if !cli.IsFileStore(ctx.Store) {
		// Server backends are cleared record by record.
		if err := ctx.Store.Load(); errors.Is(err, storage.ErrNotInitialized) {
			return nil
		} else if err != nil {
			return err
		}
		keys, err := ctx.Store.Keys()
		if err != nil {
			return fmt.Errorf("failed to list existing records: %w", err)
		}
		ops := make([]storage.Op, 0, len(keys))
		for _, k := range keys {
			ops = append(ops, storage.DeleteOp(k))
		}
		if err := ctx.Store.Write(ops...); err != nil {
			return fmt.Errorf("failed to clear existing records: %w", err)
		}
		fmt.Printf("Cleared %d existing records\n", len(keys))
		return nil
	}

	dbPath := ctx.Store.GetConfigPath()
	// Don't delete if it's the source (user error protection)
	if c.Source != "" {
		absDbPath, err := filepath.Abs(dbPath)
		if err == nil {
			dbPath = absDbPath
		}
		absSource, err := filepath.Abs(c.Source)
		if err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}
	if _, err := os.Stat(dbPath); err == nil {
		// Close first to release file handles and the lockfile
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		fmt.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

// copyRecords copies every record of the source store into dst in one write.
func copyRecords(dst storage.Provider, source string) (int, error) {
	src, err := cli.OpenStore(cli.Target{Value: source})
	if err != nil {
		return 0, err
	}
	if err := src.Load(); err != nil {
		return 0, fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	keys, err := src.Keys()
	if err != nil {
		return 0, fmt.Errorf("failed to list source records: %w", err)
	}
	ops := make([]storage.Op, 0, len(keys))
	for _, k := range keys {
		v, ok, err := src.Get(k)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s from source: %w", k, err)
		}
		if ok {
			fmt.Printf("  Migrating %s...\n", k)
			ops = append(ops, storage.Op{Key: k, Value: v})
		}
	}
	if err := dst.Write(ops...); err != nil {
		return 0, fmt.Errorf("failed to write records to destination: %w", err)
	}
	return len(ops), nil
}
