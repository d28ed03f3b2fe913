package system

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/healthchain/internal/backup"
	"github.com/julianstephens/healthchain/internal/cli"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/migration"
	"github.com/julianstephens/healthchain/internal/validation"
)

// migratable is implemented by the SQL backends.
type migratable interface {
	Migrations() (*migration.Runner, error)
}

type DoctorCmd struct {
	Fix bool `help:"Repair a wallet balance that drifted from the transaction log."`
}

type check struct {
	name     string
	needsDB  bool
	warnOnly bool
	run      func(ctx *cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	checks := []check{
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
		{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
		{name: "Wallet ledger", needsDB: true, run: cmd.checkLedger},
		{name: "Data validation", needsDB: true, run: checkValidation},
		{name: "Clock/timezone", run: func(*cli.Context) error { return checkClockTimezone(time.Now()) }},
	}

	hasError := false
	dbReachable := false

	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
		dbReachable = true
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %s\n", strings.ReplaceAll(strings.TrimSpace(err.Error()), "\n", "\n   "))
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.Keys(); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return ctx.LoadStores()
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(migratable)
	if !ok {
		// Key-value backends have no schema
		return nil
	}
	runner, err := m.Migrations()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

func checkMigrationsComplete(ctx *cli.Context) error {
	m, ok := ctx.Store.(migratable)
	if !ok {
		return nil
	}
	runner, err := m.Migrations()
	if err != nil {
		return err
	}
	pending, err := runner.Pending()
	if err != nil {
		return fmt.Errorf("failed to read migration state: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("migrations incomplete: %d pending, run 'healthchain migrate'", pending)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !cli.IsFileStore(ctx.Store) {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'healthchain backup create'")
	}

	return nil
}

func (cmd *DoctorCmd) checkLedger(ctx *cli.Context) error {
	report, err := ctx.Wallet.VerifyLedger()
	if errors.Is(err, apperr.ErrNoWallet) {
		return nil
	}
	if err != nil {
		return err
	}
	if report.Consistent {
		return nil
	}
	if !cmd.Fix {
		return fmt.Errorf("balance %s differs from ledger %s, rerun with --fix to repair",
			report.Balance, report.Ledger)
	}

	ctx.PerformAutomaticBackup()
	w, err := ctx.Wallet.RepairBalance()
	if err != nil {
		return fmt.Errorf("failed to repair balance: %w", err)
	}
	fmt.Printf("   Repaired balance to %s\n", cli.FormatTokens(w.Balance))
	return nil
}

func checkValidation(ctx *cli.Context) error {
	h := ctx.Health.Snapshot()
	w := ctx.Wallet.Snapshot()

	result := validation.New().Validate(validation.Data{
		Metrics:      h.Metrics,
		Activities:   h.Activities,
		Meals:        h.Meals,
		Wallet:       w.Wallet,
		Transactions: w.Transactions,
		Rewards:      w.Rewards,
	})
	if result.HasConflicts() {
		return errors.New(result.FormatReport())
	}
	return nil
}

func checkClockTimezone(now time.Time) error {
	// Check if time is in a reasonable range (after 2020 and before 2100)
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
