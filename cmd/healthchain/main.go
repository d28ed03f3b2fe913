package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/cli/accounts"
	"github.com/julianstephens/healthchain/internal/cli/backups"
	"github.com/julianstephens/healthchain/internal/cli/system"
	"github.com/julianstephens/healthchain/internal/cli/tracking"
	"github.com/julianstephens/healthchain/internal/cli/wallets"
	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/identity"
	"github.com/julianstephens/healthchain/internal/logger"
	"github.com/julianstephens/healthchain/internal/utils"
)

var CLI struct {
	Version kong.VersionFlag
	Store   string `help:"Store path (.db for SQLite, .json for JSON) or a postgres:// or redis:// URL. Server credentials belong in the OS keyring or ${conn_env}, not on the command line." type:"string" default:"${default_store}" env:"HEALTHCHAIN_STORE"`
	Debug   bool   `help:"Log debug output to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Initialize healthchain storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Serve   system.ServeCmd   `cmd:"" help:"Serve the JSON API."`
	Config  system.ConfigCmd  `cmd:"" help:"Manage credentials kept in the OS keyring."`
	Inspect system.DebugCmd   `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Backup  backups.BackupCmd `cmd:"" help:"Manage database backups."`

	Auth accounts.AuthCmd `cmd:"" help:"Sign in, register or sign out."`

	Dashboard    tracking.DashboardCmd    `cmd:"" help:"Show today's summary." default:"1"`
	Metrics      tracking.MetricsCmd      `cmd:"" help:"Show or update today's health metrics."`
	Activity     tracking.ActivityCmd     `cmd:"" help:"Log and review activities."`
	Meal         tracking.MealCmd         `cmd:"" help:"Log and review meals."`
	Goals        tracking.GoalsCmd        `cmd:"" help:"Show or update nutrition goals."`
	Nutrition    tracking.NutritionCmd    `cmd:"" help:"Show today's nutrition against goals."`
	Achievements tracking.AchievementsCmd `cmd:"" help:"Show unlocked milestones."`

	Wallet wallets.WalletCmd `cmd:"" help:"Manage the token wallet."`
	Reward wallets.RewardCmd `cmd:"" help:"Manage token rewards."`
}

// Commands that open the store themselves or never touch it.
var skipLoad = map[string]bool{
	"init":    true,
	"doctor":  true,
	"migrate": true,
	"config":  true,
}

func logDir(target cli.Target) string {
	if cli.BackendFor(target.Value) == cli.BackendSQLite || cli.BackendFor(target.Value) == cli.BackendJSON {
		if p, err := utils.ExpandPath(target.Value); err == nil {
			return filepath.Dir(p)
		}
	}
	dir, err := utils.ExpandPath(filepath.Dir(constants.DefaultConfigPath))
	if err != nil {
		return os.TempDir()
	}
	return dir
}

func main() {
	// A .env file is optional
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Fitness tracking with token rewards"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":       constants.Version,
			"default_store": constants.DefaultConfigPath,
			"conn_env":      constants.ConnectionEnvVar,
			"listen_addr":   constants.DefaultListenAddr,
		},
	)

	command, _, _ := strings.Cut(ctx.Command(), " ")
	target := cli.ResolveTarget(CLI.Store)

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: logDir(target),
		Stderr:    command == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store, err := cli.OpenStore(target)
	if err != nil {
		apperr.Fatal(err)
	}
	// os.Exit skips deferred calls, so the store is closed explicitly
	fail := func(err error) {
		_ = store.Close()
		apperr.Fatal(err)
	}

	appCtx := cli.NewContext(store, identity.NewMock(constants.SimulatedLatency), time.Now)

	if !skipLoad[command] {
		if err := store.Load(); err != nil {
			fail(err)
		}
		if err := appCtx.LoadStores(); err != nil {
			fail(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		fail(err)
	}
	if err := store.Close(); err != nil {
		logger.Warn("Failed to close store", "error", err)
	}
}
