package system

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/keyring"
	"github.com/julianstephens/healthchain/internal/storage/postgres"
	"github.com/julianstephens/healthchain/internal/storage/redis"
)

type ConfigCmd struct {
	SetConnection    ConfigSetConnectionCmd    `cmd:"" help:"Store a PostgreSQL or Redis connection string in the OS keyring."`
	GetConnection    ConfigGetConnectionCmd    `cmd:"" help:"Show the stored connection string with its password masked."`
	DeleteConnection ConfigDeleteConnectionCmd `cmd:"" help:"Remove the stored connection string."`
	SetRedisPassword ConfigSetRedisPasswordCmd `cmd:"" help:"Store the Redis password in the OS keyring."`
	Status           ConfigStatusCmd           `cmd:"" help:"Check the OS keyring." default:"1"`
}

// ConfigSetConnectionCmd stores database connection credentials in the OS keyring
type ConfigSetConnectionCmd struct {
	ConnectionString string `arg:"" help:"postgres://, postgresql://, DSN or redis:// connection string."`
}

func (cmd *ConfigSetConnectionCmd) Run(ctx *cli.Context) error {
	conn := cmd.ConnectionString
	switch cli.BackendFor(conn) {
	case cli.BackendRedis:
		if err := redis.ValidateURL(conn); err != nil {
			if errors.Is(err, redis.ErrEmbeddedCredentials) {
				return errors.New("redis URLs must not carry a password, use 'healthchain config set-redis-password' instead")
			}
			return err
		}
	case cli.BackendPostgres:
		if err := validatePostgres(conn); err != nil {
			return err
		}
	default:
		if !strings.Contains(conn, "host=") {
			return errors.New("connection string must be a valid PostgreSQL or Redis connection string")
		}
		if err := validatePostgres(conn); err != nil {
			return err
		}
	}

	if err := keyring.Set(keyring.ConnectionString, conn); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	fmt.Println("✓ Connection string stored successfully in OS keyring")
	fmt.Println("  You can now use healthchain without the --store flag")
	return nil
}

func validatePostgres(conn string) error {
	_, err := postgres.ValidateConnString(conn)
	if err == nil {
		return nil
	}
	if errors.Is(err, postgres.ErrEmbeddedCredentials) {
		// The keyring is encrypted, so embedded credentials are accepted here
		fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
		return nil
	}
	return fmt.Errorf("invalid connection string: %w", err)
}

// ConfigGetConnectionCmd retrieves database connection credentials from the OS keyring
type ConfigGetConnectionCmd struct{}

func (cmd *ConfigGetConnectionCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.Get(keyring.ConnectionString)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'healthchain config set-connection' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	fmt.Println("Connection string retrieved from keyring:")
	fmt.Println(maskPassword(connStr))
	return nil
}

// ConfigDeleteConnectionCmd removes database connection credentials from the OS keyring
type ConfigDeleteConnectionCmd struct{}

func (cmd *ConfigDeleteConnectionCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(keyring.ConnectionString); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}

	fmt.Println("✓ Connection string deleted from OS keyring")
	return nil
}

type ConfigSetRedisPasswordCmd struct {
	Password string `help:"Redis password. Prompted for when omitted."`
}

func (cmd *ConfigSetRedisPasswordCmd) Run(ctx *cli.Context) error {
	if cmd.Password == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Redis password").
					EchoMode(huh.EchoModePassword).
					Value(&cmd.Password),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}
	}
	if err := keyring.Set(keyring.RedisPassword, cmd.Password); err != nil {
		return err
	}
	fmt.Println("✓ Redis password stored in OS keyring")
	return nil
}

// ConfigStatusCmd checks the availability of the OS keyring
type ConfigStatusCmd struct{}

func (cmd *ConfigStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	fmt.Println("✓ OS keyring is available")

	if _, ok := keyring.Lookup(keyring.ConnectionString); ok {
		fmt.Println("✓ Connection string is stored in keyring")
	} else {
		fmt.Println("ℹ No connection string stored in keyring")
	}
	if _, ok := keyring.Lookup(keyring.RedisPassword); ok {
		fmt.Println("✓ Redis password is stored in keyring")
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" && u.User != nil {
		if _, set := u.User.Password(); set {
			// url.UserPassword would escape the mask as %2A.
			user := url.User(u.User.Username()).String()
			u.User = nil
			rest := strings.TrimPrefix(u.String(), u.Scheme+"://")
			return u.Scheme + "://" + user + ":****@" + rest
		}
		return connStr
	}

	// Handle DSN format (host=... user=... password=... dbname=...)
	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		var masked []string
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				masked = append(masked, "password=****")
			} else {
				masked = append(masked, part)
			}
		}
		return strings.Join(masked, " ")
	}

	return connStr
}
