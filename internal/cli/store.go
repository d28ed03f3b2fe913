package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/keyring"
	"github.com/julianstephens/healthchain/internal/storage"
	"github.com/julianstephens/healthchain/internal/storage/postgres"
	"github.com/julianstephens/healthchain/internal/storage/redis"
	"github.com/julianstephens/healthchain/internal/storage/sqlite"
	"github.com/julianstephens/healthchain/internal/utils"
)

// Backend is the persistence backend selected by a store target.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendJSON     Backend = "json"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendMemory   Backend = "memory"
)

const memoryScheme = "memory:"

// Target is a resolved --store value.
type Target struct {
	Value string
	// Trusted targets come from the keyring or environment and may carry
	// credentials.
	Trusted bool
}

// ResolveTarget picks the store target. An explicit --store wins; with the
// default path, a connection saved in the keyring or set in the
// environment is used instead.
func ResolveTarget(flag string) Target {
	if flag != "" && flag != constants.DefaultConfigPath {
		return Target{Value: flag}
	}
	if conn, ok := keyring.Lookup(keyring.ConnectionString); ok {
		return Target{Value: conn, Trusted: true}
	}
	if conn := os.Getenv(constants.ConnectionEnvVar); conn != "" {
		return Target{Value: conn, Trusted: true}
	}
	return Target{Value: constants.DefaultConfigPath}
}

// BackendFor classifies a target by scheme or file extension.
func BackendFor(target string) Backend {
	switch {
	case strings.HasPrefix(target, "postgres://"), strings.HasPrefix(target, "postgresql://"):
		return BackendPostgres
	case strings.HasPrefix(target, "redis://"), strings.HasPrefix(target, "rediss://"):
		return BackendRedis
	case strings.HasPrefix(target, memoryScheme):
		return BackendMemory
	case strings.HasSuffix(strings.ToLower(target), ".json"):
		return BackendJSON
	default:
		return BackendSQLite
	}
}

// OpenStore constructs, but does not load, the provider for t.
func OpenStore(t Target) (storage.Provider, error) {
	switch BackendFor(t.Value) {
	case BackendPostgres:
		if _, err := postgres.ValidateConnString(t.Value); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) && t.Trusted {
				return postgres.New(t.Value), nil
			}
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w: store it with 'healthchain config set-connection' or %s instead", err, constants.ConnectionEnvVar)
			}
			return nil, err
		}
		return postgres.New(t.Value), nil
	case BackendRedis:
		if err := redis.ValidateURL(t.Value); err != nil {
			return nil, err
		}
		password, _ := keyring.Lookup(keyring.RedisPassword)
		return redis.New(t.Value, password), nil
	case BackendMemory:
		return storage.NewMemoryStore(), nil
	}

	path, err := utils.ExpandPath(t.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}
	if BackendFor(path) == BackendJSON {
		return storage.NewJSONStore(path), nil
	}
	return sqlite.NewStore(path), nil
}

// IsFileStore reports whether p keeps its data in a local file that the
// backup manager can copy.
func IsFileStore(p storage.Provider) bool {
	switch p.(type) {
	case *sqlite.Store, *storage.JSONStore:
		return true
	}
	return false
}
