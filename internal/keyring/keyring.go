package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/healthchain/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested name
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names an entry kept in the OS keyring under the app's service name.
type Secret string

const (
	// ConnectionString is the postgres/redis URL used by the storage backends.
	ConnectionString Secret = Secret(constants.DefaultKeyringUser)
	// RedisPassword is supplied to the redis backend separately from its URL.
	RedisPassword Secret = "redis-password"
)

// Get returns the secret, or ErrNotFound.
func Get(name Secret) (string, error) {
	v, err := keyring.Get(constants.AppName, string(name))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

// Set stores a non-empty secret.
func Set(name Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if err := keyring.Set(constants.AppName, string(name), value); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete removes the secret, or returns ErrNotFound.
func Delete(name Secret) error {
	if err := keyring.Delete(constants.AppName, string(name)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Lookup returns the secret and whether it was found. A missing or
// unavailable keyring reads as not found.
func Lookup(name Secret) (string, bool) {
	v, err := Get(name)
	if err != nil {
		return "", false
	}
	return v, true
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
