package storage

import "errors"

var (
	// ErrNotLoaded is returned when a provider is used before Init or Load.
	ErrNotLoaded = errors.New("storage not loaded")
	// ErrNotInitialized is returned by Load when the backing store does not exist yet.
	ErrNotInitialized = errors.New("storage not initialized, run 'healthchain init' first")
)

// Op is a single key mutation inside an atomic Write.
type Op struct {
	Key    string
	Value  string
	Delete bool
}

// Provider is a durable string key-value store. Each record is an
// independent named blob; Write applies several records all-or-nothing.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Records
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	// Write applies every op or none of them.
	Write(ops ...Op) error
	Keys() ([]string, error)

	// Utils
	GetConfigPath() string
}
