package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/storage"
)

// ErrEmbeddedCredentials is returned for redis URLs carrying a password.
var ErrEmbeddedCredentials = errors.New("connection string must not contain a password")

const opTimeout = 5 * time.Second

// Store keeps every record as a field of one Redis hash.
type Store struct {
	url      string
	password string
	hash     string
	client   *goredis.Client
}

// New creates a store for a redis:// URL. The password, if any, is supplied
// separately so it never appears in the URL.
func New(rawURL, password string) *Store {
	return &Store{
		url:      rawURL,
		password: password,
		hash:     constants.AppName + ":kv",
	}
}

// ValidateURL rejects malformed URLs and URLs with an embedded password.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return fmt.Errorf("invalid redis URL: unsupported scheme %q", u.Scheme)
	}
	if _, set := u.User.Password(); set {
		return ErrEmbeddedCredentials
	}
	return nil
}

func (s *Store) connect() error {
	if err := ValidateURL(s.url); err != nil {
		return err
	}
	opts, err := goredis.ParseURL(s.url)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	if s.password != "" {
		opts.Password = s.password
	}

	client := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.client = client
	return nil
}

// Init connects; the hash is created lazily by the first write.
func (s *Store) Init() error {
	if s.client != nil {
		return nil
	}
	return s.connect()
}

func (s *Store) Load() error {
	if s.client != nil {
		return nil
	}
	return s.connect()
}

func (s *Store) Close() error {
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

func (s *Store) Get(key string) (string, bool, error) {
	if s.client == nil {
		return "", false, storage.ErrNotLoaded
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	v, err := s.client.HGet(ctx, s.hash, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(key, value string) error {
	return s.Write(storage.Op{Key: key, Value: value})
}

func (s *Store) Remove(key string) error {
	return s.Write(storage.Op{Key: key, Delete: true})
}

// Write queues every op in a MULTI/EXEC block so they apply together.
func (s *Store) Write(ops ...storage.Op) error {
	if s.client == nil {
		return storage.ErrNotLoaded
	}
	if len(ops) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, op := range ops {
			if op.Delete {
				pipe.HDel(ctx, s.hash, op.Key)
			} else {
				pipe.HSet(ctx, s.hash, op.Key, op.Value)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

func (s *Store) Keys() ([]string, error) {
	if s.client == nil {
		return nil, storage.ErrNotLoaded
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	keys, err := s.client.HKeys(ctx, s.hash).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetConfigPath() string {
	return "redis"
}
