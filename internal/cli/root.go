package cli

import (
	"errors"
	"time"

	"github.com/julianstephens/healthchain/internal/auth"
	"github.com/julianstephens/healthchain/internal/backup"
	"github.com/julianstephens/healthchain/internal/health"
	"github.com/julianstephens/healthchain/internal/identity"
	"github.com/julianstephens/healthchain/internal/logger"
	"github.com/julianstephens/healthchain/internal/storage"
	"github.com/julianstephens/healthchain/internal/wallet"
)

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = errors.New("not signed in, run 'healthchain auth login' first")

// Context is handed to every command. The three stores share one provider.
type Context struct {
	Store  storage.Provider
	Auth   *auth.Store
	Health *health.Store
	Wallet *wallet.Store
	Now    func() time.Time
}

func NewContext(store storage.Provider, idp identity.Provider, now func() time.Time) *Context {
	if now == nil {
		now = time.Now
	}
	c := &Context{Store: store, Now: now}
	c.Auth = auth.New(store, idp)
	c.Health = health.New(store, health.WithClock(now), health.WithUserID(c.Auth.CurrentUserID))
	c.Wallet = wallet.New(store, wallet.WithClock(now), wallet.WithUserID(c.Auth.CurrentUserID))
	return c
}

// LoadStores restores the session, then reads health and wallet records.
func (c *Context) LoadStores() error {
	if err := c.Auth.Restore(); err != nil {
		return err
	}
	if err := c.Health.Load(); err != nil {
		return err
	}
	return c.Wallet.Load()
}

func (c *Context) RequireSession() error {
	if c.Auth.Snapshot().State != auth.StateLoggedIn {
		return ErrNotSignedIn
	}
	return nil
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if !IsFileStore(c.Store) {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}
