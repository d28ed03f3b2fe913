// Package auth holds the single signed-in session of this device.
package auth

import (
	"sync"

	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/identity"
	"github.com/julianstephens/healthchain/internal/logger"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/notifier"
	"github.com/julianstephens/healthchain/internal/storage"
	"github.com/julianstephens/healthchain/internal/validation"
)

// State is the session state machine:
// loading -> checking -> {logged_in, logged_out}, then logged_out <-> logged_in.
type State string

const (
	StateLoading   State = "loading"
	StateChecking  State = "checking"
	StateLoggedIn  State = "logged_in"
	StateLoggedOut State = "logged_out"
)

// Snapshot is a copy of the session visible to consumers.
type Snapshot struct {
	State State        `json:"state"`
	User  *models.User `json:"user,omitempty"`
	Error string       `json:"error,omitempty"`
}

type Store struct {
	mu    sync.Mutex
	kv    storage.Provider
	idp   identity.Provider
	state State
	user  *models.User
	token string
	err   string

	subs notifier.Notifier[Snapshot]
}

// New returns a store in StateLoading. Call Restore to pick up a persisted session.
func New(kv storage.Provider, idp identity.Provider) *Store {
	return &Store{
		kv:    kv,
		idp:   idp,
		state: StateLoading,
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Error: s.err}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) transition(state State) Snapshot {
	if s.state != state {
		logger.Debug("Auth state transition", "from", s.state, "to", state)
	}
	s.state = state
	return s.snapshotLocked()
}

// Restore checks storage for a persisted session. A read failure leaves
// the store logged out and is returned.
func (s *Store) Restore() error {
	s.mu.Lock()
	checking := s.transition(StateChecking)
	s.mu.Unlock()
	s.subs.Notify(checking)

	var user models.User
	var token string
	hasUser, err := storage.Fetch(s.kv, constants.KeyUser, &user)
	if err == nil && hasUser {
		_, err = storage.Fetch(s.kv, constants.KeyUserToken, &token)
	}

	s.mu.Lock()
	if err != nil || !hasUser {
		s.user, s.token = nil, ""
		snap := s.transition(StateLoggedOut)
		s.mu.Unlock()
		s.subs.Notify(snap)
		return apperr.Persistence("restore session", err)
	}
	s.user, s.token = &user, token
	snap := s.transition(StateLoggedIn)
	s.mu.Unlock()
	s.subs.Notify(snap)
	return nil
}

// Login validates the credentials, asks the identity provider for a
// session and persists it. On failure the error is also kept for display.
func (s *Store) Login(email, password string) error {
	if err := validation.ValidateLogin(models.LoginCredentials{Email: email, Password: password}); err != nil {
		s.fail(err)
		return err
	}
	return s.signIn("login", func() (identity.Session, error) {
		return s.idp.Login(email, password)
	})
}

// Register is Login for a new account carrying the provided full name.
func (s *Store) Register(fullName, email, password, confirmPassword string) error {
	creds := models.RegisterCredentials{
		FullName:        fullName,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirmPassword,
	}
	if err := validation.ValidateRegister(creds); err != nil {
		s.fail(err)
		return err
	}
	return s.signIn("register", func() (identity.Session, error) {
		return s.idp.Register(fullName, email, password)
	})
}

func (s *Store) signIn(op string, call func() (identity.Session, error)) error {
	s.mu.Lock()

	sess, err := call()
	if err != nil {
		s.err = err.Error()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.subs.Notify(snap)
		logger.Warn("Identity provider rejected request", "op", op, "error", err)
		return err
	}

	userOp, err := storage.PutOp(constants.KeyUser, sess.User)
	if err == nil {
		var tokenOp storage.Op
		tokenOp, err = storage.PutOp(constants.KeyUserToken, sess.Token)
		if err == nil {
			err = s.kv.Write(userOp, tokenOp)
		}
	}
	if err != nil {
		err = apperr.Persistence("save session", err)
		s.err = err.Error()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.subs.Notify(snap)
		return err
	}

	user := sess.User
	s.user, s.token, s.err = &user, sess.Token, ""
	snap := s.transition(StateLoggedIn)
	s.mu.Unlock()

	logger.Info("Signed in", "op", op, "user_id", user.ID)
	s.subs.Notify(snap)
	return nil
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.err = err.Error()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.Notify(snap)
}

// Logout clears the persisted and in-memory session. It never fails:
// storage and provider errors are logged.
func (s *Store) Logout() {
	s.mu.Lock()
	token := s.token

	if err := s.kv.Write(storage.DeleteOp(constants.KeyUser), storage.DeleteOp(constants.KeyUserToken)); err != nil {
		logger.Error("Failed to clear persisted session", "error", err)
	}
	if token != "" {
		if err := s.idp.Logout(token); err != nil {
			logger.Warn("Identity provider logout failed", "error", err)
		}
	}

	s.user, s.token, s.err = nil, "", ""
	snap := s.transition(StateLoggedOut)
	s.mu.Unlock()
	s.subs.Notify(snap)
}

// ClearError resets the last error.
func (s *Store) ClearError() {
	s.mu.Lock()
	if s.err == "" {
		s.mu.Unlock()
		return
	}
	s.err = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.Notify(snap)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the session token, empty when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// CurrentUserID returns the signed-in user's id, empty when logged out.
func (s *Store) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.subs.Subscribe(fn)
}
