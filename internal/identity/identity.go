// Package identity is the boundary to the external account service. The
// auth store only needs success or failure plus a user payload and token.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/healthchain/internal/models"
)

// ErrInvalidCredentials is returned by providers that reject a login.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Session is what a successful login or registration yields.
type Session struct {
	User  models.User
	Token string
}

// Provider authenticates users against an identity service.
type Provider interface {
	Login(email, password string) (Session, error)
	Register(fullName, email, password string) (Session, error)
	Logout(token string) error
}

// Mock accepts any credentials and synthesizes a user. Delay simulates
// network latency.
type Mock struct {
	Delay time.Duration
	Now   func() time.Time
}

func NewMock(delay time.Duration) *Mock {
	return &Mock{Delay: delay, Now: time.Now}
}

func (m *Mock) wait() {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
}

func (m *Mock) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Mock) session(fullName, email string) Session {
	now := m.now()
	return Session{
		User: models.User{
			ID:        uuid.New().String(),
			Email:     email,
			FullName:  fullName,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Token: "token_" + uuid.New().String(),
	}
}

func (m *Mock) Login(email, password string) (Session, error) {
	m.wait()
	return m.session(displayName(email), email), nil
}

func (m *Mock) Register(fullName, email, password string) (Session, error) {
	m.wait()
	return m.session(fullName, email), nil
}

func (m *Mock) Logout(token string) error {
	return nil
}

// displayName derives a name from the local part of an email address.
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
