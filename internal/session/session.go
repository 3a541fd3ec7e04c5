// Package session holds the signed-in user's bearer token for the lifetime of a client.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/floroz/gavel-client/pkg/auth"
)

var ErrEmptyToken = errors.New("access token is empty")

// User is the identity carried by the access token, when it is a JWT.
type User struct {
	ID    uuid.UUID
	Email string
	Name  string
}

// Session is explicit, caller-owned authentication state. It is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	token  string
	user   *User
	expiry time.Time
	now    func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New returns a signed-out session.
func New(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn stores token. JWT claims are read without verification to learn the
// user and expiry; the backend remains the authority. Opaque tokens are kept as is.
func (s *Session) SignIn(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	var (
		user   *User
		expiry time.Time
	)
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if id, err := uuid.Parse(claims.Subject); err == nil {
			user = &User{ID: id, Email: claims.Email, Name: claims.FullName}
		}
		if claims.ExpiresAt != nil {
			expiry = claims.ExpiresAt.Time
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.expiry = expiry
	return nil
}

// SignOut clears the session.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.expiry = time.Time{}
}

// Token returns the bearer token, or false when signed out or expired.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return "", false
	}
	return s.token, true
}

// SignedIn reports whether a usable token is present.
func (s *Session) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

// User returns the identity from the token claims, if known.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() || s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) validLocked() bool {
	if s.token == "" {
		return false
	}
	return s.expiry.IsZero() || s.now().Before(s.expiry)
}
