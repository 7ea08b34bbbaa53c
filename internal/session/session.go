// Package session exposes the signed-in user to the player core.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for access tokens that do not name a user
	ErrInvalidToken = errors.New("invalid access token")
	// ErrTokenExpired is returned for access tokens past their expiry
	ErrTokenExpired = errors.New("access token expired")
)

// Session is an authenticated user
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// Provider returns the current session, or nil when nobody is signed in
type Provider interface {
	Session(ctx context.Context) (*Session, error)
}

// FromAccessToken reads the user id from a Supabase access token. The
// signature is not checked here; the backend verifies it on every call.
func FromAccessToken(token string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	s := &Session{UserID: sub, AccessToken: token}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
		if time.Now().After(exp.Time) {
			return nil, ErrTokenExpired
		}
	}
	return s, nil
}

// Static always returns the same session
type Static struct {
	session *Session
}

// NewStatic creates a provider from a configured access token. An empty
// token yields an anonymous provider.
func NewStatic(token string) (*Static, error) {
	if token == "" {
		return &Static{}, nil
	}
	s, err := FromAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &Static{session: s}, nil
}

// Anonymous returns a provider with no signed-in user
func Anonymous() *Static {
	return &Static{}
}

func (p *Static) Session(ctx context.Context) (*Session, error) {
	return p.session, nil
}
