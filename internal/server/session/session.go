// Package session implements server-side sessions addressed by an opaque cookie id.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Store when the session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// DefaultTTL is the session lifetime counted from the last write
const DefaultTTL = 30 * time.Minute

// Session is the server-side state of one client
type Session struct {
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	Values         map[string]string `json:"values,omitempty"`
	ID             string            `json:"id"`
	AuthToken      string            `json:"auth_token,omitempty"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// clone returns a deep copy so that stores never share maps with callers
func (s *Session) clone() *Session {
	c := *s
	if s.Values != nil {
		c.Values = make(map[string]string, len(s.Values))
		for k, v := range s.Values {
			c.Values[k] = v
		}
	}
	return &c
}

// Store persists sessions by id
type Store interface {
	// Get returns ErrNotFound for missing and expired sessions
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// GenerateID returns a random 256-bit session id
func GenerateID() (string, error) {
	const size = 32

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
