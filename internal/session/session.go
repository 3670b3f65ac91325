// Package session issues and resolves opaque bearer tokens.
//
// Tokens are never stored. Backends key sessions by the hex SHA-256 of the
// raw token, the same way refresh tokens are kept.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"clinic-scheduler/internal/model"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

const (
	DefaultTTL     = 24 * time.Hour
	DefaultTimeout = 5 * time.Second
)

// Backend persists sessions. Touch must atomically return the session and
// bump its last activity only while expires_at > now, so that a concurrent
// DeleteExpired never lets a reaped session through.
type Backend interface {
	Create(ctx context.Context, s *model.Session) error
	Touch(ctx context.Context, tokenHash string, now time.Time) (*model.Session, error)
	Delete(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Manager struct {
	backend Backend
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Manager)

// WithTimeout bounds every backend call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(b Backend, ttl time.Duration, opts ...Option) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	m := &Manager{backend: b, ttl: ttl, timeout: DefaultTimeout, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue creates a session for p and returns the raw token.
func (m *Manager) Issue(ctx context.Context, p model.Principal, client model.ClientInfo) (string, time.Time, error) {
	raw, hash, err := NewToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	now := m.now().UTC()
	s := &model.Session{
		TokenHash:      hash,
		PrincipalID:    p.ID,
		Role:           p.Role,
		DisplayName:    p.DisplayName,
		ClientIP:       client.IP,
		UserAgent:      client.UserAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.ttl),
		LastActivityAt: now,
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.backend.Create(ctx, s); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return raw, s.ExpiresAt, nil
}

// Lookup returns the live session for token and records the activity.
func (m *Manager) Lookup(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.backend.Touch(ctx, HashToken(token), m.now().UTC())
}

func (m *Manager) Invalidate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.backend.Delete(ctx, HashToken(token))
}

// Reap removes every session with expires_at <= now.
func (m *Manager) Reap(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.backend.DeleteExpired(ctx, now.UTC())
}

// NewToken returns 256 random bits as unpadded base64url plus the storage hash.
// The alphabet has no '.', so session tokens never parse as JWTs.
func NewToken() (raw string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, HashToken(raw), nil
}

func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
