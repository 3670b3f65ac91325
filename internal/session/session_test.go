package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/session"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newManager(t *testing.T) (*session.Manager, *session.MemoryStore, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)}
	st := session.NewMemoryStore()
	m, err := session.NewManager(st, session.DefaultTTL, session.WithClock(c.Now))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, st, c
}

var doctor = model.Principal{ID: 2, Role: model.RoleDoctor, DisplayName: "Dr. Okafor"}

func TestNewManagerRejectsNonPositiveTTL(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		if _, err := session.NewManager(session.NewMemoryStore(), ttl); err == nil {
			t.Errorf("ttl %s: expected error", ttl)
		}
	}
}

func TestIssueToken(t *testing.T) {
	m, _, c := newManager(t)
	ctx := context.Background()

	tok, exp, err := m.Issue(ctx, doctor, model.ClientInfo{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(tok) < 43 {
		t.Errorf("token too short: %d chars", len(tok))
	}
	if strings.ContainsAny(tok, ". ") {
		t.Errorf("token contains separator: %q", tok)
	}
	if !exp.Equal(c.Now().Add(24 * time.Hour)) {
		t.Errorf("expiresAt = %s, want now+24h", exp)
	}

	other, _, err := m.Issue(ctx, doctor, model.ClientInfo{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if other == tok {
		t.Error("two issued tokens are equal")
	}
}

func TestLookup(t *testing.T) {
	m, _, c := newManager(t)
	ctx := context.Background()
	tok, _, _ := m.Issue(ctx, doctor, model.ClientInfo{})

	s, err := m.Lookup(ctx, tok)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.PrincipalID != doctor.ID || s.Role != model.RoleDoctor || s.DisplayName != doctor.DisplayName {
		t.Errorf("unexpected session: %+v", s)
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		t.Error("expiresAt must be after createdAt")
	}

	prev := s.LastActivityAt
	for i := 0; i < 3; i++ {
		c.Advance(time.Minute)
		s, err = m.Lookup(ctx, tok)
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if s.LastActivityAt.Before(prev) {
			t.Fatalf("lastActivityAt went backwards: %s < %s", s.LastActivityAt, prev)
		}
		prev = s.LastActivityAt
	}
	if !prev.Equal(c.Now()) {
		t.Errorf("lastActivityAt = %s, want %s", prev, c.Now())
	}
}

func TestLookupErrors(t *testing.T) {
	m, _, c := newManager(t)
	ctx := context.Background()
	tok, _, _ := m.Issue(ctx, doctor, model.ClientInfo{})

	if _, err := m.Lookup(ctx, "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("unknown token: got %v, want ErrNotFound", err)
	}
	if _, err := m.Lookup(ctx, ""); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("empty token: got %v, want ErrNotFound", err)
	}

	// expiresAt > now is strict
	c.Advance(24 * time.Hour)
	if _, err := m.Lookup(ctx, tok); !errors.Is(err, session.ErrExpired) {
		t.Errorf("at expiry: got %v, want ErrExpired", err)
	}
}

func TestInvalidate(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	tok, _, _ := m.Issue(ctx, doctor, model.ClientInfo{})

	ok, err := m.Invalidate(ctx, tok)
	if err != nil || !ok {
		t.Fatalf("invalidate: ok=%v err=%v", ok, err)
	}
	ok, err = m.Invalidate(ctx, tok)
	if err != nil || ok {
		t.Errorf("second invalidate: ok=%v err=%v, want false", ok, err)
	}
	if _, err := m.Lookup(ctx, tok); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("lookup after invalidate: %v", err)
	}
}

func TestReap(t *testing.T) {
	m, st, c := newManager(t)
	ctx := context.Background()
	old, _, _ := m.Issue(ctx, doctor, model.ClientInfo{})
	c.Advance(12 * time.Hour)
	fresh, _, _ := m.Issue(ctx, doctor, model.ClientInfo{})
	c.Advance(12 * time.Hour)

	n, err := m.Reap(ctx, c.Now())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 1 {
		t.Errorf("reaped %d, want 1", n)
	}
	if st.Len() != 1 {
		t.Errorf("%d sessions left, want 1", st.Len())
	}
	if _, err := m.Lookup(ctx, old); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("reaped session: got %v, want ErrNotFound", err)
	}
	if _, err := m.Lookup(ctx, fresh); err != nil {
		t.Errorf("fresh session: %v", err)
	}
}

// a lookup racing a reap either sees the session (before the reap) or
// fails; it never succeeds after the reap removed it.
func TestReapConcurrentWithLookup(t *testing.T) {
	m, _, c := newManager(t)
	ctx := context.Background()

	toks := make([]string, 50)
	for i := range toks {
		toks[i], _, _ = m.Issue(ctx, doctor, model.ClientInfo{})
	}
	c.Advance(25 * time.Hour)

	var reaped atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := m.Reap(ctx, c.Now()); err != nil {
			t.Errorf("reap: %v", err)
		}
		reaped.Store(true)
	}()
	for _, tok := range toks {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			if _, err := m.Lookup(ctx, tok); err == nil {
				t.Errorf("expired session resolved")
			}
		}(tok)
	}
	wg.Wait()

	if !reaped.Load() {
		t.Fatal("reap did not finish")
	}
	for _, tok := range toks {
		if _, err := m.Lookup(ctx, tok); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("after reap: got %v, want ErrNotFound", err)
		}
	}
}

func TestHashTokenStable(t *testing.T) {
	raw, hash, err := session.NewToken()
	if err != nil {
		t.Fatal(err)
	}
	if session.HashToken(raw) != hash {
		t.Error("hash mismatch")
	}
	if len(hash) != 64 {
		t.Errorf("hash length %d, want 64", len(hash))
	}
}

// stalledBackend blocks every call until its context ends.
type stalledBackend struct{}

func (stalledBackend) Create(ctx context.Context, _ *model.Session) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledBackend) Touch(ctx context.Context, _ string, _ time.Time) (*model.Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledBackend) Delete(ctx context.Context, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func (stalledBackend) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestBackendCallsTimeOut(t *testing.T) {
	m, err := session.NewManager(stalledBackend{}, time.Hour, session.WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"issue", func() error { _, _, err := m.Issue(ctx, doctor, model.ClientInfo{}); return err }},
		{"lookup", func() error { _, err := m.Lookup(ctx, "abc"); return err }},
		{"invalidate", func() error { _, err := m.Invalidate(ctx, "abc"); return err }},
		{"reap", func() error { _, err := m.Reap(ctx, time.Now()); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() { done <- tt.call() }()
			select {
			case err := <-done:
				if !errors.Is(err, context.DeadlineExceeded) {
					t.Errorf("err = %v, want deadline exceeded", err)
				}
			case <-time.After(time.Second):
				t.Fatal("call still blocked on a stalled backend")
			}
		})
	}
}
