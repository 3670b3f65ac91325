package auth

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/session"
)

// AccountFinder looks up an active doctor or patient by username.
// A missing account is reported as a model NotFound error.
type AccountFinder interface {
	FindAccount(ctx context.Context, role model.Role, username string) (*model.Account, error)
}

type LoginResult struct {
	Message      string
	UserID       int64
	Role         model.Role
	Name         string
	SessionToken string
	ExpiresAt    time.Time
}

type Authenticator struct {
	accounts AccountFinder
	sessions *session.Manager
	timeout  time.Duration
}

type AuthenticatorOption func(*Authenticator)

// WithLookupTimeout bounds the account lookup. Non-positive values are ignored.
func WithLookupTimeout(d time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAuthenticator(accounts AccountFinder, sessions *session.Manager, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{accounts: accounts, sessions: sessions, timeout: session.DefaultTimeout}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Authenticator) findAccount(ctx context.Context, r model.Role, username string) (*model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.accounts.FindAccount(ctx, r, username)
}

// compared against when the account does not exist, so both failure
// paths pay for one bcrypt comparison
var dummyHash, _ = HashPassword("not-a-real-password")

func (a *Authenticator) Login(ctx context.Context, username, password, role string, client model.ClientInfo) (*LoginResult, error) {
	if n := utf8.RuneCountInString(username); n < 3 || n > 100 {
		return nil, model.Validation("username must be between 3 and 100 characters")
	}
	if utf8.RuneCountInString(password) < 6 {
		return nil, model.Validation("password must be at least 6 characters")
	}
	r, ok := model.ParseRole(role)
	if !ok {
		return nil, model.Validation("user type must be Doctor or Patient")
	}

	acct, err := a.findAccount(ctx, r, username)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			CheckPassword(dummyHash, password)
			return nil, model.AuthError(model.AuthInvalidCredentials)
		}
		return nil, model.Internal(fmt.Errorf("find account: %w", err))
	}
	if !CheckPassword(acct.PasswordHash, password) {
		return nil, model.AuthError(model.AuthInvalidCredentials)
	}

	p := model.Principal{ID: acct.ID, Role: r, DisplayName: acct.Name}
	tok, exp, err := a.sessions.Issue(ctx, p, client)
	if err != nil {
		return nil, model.Internal(err)
	}
	return &LoginResult{
		Message:      r.String() + " login successful",
		UserID:       acct.ID,
		Role:         r,
		Name:         acct.Name,
		SessionToken: tok,
		ExpiresAt:    exp,
	}, nil
}

// Logout invalidates the session named by the Authorization header.
func (a *Authenticator) Logout(ctx context.Context, header string) error {
	tok, err := BearerToken(header)
	if err != nil {
		return err
	}
	ok, err := a.sessions.Invalidate(ctx, tok)
	if err != nil {
		return model.Internal(fmt.Errorf("invalidate session: %w", err))
	}
	if !ok {
		return &model.Error{Kind: model.KindNotFound, Code: model.CodeNotFound, Message: "Session not found"}
	}
	return nil
}
