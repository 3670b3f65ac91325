package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/session"
)

const bearerPrefix = "Bearer "

// Gate turns an Authorization header into a Principal.
type Gate struct {
	sessions    *session.Manager
	adminSecret string
}

// NewGate builds a gate over sessions. An empty adminSecret disables
// service tokens.
func NewGate(sessions *session.Manager, adminSecret string) *Gate {
	return &Gate{sessions: sessions, adminSecret: adminSecret}
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", model.AuthError(model.AuthMissingToken)
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", model.AuthError(model.AuthMalformedHeader)
	}
	tok := header[len(bearerPrefix):]
	if tok == "" || strings.ContainsAny(tok, " \t\r\n") {
		return "", model.AuthError(model.AuthMalformedHeader)
	}
	return tok, nil
}

func (g *Gate) Resolve(ctx context.Context, header string) (model.Principal, error) {
	tok, err := BearerToken(header)
	if err != nil {
		return model.Principal{}, err
	}

	if g.adminSecret != "" && strings.Count(tok, ".") == 2 {
		c, err := ParseServiceToken(tok, g.adminSecret)
		if err != nil {
			return model.Principal{}, model.AuthError(model.AuthInvalidOrExpired)
		}
		id, err := strconv.ParseInt(c.Subject, 10, 64)
		if err != nil || id < 1 {
			return model.Principal{}, model.AuthError(model.AuthInvalidOrExpired)
		}
		return model.Principal{ID: id, Role: model.RoleAdmin, DisplayName: c.Name}, nil
	}

	s, err := g.sessions.Lookup(ctx, tok)
	switch {
	case err == nil:
		return s.Principal(), nil
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		return model.Principal{}, model.AuthError(model.AuthInvalidOrExpired)
	default:
		return model.Principal{}, model.Internal(fmt.Errorf("session lookup: %w", err))
	}
}

// RequireRole passes when p holds any of roles.
func RequireRole(p model.Principal, roles ...model.Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	e := model.AuthError(model.AuthForbiddenRole)
	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = r.String()
		}
		e.Message = strings.Join(names, " or ") + " access required"
	}
	return e
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	return p, ok
}
