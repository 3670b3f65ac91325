package store

import (
	"context"
	"fmt"
	"time"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/session"
)

// Sessions adapts Store to session.Backend.
type Sessions struct {
	s *Store
}

func (s *Store) Sessions() *Sessions {
	return &Sessions{s: s}
}

func (b *Sessions) Create(ctx context.Context, ss *model.Session) error {
	_, err := b.s.pool.Exec(ctx,
		`INSERT INTO user_sessions
		 (token_hash, user_id, user_type, display_name, ip_address, user_agent,
		  created_at, expires_at, last_activity_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ss.TokenHash, ss.PrincipalID, int16(ss.Role), ss.DisplayName, ss.ClientIP, ss.UserAgent,
		ss.CreatedAt, ss.ExpiresAt, ss.LastActivityAt,
	)
	return err
}

// Touch updates and returns the row in one statement. A concurrent reap
// holds the row lock until it commits, after which the WHERE no longer
// matches.
func (b *Sessions) Touch(ctx context.Context, tokenHash string, now time.Time) (*model.Session, error) {
	ss := &model.Session{TokenHash: tokenHash}
	var role int16
	err := b.s.pool.QueryRow(ctx,
		`UPDATE user_sessions
		 SET last_activity_at = GREATEST(last_activity_at, $2)
		 WHERE token_hash = $1 AND expires_at > $2
		 RETURNING user_id, user_type, display_name, ip_address, user_agent,
		           created_at, expires_at, last_activity_at`,
		tokenHash, now,
	).Scan(&ss.PrincipalID, &role, &ss.DisplayName, &ss.ClientIP, &ss.UserAgent,
		&ss.CreatedAt, &ss.ExpiresAt, &ss.LastActivityAt)
	if err == nil {
		ss.Role = model.Role(role)
		return ss, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	var expired bool
	err = b.s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_sessions WHERE token_hash = $1)`, tokenHash,
	).Scan(&expired)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if expired {
		return nil, session.ErrExpired
	}
	return nil, session.ErrNotFound
}

func (b *Sessions) Delete(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := b.s.pool.Exec(ctx, `DELETE FROM user_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (b *Sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.s.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
