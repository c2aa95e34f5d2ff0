package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"backdrop/internal/domain"
	"backdrop/internal/infra"
	"backdrop/internal/sqlinline"
)

// Sessions issues, resolves, and revokes session tokens backed by the
// sessions table.
type Sessions struct {
	sql    infra.SQLExecutor
	logger infra.Logger
	ttl    time.Duration
}

// NewSessions constructs a session manager with the given token lifetime.
func NewSessions(sql infra.SQLExecutor, logger infra.Logger, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Sessions{sql: sql, logger: logger, ttl: ttl}
}

// Create opportunistically deletes the user's already-expired sessions,
// then inserts a fresh one and returns its token and expiry. The token is
// 32 bytes from crypto/rand, hex encoded.
func (s *Sessions) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	token, err := newToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := time.Now().Add(s.ttl)

	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteExpiredSessionsFor, userID); err != nil {
		return "", time.Time{}, fmt.Errorf("clean up expired sessions: %w", err)
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QInsertSession, userID, token, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

// Resolve returns the authenticated identity for a token, or nil when the
// token is empty, unknown, or expired. Storage errors are logged and
// treated as not authenticated.
func (s *Sessions) Resolve(ctx context.Context, token string) *domain.AuthContext {
	if token == "" {
		return nil
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectSessionUser, token)
	var ac domain.AuthContext
	var tier string
	if err := row.Scan(&ac.UserID, &ac.Email, &ac.Name, &tier, &ac.Verified); err != nil {
		if !infra.IsNoRows(err) {
			s.logger.Error().Err(err).Msg("session lookup failed")
		}
		return nil
	}
	ac.Tier = domain.SubscriptionTier(tier)
	return &ac
}

// Destroy deletes the session for the token. Absence is not an error.
func (s *Sessions) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteSessionByToken, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
