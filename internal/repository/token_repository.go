package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh-token state for the session rotation flow.
// Only the SHA-256 hash of a token ever reaches this table; the raw value
// lives exclusively with the client, so a leaked table cannot mint
// sessions.  Rows are never deleted — revoked_at marks them dead, which
// keeps a trace of every rotation.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a freshly issued token hash with its expiry.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, hash, exp)
	return err
}

// ValidateRefresh resolves a presented token hash to its owner.  Revoked and
// expired tokens both come back as sql.ErrNoRows so callers cannot tell the
// two apart — either way the session is gone and the client re-authenticates.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, hash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		hash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash kills one token.  Used on rotation (the old token dies when
// the new pair is issued) and on logout.
func (r *TokenRepo) RevokeByHash(ctx context.Context, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		hash)
	return err
}

// RevokeAllForUser kills every live session of one account, for password
// resets and account deactivation.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
