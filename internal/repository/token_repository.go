package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column
// plus a 'family' UUID linking rotation chains).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash, family string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, family, expires_at) VALUES (?,?,?,?)",
		userID, tokenHash, family, exp)
	return err
}

// ClaimRefresh consumes a refresh token for rotation. The revocation is a
// single conditional UPDATE, so when two rotations race on the same hash
// exactly one observes an affected row; the loser gets ErrTokenInvalid.
// On success the owning user ID and the token's family are returned so
// the caller can mint a replacement in the same family.
func (r *TokenRepo) ClaimRefresh(ctx context.Context, tokenHash string) (uint64, string, error) {
	var (
		userID    uint64
		family    string
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, family, expires_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &family, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, "", ErrTokenInvalid
		}
		return 0, "", err
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, "", ErrTokenInvalid
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return 0, "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, "", err
	}
	if n == 0 {
		// Already revoked: either an explicit logout or a concurrent
		// rotation won the claim. Single-use means this attempt fails.
		return 0, "", ErrTokenInvalid
	}
	return userID, family, nil
}

// RevokeByHash marks a token as revoked. Revoking an absent or already
// revoked token is a no-op, not an error.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens across every family.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// OwnerOfHash returns the user ID owning an active, unexpired token.
// Used by logout to resolve the user when only a refresh token was sent.
func (r *TokenRepo) OwnerOfHash(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrTokenInvalid
		}
		return 0, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}
