// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool DB) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Insert stores a new session.
func (r *SessionRepository) Insert(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (hashed_id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, session.HashedID, session.UserID, session.ExpiresAt, session.CreatedAt)
	if err == nil {
		return nil
	}

	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case constraintSessionUser:
			return oops.Code("SESSION_EXISTS").
				With("user_id", session.UserID.String()).
				Wrap(auth.ErrDuplicate)
		case constraintSessionPKey:
			return oops.Code("SESSION_TOKEN_COLLISION").Wrap(auth.ErrTokenCollision)
		}
	}
	return oops.Code("SESSION_CREATE_FAILED").
		With("operation", "insert session").
		With("user_id", session.UserID.String()).
		Wrap(err)
}

// UpdateForUser rewrites the user's session with a new digest and expiry.
func (r *SessionRepository) UpdateForUser(ctx context.Context, session *auth.Session) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET hashed_id = $1, expires_at = $2, created_at = $3
		WHERE user_id = $4
	`, session.HashedID, session.ExpiresAt, session.CreatedAt, session.UserID)
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintSessionPKey {
		return oops.Code("SESSION_TOKEN_COLLISION").Wrap(auth.ErrTokenCollision)
	}
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("user_id", session.UserID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// GetExpiry returns the expiry of the session matching digest and user.
func (r *SessionRepository) GetExpiry(ctx context.Context, hashedID string, userID uuid.UUID) (time.Time, error) {
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT expires_at FROM sessions
		WHERE hashed_id = $1 AND user_id = $2
	`, hashedID, userID).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session expiry").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return expiresAt, nil
}

// Delete removes the session with the given digest.
func (r *SessionRepository) Delete(ctx context.Context, hashedID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE hashed_id = $1`, hashedID)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes sessions that expired before the given time.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}
