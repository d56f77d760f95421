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
var _ auth.OTPRepository = (*OTPRepository)(nil)

// OTPRepository implements auth.OTPRepository using PostgreSQL.
type OTPRepository struct {
	pool DB
}

// NewOTPRepository creates a new OTPRepository.
func NewOTPRepository(pool DB) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// Insert stores a new one-time password.
func (r *OTPRepository) Insert(ctx context.Context, otp *auth.OTP) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO otps (user_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, otp.UserID, otp.Code, otp.ExpiresAt, otp.CreatedAt)
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintOTPPKey {
		return oops.Code("OTP_EXISTS").
			With("user_id", otp.UserID.String()).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("OTP_CREATE_FAILED").
			With("operation", "insert otp").
			With("user_id", otp.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetExpiry returns the expiry of the user's code.
func (r *OTPRepository) GetExpiry(ctx context.Context, userID uuid.UUID, code string) (time.Time, error) {
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT expires_at FROM otps
		WHERE user_id = $1 AND code = $2
	`, userID, code).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, oops.Code("OTP_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, oops.Code("OTP_GET_FAILED").
			With("operation", "get otp expiry").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return expiresAt, nil
}

// Delete removes the user's code.
func (r *OTPRepository) Delete(ctx context.Context, userID uuid.UUID, code string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE user_id = $1 AND code = $2`, userID, code)
	if err != nil {
		return oops.Code("OTP_DELETE_FAILED").
			With("operation", "delete otp").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OTP_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteForUser removes every code the user holds.
func (r *OTPRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE user_id = $1`, userID)
	if err != nil {
		return 0, oops.Code("OTP_DELETE_FAILED").
			With("operation", "delete user otps").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes codes that expired before the given time.
func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("OTP_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired otps").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}
