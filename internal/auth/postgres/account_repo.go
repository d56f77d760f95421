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
var _ auth.AccountRepository = (*AccountRepository)(nil)

const selectAccount = `
		SELECT id, username, password_hash, COALESCE(email_hash, ''), COALESCE(description, ''), created_at,
			failed_attempts, locked_until
		FROM accounts
	`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool DB) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, account.ID, account.Username, account.PasswordHash, account.CreatedAt)
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintAccountUsername {
		return oops.Code("ACCOUNT_USERNAME_TAKEN").
			With("username", account.Username).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	return r.get(ctx, "username", selectAccount+`WHERE username = $1`, username)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	return r.get(ctx, "id", selectAccount+`WHERE id = $1`, id)
}

// GetByPasswordHash retrieves the account owning a credential hash.
func (r *AccountRepository) GetByPasswordHash(ctx context.Context, hash string) (*auth.Account, error) {
	return r.get(ctx, "password_hash", selectAccount+`WHERE password_hash = $1`, hash)
}

func (r *AccountRepository) get(ctx context.Context, column, query string, key any) (*auth.Account, error) {
	var a auth.Account
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.EmailHash, &a.Description, &a.CreatedAt,
		&a.FailedAttempts, &a.LockedUntil,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("by", column).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account").
			With("by", column).
			Wrap(err)
	}
	return &a, nil
}

// UpdatePasswordHash replaces an account's credential hash.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, "password_hash", `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
}

// UpdateEmailHash replaces an account's email digest.
func (r *AccountRepository) UpdateEmailHash(ctx context.Context, id uuid.UUID, emailHash string) error {
	return r.update(ctx, "email_hash", `UPDATE accounts SET email_hash = $2 WHERE id = $1`, id, emailHash)
}

// UpdateDescription replaces an account's profile description.
func (r *AccountRepository) UpdateDescription(ctx context.Context, id uuid.UUID, description string) error {
	return r.update(ctx, "description", `UPDATE accounts SET description = $2 WHERE id = $1`, id, description)
}

func (r *AccountRepository) update(ctx context.Context, column, query string, id uuid.UUID, value string) error {
	result, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update "+column).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordFailure increments the failure counter in one statement so
// concurrent failures are all counted.
func (r *AccountRepository) RecordFailure(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (int, error) {
	var failures int
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
			locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END
		WHERE id = $1
		RETURNING failed_attempts
	`, id, threshold, lockedUntil).Scan(&failures)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "record failure").
			With("id", id.String()).
			Wrap(err)
	}
	return failures, nil
}

// ResetFailures clears the failure counter and any lockout.
func (r *AccountRepository) ResetFailures(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET failed_attempts = 0, locked_until = NULL WHERE id = $1`, id)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "reset failures").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes an account. Sessions and OTPs cascade.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}
