// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is a registered user.
type Account struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	EmailHash    string // empty when no address is registered
	Description  string
	CreatedAt    time.Time

	// FailedAttempts counts consecutive credential failures.
	FailedAttempts int
	// LockedUntil is set once FailedAttempts reaches LockoutThreshold.
	LockedUntil    *time.Time
}

// HasEmail reports whether an email address is registered for the account.
func (a *Account) HasEmail() bool {
	return a.EmailHash != ""
}

// KeyType selects the column an account is looked up by.
type KeyType int

// Account lookup keys.
const (
	KeyUsername KeyType = iota + 1
	KeyPasswordHash
	KeyUserID
)

func (k KeyType) String() string {
	switch k {
	case KeyUsername:
		return "username"
	case KeyPasswordHash:
		return "password_hash"
	case KeyUserID:
		return "user_id"
	default:
		return "unknown"
	}
}

// HashEmail returns the stored digest of an email address. Addresses are
// compared case-insensitively.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create inserts a new account. Returns ErrDuplicate if the username is taken.
	Create(ctx context.Context, account *Account) error

	// GetByUsername retrieves an account by username. Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByID retrieves an account by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByPasswordHash retrieves the account owning a credential hash.
	// Returns ErrNotFound if absent.
	GetByPasswordHash(ctx context.Context, hash string) (*Account, error)

	// UpdatePasswordHash replaces an account's credential hash.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// UpdateEmailHash replaces an account's email digest.
	UpdateEmailHash(ctx context.Context, id uuid.UUID, emailHash string) error

	// UpdateDescription replaces an account's profile description.
	UpdateDescription(ctx context.Context, id uuid.UUID, description string) error

	// RecordFailure increments the account's failure counter and returns the
	// new count. When the count reaches threshold, LockedUntil is set to
	// lockedUntil. Returns ErrNotFound if absent.
	RecordFailure(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (int, error)

	// ResetFailures clears the failure counter and any lockout.
	// Returns ErrNotFound if absent.
	ResetFailures(ctx context.Context, id uuid.UUID) error

	// Delete removes an account together with its sessions and OTPs.
	// Returns ErrNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error
}
