// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // G505: digest of a 256-bit random token, not a password
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/fault"
)

// SessionTokenBytes is the size of a raw session token (64 hex chars).
const SessionTokenBytes = 32

// maxSessionAttempts bounds the insert/update loop in GenerateSession.
const maxSessionAttempts = 3

// Caller-facing session messages.
const (
	msgSessionInvalid  = "Session is invalid!"
	msgLogoutNotFound  = "Session to logout from does not exist!"
	msgAccountNotFound = "Account does not exist!"
)

// Session is a stored session row. The raw token is never part of it.
type Session struct {
	HashedID  string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt reports whether the session is expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateSessionToken creates a random token and its stored digest.
func GenerateSessionToken() (token, hashedID string, err error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, DigestSessionToken(token), nil
}

// DigestSessionToken returns the hex SHA-1 digest stored for token.
func DigestSessionToken(token string) string {
	sum := sha1.Sum([]byte(token)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// SessionRepository manages session persistence. A user owns at most one row.
type SessionRepository interface {
	// Insert stores a new session. Returns ErrDuplicate if the user already
	// owns a session and ErrTokenCollision if the digest is already stored.
	Insert(ctx context.Context, session *Session) error

	// UpdateForUser replaces the digest and expiry of the session owned by
	// session.UserID. Returns ErrNotFound if the user owns none, and
	// ErrTokenCollision if the new digest is already stored.
	UpdateForUser(ctx context.Context, session *Session) error

	// GetExpiry returns the expiry of the session matching both digest and user.
	// Returns ErrNotFound if no row matches.
	GetExpiry(ctx context.Context, hashedID string, userID uuid.UUID) (time.Time, error)

	// Delete removes the session with the given digest.
	// Returns ErrNotFound if no row was deleted.
	Delete(ctx context.Context, hashedID string) error

	// DeleteExpired removes sessions that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ValidatePassword looks up exactly one account by key and checks password
// against its stored hash. A missing account is a not-found authorization
// fault wrapping ErrNotFound; a mismatch is an authorization fault carrying
// failureMessage. Mismatches count towards the account's lockout, and a
// locked account fails with failureMessage even for the right password.
func (s *Service) ValidatePassword(ctx context.Context, key string, keyType KeyType, password, failureMessage string) (*Account, error) {
	account, err := s.lookupAccount(ctx, key, keyType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.NotFound("ACCOUNT_NOT_FOUND", msgAccountNotFound, err).
				With("key_type", keyType.String())
		}
		return nil, fault.Database("ACCOUNT_LOOKUP_FAILED", err).With("key_type", keyType.String())
	}

	ok, err := s.hasher.CompareHash(account.PasswordHash, password)
	if err != nil {
		return nil, fault.Internal("ACCOUNT_HASH_INVALID", err).With("user_id", account.ID)
	}

	now := s.clock()
	if account.IsLockedAt(now) {
		// Same message as a mismatch, whatever the password was.
		return nil, fault.Unauthorized("AUTH_LOCKED_OUT", failureMessage, nil).
			With("user_id", account.ID).
			With("locked_until", *account.LockedUntil)
	}
	if !ok {
		if err := s.recordFailure(ctx, account, now); err != nil {
			return nil, err
		}
		return nil, fault.Unauthorized("AUTH_INVALID_CREDENTIALS", failureMessage, nil)
	}
	if err := s.resetFailures(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) lookupAccount(ctx context.Context, key string, keyType KeyType) (*Account, error) {
	switch keyType {
	case KeyUsername:
		return s.accounts.GetByUsername(ctx, key)
	case KeyPasswordHash:
		return s.accounts.GetByPasswordHash(ctx, key)
	case KeyUserID:
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, oops.With("key", "user_id").Wrap(ErrNotFound)
		}
		return s.accounts.GetByID(ctx, id)
	default:
		return nil, oops.Code("ACCOUNT_KEY_INVALID").With("key_type", int(keyType)).Errorf("unknown account key type")
	}
}

// GenerateSession issues a session for userID and returns the raw token.
// If the user already owns a session, that row is rewritten in place with
// the new digest and expiry. A digest collision with another row regenerates
// the token; another user's row is never modified.
func (s *Service) GenerateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	for attempt := 1; attempt <= maxSessionAttempts; attempt++ {
		token, hashedID, err := GenerateSessionToken()
		if err != nil {
			return "", fault.Internal("SESSION_TOKEN_FAILED", err)
		}

		now := s.clock()
		session := &Session{
			HashedID:  hashedID,
			UserID:    userID,
			ExpiresAt: now.Add(s.sessionTTL),
			CreatedAt: now,
		}

		err = s.sessions.Insert(ctx, session)
		if errors.Is(err, ErrDuplicate) {
			err = s.sessions.UpdateForUser(ctx, session)
			if errors.Is(err, ErrNotFound) {
				// The user's row was deleted between the insert and the update.
				s.logger.DebugContext(ctx, "session vanished during update, retrying insert",
					"user_id", userID, "attempt", attempt)
				continue
			}
		}
		if errors.Is(err, ErrTokenCollision) {
			s.logger.WarnContext(ctx, "session digest collision, regenerating token",
				"user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			return "", fault.Database("SESSION_CREATE_FAILED", err).With("user_id", userID)
		}
		return token, nil
	}

	return "", fault.Database("SESSION_CREATE_FAILED",
		oops.With("attempts", maxSessionAttempts).Errorf("could not store session")).
		With("user_id", userID)
}

// ValidateSession checks that token belongs to userID and has not expired at
// now. Unknown and expired sessions carry distinct codes but the same
// caller-facing message.
func (s *Service) ValidateSession(ctx context.Context, token string, userID uuid.UUID, now time.Time) error {
	expiresAt, err := s.sessions.GetExpiry(ctx, DigestSessionToken(token), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fault.Unauthorized("SESSION_INVALID", msgSessionInvalid, err)
		}
		return fault.Database("SESSION_LOOKUP_FAILED", err).With("user_id", userID)
	}

	if now.After(expiresAt) {
		return fault.Unauthorized("SESSION_EXPIRED", msgSessionInvalid, nil).
			With("expired_at", expiresAt)
	}
	return nil
}

// Logout deletes the session identified by token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, DigestSessionToken(token)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fault.NotFound("SESSION_NOT_FOUND", msgLogoutNotFound, err)
		}
		return fault.Database("SESSION_DELETE_FAILED", err)
	}
	return nil
}
