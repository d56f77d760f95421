// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/fault"
)

// OTPLength is the number of decimal digits in a one-time password.
const OTPLength = 6

// maxOTPAttempts bounds regeneration when a user is issued a code they already hold.
const maxOTPAttempts = 3

// OTP mail content.
const (
	OTPSubject     = "One Time Password Sent For Verification!"
	otpBodyPattern = "Your one time password is: %s, make sure you do not share it with anyone!"
)

const msgOTPInvalid = "Invalid one time password provided!"


var otpUpperBound = big.NewInt(1_000_000)

// OTP is a stored one-time password scoped to a user.
type OTP struct {
	UserID    uuid.UUID
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// OTPRepository manages one-time password persistence. Rows are keyed by
// (user id, code).
type OTPRepository interface {
	// Insert stores a new OTP. Returns ErrDuplicate if the user already holds the code.
	Insert(ctx context.Context, otp *OTP) error

	// GetExpiry returns the expiry of the user's code. Returns ErrNotFound if absent.
	GetExpiry(ctx context.Context, userID uuid.UUID, code string) (time.Time, error)

	// Delete removes the user's code. Returns ErrNotFound if absent.
	Delete(ctx context.Context, userID uuid.UUID, code string) error

	// DeleteForUser removes every code the user holds.
	DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpired removes codes that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Mailer delivers mail on a best-effort basis.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// GenerateOTPCode returns a zero-padded random decimal code.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpUpperBound)
	if err != nil {
		return "", oops.Code("OTP_GENERATE_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// GenerateOTP issues a one-time password for userID and mails it to email.
// Codes issued earlier are revoked, so a user holds at most one. Storage and
// delivery failures are reported alike.
func (s *Service) GenerateOTP(ctx context.Context, userID uuid.UUID, email string) error {
	if _, err := s.otps.DeleteForUser(ctx, userID); err != nil {
		return fault.Database("OTP_REVOKE_FAILED", err).With("user_id", userID)
	}

	var otp *OTP
	for attempt := 1; attempt <= maxOTPAttempts; attempt++ {
		code, err := GenerateOTPCode()
		if err != nil {
			return fault.Internal("OTP_GENERATE_FAILED", err)
		}

		now := s.clock()
		candidate := &OTP{UserID: userID, Code: code, ExpiresAt: now.Add(s.otpTTL), CreatedAt: now}
		err = s.otps.Insert(ctx, candidate)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return fault.Database("OTP_CREATE_FAILED", err).With("user_id", userID)
		}
		otp = candidate
		break
	}
	if otp == nil {
		return fault.Database("OTP_CREATE_FAILED",
			oops.With("attempts", maxOTPAttempts).Errorf("could not store one time password")).
			With("user_id", userID)
	}

	body := fmt.Sprintf(otpBodyPattern, otp.Code)
	if err := s.mailer.Send(ctx, s.mailFrom, email, OTPSubject, body); err != nil {
		return fault.Database("OTP_DELIVERY_FAILED", err).With("user_id", userID)
	}

	s.logger.InfoContext(ctx, "one time password issued", "user_id", userID, "expires_at", otp.ExpiresAt)
	return nil
}

// ValidateOTP checks the user's code at now. An expired code is deleted
// before the failure is returned. A valid code is left in place; callers
// that act on it should use ConsumeOTP.
//
// Unknown codes count towards the account's lockout. While the account is
// locked every code is rejected as invalid.
func (s *Service) ValidateOTP(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	account, err := s.accounts.GetByID(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		// No account, no codes and no counter.
		account = &Account{ID: userID}
	case err != nil:
		return fault.Database("ACCOUNT_LOOKUP_FAILED", err).With("user_id", userID)
	}
	if account.IsLockedAt(now) {
		return fault.Unauthorized("OTP_LOCKED_OUT", msgOTPInvalid, nil).
			With("user_id", userID).
			With("locked_until", *account.LockedUntil)
	}

	expiresAt, err := s.otps.GetExpiry(ctx, userID, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if err := s.recordFailure(ctx, account, now); err != nil {
				return err
			}
			return fault.NotFound("OTP_NOT_FOUND", msgOTPInvalid, err)
		}
		return fault.Database("OTP_LOOKUP_FAILED", err).With("user_id", userID)
	}

	if now.After(expiresAt) {
		if err := s.otps.Delete(ctx, userID, code); err != nil && !errors.Is(err, ErrNotFound) {
			return fault.Database("OTP_DELETE_FAILED", err).With("user_id", userID)
		}
		return fault.Unauthorized("OTP_EXPIRED", "One time password is expired!", nil).
			With("expired_at", expiresAt)
	}
	return s.resetFailures(ctx, account)
}

// ConsumeOTP validates the user's code and deletes it so it cannot be used again.
func (s *Service) ConsumeOTP(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	if err := s.ValidateOTP(ctx, userID, code, now); err != nil {
		return err
	}
	if err := s.otps.Delete(ctx, userID, code); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Consumed concurrently.
			return fault.NotFound("OTP_NOT_FOUND", msgOTPInvalid, err)
		}
		return fault.Database("OTP_DELETE_FAILED", err).With("user_id", userID)
	}
	return nil
}
