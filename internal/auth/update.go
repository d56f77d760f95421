// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/holomush/warden/internal/fault"
)

// DescriptionMaxLength is the longest profile description accepted.
const DescriptionMaxLength = 500

const (
	msgPasswordIncorrect = "Password provided is incorrect!"
	msgOTPMissing        = "No one time password provided!"
)

// UpdateRequest is one account mutation. The concrete types below are the
// only implementations.
type UpdateRequest interface {
	updateRequest()
}

// PasswordWithExisting changes the password after proving the current one.
type PasswordWithExisting struct {
	Current string
	New     string
}

// PasswordWithOTP changes the password after proving a mailed one-time password.
type PasswordWithOTP struct {
	Code string
	New  string
}

// EmailUpdate registers the account email after proving the password.
// Replacing a registered address also needs a one-time password mailed to
// that address.
type EmailUpdate struct {
	Password string
	Email    string
	Code     string
}

// DescriptionUpdate replaces the profile description.
type DescriptionUpdate struct {
	Description string
}

func (PasswordWithExisting) updateRequest() {}
func (PasswordWithOTP) updateRequest()      {}
func (EmailUpdate) updateRequest()          {}
func (DescriptionUpdate) updateRequest()    {}

// UpdateAccount applies req to the account of an authenticated user.
func (s *Service) UpdateAccount(ctx context.Context, userID uuid.UUID, req UpdateRequest) error {
	switch r := req.(type) {
	case PasswordWithExisting:
		return s.updatePasswordWithExisting(ctx, userID, r)
	case PasswordWithOTP:
		return s.updatePasswordWithOTP(ctx, userID, r)
	case EmailUpdate:
		return s.updateEmail(ctx, userID, r)
	case DescriptionUpdate:
		return s.updateDescription(ctx, userID, r)
	default:
		return fault.Validation("UPDATE_INVALID", "Failed to update information for user, no state given!")
	}
}

func (s *Service) updatePasswordWithExisting(ctx context.Context, userID uuid.UUID, r PasswordWithExisting) error {
	if _, err := s.ValidatePassword(ctx, userID.String(), KeyUserID, r.Current, msgPasswordIncorrect); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, r.New)
}

func (s *Service) updatePasswordWithOTP(ctx context.Context, userID uuid.UUID, r PasswordWithOTP) error {
	if r.Code == "" {
		return fault.Validation("OTP_MISSING", msgOTPMissing)
	}
	if err := CheckPasswordStrength(r.New); err != nil {
		return err
	}
	if err := s.ConsumeOTP(ctx, userID, r.Code, s.clock()); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, r.New)
}

func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if err := CheckPasswordStrength(password); err != nil {
		return err
	}
	hash, err := s.hasher.GenerateHash(password)
	if err != nil {
		return fault.Internal("ACCOUNT_HASH_FAILED", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return s.accountWriteFault("ACCOUNT_PASSWORD_UPDATE_FAILED", userID, err)
	}
	s.logger.InfoContext(ctx, "password updated", "user_id", userID)
	return nil
}

func (s *Service) updateEmail(ctx context.Context, userID uuid.UUID, r EmailUpdate) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(r.Email))
	if err != nil || addr.Name != "" {
		return fault.Validation("EMAIL_INVALID", "Email address provided is invalid!")
	}
	account, err := s.ValidatePassword(ctx, userID.String(), KeyUserID, r.Password, msgPasswordIncorrect)
	if err != nil {
		return err
	}
	if account.HasEmail() {
		if r.Code == "" {
			return fault.Validation("OTP_MISSING", msgOTPMissing)
		}
		if err := s.ConsumeOTP(ctx, userID, r.Code, s.clock()); err != nil {
			return err
		}
	}
	if err := s.accounts.UpdateEmailHash(ctx, userID, HashEmail(addr.Address)); err != nil {
		return s.accountWriteFault("ACCOUNT_EMAIL_UPDATE_FAILED", userID, err)
	}
	return nil
}

func (s *Service) updateDescription(ctx context.Context, userID uuid.UUID, r DescriptionUpdate) error {
	if r.Description == "" {
		return fault.Validation("DESCRIPTION_MISSING", "Failed to update description, no content received!")
	}
	if utf8.RuneCountInString(r.Description) > DescriptionMaxLength {
		return fault.Validation("DESCRIPTION_TOO_LONG", "Description cannot exceed a 500 character limit!")
	}
	if err := s.accounts.UpdateDescription(ctx, userID, r.Description); err != nil {
		return s.accountWriteFault("ACCOUNT_DESCRIPTION_UPDATE_FAILED", userID, err)
	}
	return nil
}

// RequestOTP mails a one-time password to email if it is the address
// registered for the account.
func (s *Service) RequestOTP(ctx context.Context, userID uuid.UUID, email string) error {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fault.NotFound("ACCOUNT_NOT_FOUND", msgAccountNotFound, err)
		}
		return fault.Database("ACCOUNT_LOOKUP_FAILED", err).With("user_id", userID)
	}
	if !account.HasEmail() {
		return fault.Validation("EMAIL_NOT_REGISTERED", "No email address is registered for this account!")
	}
	if HashEmail(email) != account.EmailHash {
		return fault.Unauthorized("EMAIL_MISMATCH", "Email address does not match the one registered for this account!", nil)
	}
	return s.GenerateOTP(ctx, userID, strings.TrimSpace(email))
}

// DeleteAccount removes the account after proving the password. Its sessions
// and one-time passwords go with it.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	if _, err := s.ValidatePassword(ctx, userID.String(), KeyUserID, password, msgPasswordIncorrect); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, userID); err != nil {
		return s.accountWriteFault("ACCOUNT_DELETE_FAILED", userID, err)
	}
	s.logger.InfoContext(ctx, "account deleted", "user_id", userID)
	return nil
}

func (s *Service) accountWriteFault(code string, userID uuid.UUID, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fault.NotFound("ACCOUNT_NOT_FOUND", msgAccountNotFound, err)
	}
	return fault.Database(code, err).With("user_id", userID)
}
