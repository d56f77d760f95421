// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/holomush/warden/internal/fault"
)

// Login failure messages returned to callers.
const (
	MsgInvalidCredentials = "Credentials for username or password are incorrect, please try again!"
	MsgLoginInternal      = "Could not process credentials properly due to internal server error!"
)

// DecoyHash is compared against when a login names an unknown account so
// that path derives a key just like a wrong password does. It must stay the
// same for every instance of a build; no password is known to match it.
//
//nolint:gosec // G101: decoy hash for timing equalization, not a credential
const DecoyHash = "ea28326f8e6bc4dd779ae95d26a763b553866ab29640f2ac7d9d533283f45048$0cc58be6aea290a8ae7fb3be6908e4bf810dc750357c3208f7fd07bee4e6a168e578d38da237a3b2701761bbee280d318a8f195dfeac9b74db88b02b2ad6f6d5"

// Login authenticates username and password and issues a session.
// It returns the raw session token and the account id.
//
// Unknown usernames and wrong passwords fail with the same authorization
// fault after the same amount of key derivation. Other failures are reported
// as an internal authorization fault that keeps the cause server-side.
func (s *Service) Login(ctx context.Context, username, password string) (string, uuid.UUID, error) {
	account, err := s.ValidatePassword(ctx, username, KeyUsername, password, MsgInvalidCredentials)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		// Unknown account: derive against the decoy and discard the result.
		_, _ = s.hasher.CompareHash(DecoyHash, password)
		return "", uuid.Nil, fault.Unauthorized("AUTH_INVALID_CREDENTIALS", MsgInvalidCredentials, nil)
	case fault.Is(err, fault.KindAuthorization):
		return "", uuid.Nil, err
	default:
		return "", uuid.Nil, fault.AuthInternal("AUTH_INTERNAL", MsgLoginInternal, err)
	}

	token, err := s.GenerateSession(ctx, account.ID)
	if err != nil {
		return "", uuid.Nil, fault.AuthInternal("AUTH_INTERNAL", MsgLoginInternal, err)
	}

	s.logger.InfoContext(ctx, "session issued", "user_id", account.ID)
	return token, account.ID, nil
}
