// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/holomush/warden/internal/fault"
)

// Register creates an account for username. No session is issued.
// A taken username is a conflict; any other storage failure is a database
// fault.
func (s *Service) Register(ctx context.Context, username, password string) (*Account, error) {
	if err := CheckUsernameStrength(username); err != nil {
		return nil, err
	}
	if err := CheckPasswordStrength(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.GenerateHash(password)
	if err != nil {
		return nil, fault.Internal("ACCOUNT_HASH_FAILED", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fault.Internal("ACCOUNT_ID_FAILED", err)
	}

	account := &Account{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.clock(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, fault.Conflict("USERNAME_TAKEN",
				fmt.Sprintf("Could not create account because username %q has already been taken!", username),
				err,
			).With("username", username)
		}
		return nil, fault.Database("ACCOUNT_CREATE_FAILED", err).With("username", username)
	}

	s.logger.InfoContext(ctx, "account registered", "user_id", account.ID)
	return account, nil
}
