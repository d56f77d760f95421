// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/holomush/warden/internal/fault"
)

// Lockout configuration. Wrong passwords and wrong one-time passwords share
// one counter per account.
const (
	// LockoutDuration is the time an account stays locked once the threshold is reached.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that locks an account.
	LockoutThreshold = 7
)

// IsLockedAt reports whether the account is locked out at t.
func (a *Account) IsLockedAt(t time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(t)
}

// ComputeLockoutTime returns the lockout deadline for an account that has
// just reached failures at now. Returns nil below LockoutThreshold.
func ComputeLockoutTime(failures int, now time.Time) *time.Time {
	if failures < LockoutThreshold {
		return nil
	}
	until := now.Add(LockoutDuration)
	return &until
}

// recordFailure counts a failed credential check against the account. An
// account that no longer exists has nothing to count against.
func (s *Service) recordFailure(ctx context.Context, account *Account, now time.Time) error {
	failures, err := s.accounts.RecordFailure(ctx, account.ID, LockoutThreshold, now.Add(LockoutDuration))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fault.Database("ACCOUNT_FAILURE_RECORD_FAILED", err).With("user_id", account.ID)
	}
	if ComputeLockoutTime(failures, now) != nil {
		s.logger.WarnContext(ctx, "account locked out", "user_id", account.ID, "failures", failures)
	}
	return nil
}

// resetFailures clears the failure counter after a successful check.
func (s *Service) resetFailures(ctx context.Context, account *Account) error {
	if account.FailedAttempts == 0 && account.LockedUntil == nil {
		return nil
	}
	if err := s.accounts.ResetFailures(ctx, account.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fault.Database("ACCOUNT_FAILURE_RESET_FAILED", err).With("user_id", account.ID)
	}
	return nil
}
