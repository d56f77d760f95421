// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Repository sentinels. Implementations wrap these so callers can match with
// errors.Is.
var (
	// ErrNotFound is returned when a lookup, update or delete matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates the natural key of the
	// row: a taken username, a user that already owns a session, or an OTP
	// code already issued to the same user.
	ErrDuplicate = errors.New("duplicate")

	// ErrTokenCollision is returned when a session digest is already stored
	// for another row.
	ErrTokenCollision = errors.New("session token collision")
)
