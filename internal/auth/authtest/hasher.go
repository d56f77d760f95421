// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest

import (
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

var _ auth.PasswordHasher = PlainHasher{}

// PlainHasher stores "00$<password>". It keeps the salt$key shape of real
// hashes without the cost of key derivation.
type PlainHasher struct{}

// GenerateHash implements auth.PasswordHasher.
func (PlainHasher) GenerateHash(password string) (string, error) {
	return "00$" + password, nil
}

// CompareHash implements auth.PasswordHasher.
func (PlainHasher) CompareHash(storedHash, password string) (bool, error) {
	salt, key, ok := strings.Cut(storedHash, "$")
	if !ok || salt == "" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("stored hash has no salt segment")
	}
	return key == password, nil
}
