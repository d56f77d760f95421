// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. The derived key is 64 bytes and the salt 32 random
// bytes; both are stored hex-encoded.
const (
	scryptN       = 16384
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 64
	scryptSaltLen = 32

	hashDelimiter = "$"
)

// PasswordHasher derives and verifies salted password hashes.
type PasswordHasher interface {
	// GenerateHash returns "<salt-hex>$<key-hex>" for password using a fresh salt.
	GenerateHash(password string) (string, error)

	// CompareHash reports whether password matches storedHash.
	// A stored hash without a salt segment is an error, not a mismatch.
	CompareHash(storedHash, password string) (bool, error)
}

// ScryptHasher implements PasswordHasher using scrypt.
type ScryptHasher struct {
	n, r, p int
}

// NewScryptHasher creates a ScryptHasher with the default cost parameters.
func NewScryptHasher() *ScryptHasher {
	return &ScryptHasher{n: scryptN, r: scryptR, p: scryptP}
}

// GenerateHash derives a key for password under a new random salt.
func (h *ScryptHasher) GenerateHash(password string) (string, error) {
	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	saltHex := hex.EncodeToString(salt)

	key, err := h.derive(password, saltHex)
	if err != nil {
		return "", err
	}
	return saltHex + hashDelimiter + hex.EncodeToString(key), nil
}

// CompareHash re-derives the key with the stored salt and compares the key
// segment in constant time.
func (h *ScryptHasher) CompareHash(storedHash, password string) (bool, error) {
	saltHex, keyHex, found := strings.Cut(storedHash, hashDelimiter)
	if !found || saltHex == "" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("stored hash has no salt segment")
	}

	key, err := h.derive(password, saltHex)
	if err != nil {
		return false, err
	}

	computed := hex.EncodeToString(key)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(keyHex)) == 1, nil
}

// derive runs scrypt over the hex text of the salt, which is what stored
// hashes were generated with.
func (h *ScryptHasher) derive(password, saltHex string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(saltHex), h.n, h.r, h.p, scryptKeyLen)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("n", h.n).
			With("r", h.r).
			With("p", h.p).
			Wrap(err)
	}
	return key, nil
}
