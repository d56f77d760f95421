// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/holomush/warden/internal/fault"
)

// Credential strength limits.
const (
	UsernameMinLength  = 8
	UsernameMaxLength  = 50
	UsernameMinDigits  = 3
	PasswordMinLength  = 8
	PasswordMinDigits  = 3
	usernameSpecialSet = "_-!."
)

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// CheckUsernameStrength rejects usernames outside 8-50 characters, with
// characters other than letters, digits and _-!. or with fewer than 3 digits.
func CheckUsernameStrength(username string) error {
	n := utf8.RuneCountInString(username)
	if n < UsernameMinLength {
		return fault.Validation("USERNAME_TOO_SHORT", "Usernames must be at least 8 characters long!")
	}
	if n > UsernameMaxLength {
		return fault.Validation("USERNAME_TOO_LONG", "Usernames cannot exceed a 50 character limit!")
	}

	digits := 0
	for _, r := range username {
		switch {
		case isASCIILetter(r):
		case isASCIIDigit(r):
			digits++
		case strings.ContainsRune(usernameSpecialSet, r):
		default:
			return fault.Validation("USERNAME_INVALID_CHARACTER",
				"Invalid character found in username! (valid characters are only: [a-z][A-Z][0-9][-][_][!][.])")
		}
	}

	if digits < UsernameMinDigits {
		return fault.Validation("USERNAME_TOO_FEW_DIGITS", "Usernames must include at least 3 digits!")
	}
	return nil
}

// CheckPasswordStrength requires at least 8 characters including a lowercase
// and an uppercase letter, 3 digits and one other character.
func CheckPasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return fault.Validation("PASSWORD_TOO_SHORT", "Password must be at least 8 characters in length!")
	}

	var lower, upper, digits, special int
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower++
		case r >= 'A' && r <= 'Z':
			upper++
		case isASCIIDigit(r):
			digits++
		default:
			special++
		}
	}

	if lower < 1 || upper < 1 {
		return fault.Validation("PASSWORD_CASE", "Password must include at least 1 lowercase and 1 uppercase character!")
	}
	if digits < PasswordMinDigits {
		return fault.Validation("PASSWORD_TOO_FEW_DIGITS", "Password must include at least 3 digits!")
	}
	if special < 1 {
		return fault.Validation("PASSWORD_NO_SPECIAL", "Password must include at least 1 special character!")
	}
	return nil
}
