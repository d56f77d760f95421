// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth is the credential and session authority.
//
// # Service
//
// Service is built once by the process bootstrap with NewService and handed
// to request handlers. It covers:
//   - Register - account creation with strength checks
//   - ValidatePassword - proving knowledge of an account's password
//   - Login - authenticate and issue a session, with a decoy comparison for
//     unknown usernames
//   - GenerateSession, ValidateSession, Logout - one session per user, stored
//     only as a SHA-1 digest of the token
//   - GenerateOTP, ValidateOTP, ConsumeOTP - mailed one-time passwords
//   - UpdateAccount, RequestOTP, DeleteAccount - authenticated account changes
//
// Wrong passwords and unknown one-time passwords count against the account.
// After LockoutThreshold consecutive failures it is locked for
// LockoutDuration, during which every credential check fails with the same
// message a wrong credential gets.
//
// Every failure returned by Service is a *fault.Error, so transports can
// classify it without inspecting storage errors.
//
// # Storage
//
// Persistence is reached through AccountRepository, SessionRepository and
// OTPRepository. Implementations signal ErrNotFound, ErrDuplicate and
// ErrTokenCollision by wrapping the sentinels.
//
// ExpiryWorker purges expired sessions and one-time passwords in the
// background.
package auth
