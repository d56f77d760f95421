// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides in-memory auth repositories and a mock mailer
// for tests.
//
// The stores enforce the same keys as the PostgreSQL schema: unique
// usernames, one session per user, unique session digests and (user, code)
// one-time passwords. Each store has a Fail map; an error set for a method
// name is returned by that method instead of touching the data.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/holomush/warden/internal/auth"
)

// Compile-time interface checks.
var (
	_ auth.AccountRepository = (*AccountStore)(nil)
	_ auth.SessionRepository = (*SessionStore)(nil)
	_ auth.OTPRepository     = (*OTPStore)(nil)
)

// AccountStore is an in-memory auth.AccountRepository.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]auth.Account
	Fail     map[string]error
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[uuid.UUID]auth.Account), Fail: make(map[string]error)}
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Create implements auth.AccountRepository.
func (s *AccountStore) Create(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["Create"]; err != nil {
		return err
	}
	for _, a := range s.accounts {
		if a.Username == account.Username {
			return auth.ErrDuplicate
		}
	}
	s.accounts[account.ID] = *account
	return nil
}

func (s *AccountStore) find(method string, match func(a auth.Account) bool) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail[method]; err != nil {
		return nil, err
	}
	for _, a := range s.accounts {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByUsername implements auth.AccountRepository.
func (s *AccountStore) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	return s.find("GetByUsername", func(a auth.Account) bool { return a.Username == username })
}

// GetByID implements auth.AccountRepository.
func (s *AccountStore) GetByID(_ context.Context, id uuid.UUID) (*auth.Account, error) {
	return s.find("GetByID", func(a auth.Account) bool { return a.ID == id })
}

// GetByPasswordHash implements auth.AccountRepository.
func (s *AccountStore) GetByPasswordHash(_ context.Context, hash string) (*auth.Account, error) {
	return s.find("GetByPasswordHash", func(a auth.Account) bool { return a.PasswordHash == hash })
}

func (s *AccountStore) mutate(method string, id uuid.UUID, apply func(a *auth.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail[method]; err != nil {
		return err
	}
	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	apply(&a)
	s.accounts[id] = a
	return nil
}

// UpdatePasswordHash implements auth.AccountRepository.
func (s *AccountStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	return s.mutate("UpdatePasswordHash", id, func(a *auth.Account) { a.PasswordHash = hash })
}

// UpdateEmailHash implements auth.AccountRepository.
func (s *AccountStore) UpdateEmailHash(_ context.Context, id uuid.UUID, emailHash string) error {
	return s.mutate("UpdateEmailHash", id, func(a *auth.Account) { a.EmailHash = emailHash })
}

// UpdateDescription implements auth.AccountRepository.
func (s *AccountStore) UpdateDescription(_ context.Context, id uuid.UUID, description string) error {
	return s.mutate("UpdateDescription", id, func(a *auth.Account) { a.Description = description })
}

// RecordFailure implements auth.AccountRepository.
func (s *AccountStore) RecordFailure(_ context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (int, error) {
	var failures int
	err := s.mutate("RecordFailure", id, func(a *auth.Account) {
		a.FailedAttempts++
		if a.FailedAttempts >= threshold {
			until := lockedUntil
			a.LockedUntil = &until
		}
		failures = a.FailedAttempts
	})
	return failures, err
}

// ResetFailures implements auth.AccountRepository.
func (s *AccountStore) ResetFailures(_ context.Context, id uuid.UUID) error {
	return s.mutate("ResetFailures", id, func(a *auth.Account) {
		a.FailedAttempts = 0
		a.LockedUntil = nil
	})
}

// Delete implements auth.AccountRepository. Cascading to sessions and OTPs is
// left to the caller's other stores.
func (s *AccountStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["Delete"]; err != nil {
		return err
	}
	if _, ok := s.accounts[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

// SessionStore is an in-memory auth.SessionRepository.
type SessionStore struct {
	mu       sync.Mutex
	byDigest map[string]auth.Session
	Fail     map[string]error
	// BeforeInsert, if set, runs at the start of every Insert. Tests use it
	// to stage races.
	BeforeInsert func(s *SessionStore, session *auth.Session)
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{byDigest: make(map[string]auth.Session), Fail: make(map[string]error)}
}

// Put stores a session without any checks.
func (s *SessionStore) Put(session auth.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDigest[session.HashedID] = session
}

// ForUser returns the sessions owned by userID.
func (s *SessionStore) ForUser(userID uuid.UUID) []auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.Session
	for _, sess := range s.byDigest {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byDigest)
}

// DeleteUser removes every session owned by userID.
func (s *SessionStore) DeleteUser(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for digest, sess := range s.byDigest {
		if sess.UserID == userID {
			delete(s.byDigest, digest)
		}
	}
}

// Insert implements auth.SessionRepository.
func (s *SessionStore) Insert(_ context.Context, session *auth.Session) error {
	if s.BeforeInsert != nil {
		s.BeforeInsert(s, session)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["Insert"]; err != nil {
		return err
	}
	if _, ok := s.byDigest[session.HashedID]; ok {
		return auth.ErrTokenCollision
	}
	for _, existing := range s.byDigest {
		if existing.UserID == session.UserID {
			return auth.ErrDuplicate
		}
	}
	s.byDigest[session.HashedID] = *session
	return nil
}

// UpdateForUser implements auth.SessionRepository.
func (s *SessionStore) UpdateForUser(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["UpdateForUser"]; err != nil {
		return err
	}
	if existing, ok := s.byDigest[session.HashedID]; ok && existing.UserID != session.UserID {
		return auth.ErrTokenCollision
	}
	for digest, existing := range s.byDigest {
		if existing.UserID == session.UserID {
			delete(s.byDigest, digest)
			s.byDigest[session.HashedID] = *session
			return nil
		}
	}
	return auth.ErrNotFound
}

// GetExpiry implements auth.SessionRepository.
func (s *SessionStore) GetExpiry(_ context.Context, hashedID string, userID uuid.UUID) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["GetExpiry"]; err != nil {
		return time.Time{}, err
	}
	sess, ok := s.byDigest[hashedID]
	if !ok || sess.UserID != userID {
		return time.Time{}, auth.ErrNotFound
	}
	return sess.ExpiresAt, nil
}

// Delete implements auth.SessionRepository.
func (s *SessionStore) Delete(_ context.Context, hashedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["Delete"]; err != nil {
		return err
	}
	if _, ok := s.byDigest[hashedID]; !ok {
		return auth.ErrNotFound
	}
	delete(s.byDigest, hashedID)
	return nil
}

// DeleteExpired implements auth.SessionRepository.
func (s *SessionStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["DeleteExpired"]; err != nil {
		return 0, err
	}
	var n int64
	for digest, sess := range s.byDigest {
		if sess.ExpiresAt.Before(before) {
			delete(s.byDigest, digest)
			n++
		}
	}
	return n, nil
}

type otpKey struct {
	userID uuid.UUID
	code   string
}

// OTPStore is an in-memory auth.OTPRepository.
type OTPStore struct {
	mu   sync.Mutex
	otps map[otpKey]auth.OTP
	Fail map[string]error
}

// NewOTPStore creates an empty OTPStore.
func NewOTPStore() *OTPStore {
	return &OTPStore{otps: make(map[otpKey]auth.OTP), Fail: make(map[string]error)}
}

// Put stores an OTP without any checks.
func (s *OTPStore) Put(otp auth.OTP) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[otpKey{otp.UserID, otp.Code}] = otp
}

// ForUser returns the codes held by userID.
func (s *OTPStore) ForUser(userID uuid.UUID) []auth.OTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.OTP
	for k, otp := range s.otps {
		if k.userID == userID {
			out = append(out, otp)
		}
	}
	return out
}

// Insert implements auth.OTPRepository.
func (s *OTPStore) Insert(_ context.Context, otp *auth.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["Insert"]; err != nil {
		return err
	}
	key := otpKey{otp.UserID, otp.Code}
	if _, ok := s.otps[key]; ok {
		return auth.ErrDuplicate
	}
	s.otps[key] = *otp
	return nil
}

// GetExpiry implements auth.OTPRepository.
func (s *OTPStore) GetExpiry(_ context.Context, userID uuid.UUID, code string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["GetExpiry"]; err != nil {
		return time.Time{}, err
	}
	otp, ok := s.otps[otpKey{userID, code}]
	if !ok {
		return time.Time{}, auth.ErrNotFound
	}
	return otp.ExpiresAt, nil
}

// Delete implements auth.OTPRepository.
func (s *OTPStore) Delete(_ context.Context, userID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["Delete"]; err != nil {
		return err
	}
	key := otpKey{userID, code}
	if _, ok := s.otps[key]; !ok {
		return auth.ErrNotFound
	}
	delete(s.otps, key)
	return nil
}

// DeleteForUser implements auth.OTPRepository.
func (s *OTPStore) DeleteForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["DeleteForUser"]; err != nil {
		return 0, err
	}
	var n int64
	for key := range s.otps {
		if key.userID == userID {
			delete(s.otps, key)
			n++
		}
	}
	return n, nil
}

// DeleteExpired implements auth.OTPRepository.
func (s *OTPStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail["DeleteExpired"]; err != nil {
		return 0, err
	}
	var n int64
	for key, otp := range s.otps {
		if otp.ExpiresAt.Before(before) {
			delete(s.otps, key)
			n++
		}
	}
	return n, nil
}
