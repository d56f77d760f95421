// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/authtest"
	"github.com/holomush/warden/internal/fault"
)

const (
	testUsername = "SuperUser321"
	testPassword = "helloWorld781!"
	testMailFrom = "warden@example.test"
)

// spyHasher stores "salt$password" so tests stay fast, and records every
// stored hash it is asked to compare against.
type spyHasher struct {
	mu       sync.Mutex
	compared []string
	genErr   error
}

func (h *spyHasher) GenerateHash(password string) (string, error) {
	if h.genErr != nil {
		return "", h.genErr
	}
	return "00ff$" + password, nil
}

func (h *spyHasher) CompareHash(storedHash, password string) (bool, error) {
	h.mu.Lock()
	h.compared = append(h.compared, storedHash)
	h.mu.Unlock()

	salt, key, ok := strings.Cut(storedHash, "$")
	if !ok || salt == "" {
		return false, errors.New("stored hash has no salt segment")
	}
	return key == password, nil
}

func (h *spyHasher) Compared() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.compared...)
}

type fixture struct {
	accounts *authtest.AccountStore
	sessions *authtest.SessionStore
	otps     *authtest.OTPStore
	hasher   *spyHasher
	mailer   *authtest.MockMailer
	now      time.Time
	svc      *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: authtest.NewAccountStore(),
		sessions: authtest.NewSessionStore(),
		otps:     authtest.NewOTPStore(),
		hasher:   &spyHasher{},
		mailer:   authtest.NewMockMailer(t),
		now:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	f.svc = f.build(t, f.sessions)
	return f
}

// build creates a service over the fixture's stores, with sessions swapped
// for the given repository.
func (f *fixture) build(t *testing.T, sessions auth.SessionRepository) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(f.accounts, sessions, f.otps, f.hasher, f.mailer, auth.Options{
		MailFrom: testMailFrom,
		Clock:    func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return svc
}

// register creates the standard test account.
func (f *fixture) register(t *testing.T) *auth.Account {
	t.Helper()
	account, err := f.svc.Register(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	return account
}

func assertFault(t *testing.T, err error, kind fault.Kind, code string) fault.Info {
	t.Helper()
	require.Error(t, err)
	info := fault.Classify(err)
	assert.Equal(t, kind, info.Kind, "kind of %v", err)
	assert.Equal(t, code, info.Code, "code of %v", err)
	return info
}
