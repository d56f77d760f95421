// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/warden/internal/auth"
)

var _ auth.Mailer = (*MockMailer)(nil)

// MockMailer is a testify mock of auth.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a MockMailer whose expectations are asserted when
// the test ends.
func NewMockMailer(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockMailer {
	m := &MockMailer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Send implements auth.Mailer.
func (m *MockMailer) Send(ctx context.Context, from, to, subject, body string) error {
	args := m.Called(ctx, from, to, subject, body)
	return args.Error(0)
}
