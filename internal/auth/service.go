// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Default lifetimes.
const (
	DefaultSessionTTL = 8 * time.Hour
	DefaultOTPTTL     = 10 * time.Minute
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	SessionTTL time.Duration
	OTPTTL     time.Duration
	// MailFrom is the sender address used for OTP delivery.
	MailFrom string
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Service is the credential and session authority. It is constructed once by
// the process bootstrap and shared by every request handler.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	otps     OTPRepository
	hasher   PasswordHasher
	mailer   Mailer

	sessionTTL time.Duration
	otpTTL     time.Duration
	mailFrom   string
	logger     *slog.Logger
	clock      func() time.Time
}

// NewService creates a Service. All collaborators are required.
func NewService(
	accounts AccountRepository,
	sessions SessionRepository,
	otps OTPRepository,
	hasher PasswordHasher,
	mailer Mailer,
	opts Options,
) (*Service, error) {
	switch {
	case accounts == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	case sessions == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("session repository is required")
	case otps == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("otp repository is required")
	case hasher == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	case mailer == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("mailer is required")
	}

	s := &Service{
		accounts:   accounts,
		sessions:   sessions,
		otps:       otps,
		hasher:     hasher,
		mailer:     mailer,
		sessionTTL: opts.SessionTTL,
		otpTTL:     opts.OTPTTL,
		mailFrom:   opts.MailFrom,
		logger:     opts.Logger,
		clock:      opts.Clock,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.otpTTL <= 0 {
		s.otpTTL = DefaultOTPTTL
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s, nil
}

// SessionTTL returns the lifetime of issued sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}
