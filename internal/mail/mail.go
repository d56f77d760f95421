// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail delivers one-time passwords and other account mail.
package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"
)

// DefaultTimeout bounds a single SMTP conversation.
const DefaultTimeout = 15 * time.Second

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	host string
	opts []gomail.Option
}

// NewSMTPMailer creates an SMTPMailer. Implicit TLS is used when SSL is set,
// otherwise STARTTLS is attempted when the relay offers it. PLAIN auth is used
// when a username is given.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("port", cfg.Port).Errorf("smtp port must be positive")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(timeout),
	}
	if cfg.SSL {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	// Validate the options once so Send only fails on delivery.
	if _, err := gomail.NewClient(cfg.Host, opts...); err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("host", cfg.Host).Wrap(err)
	}
	return &SMTPMailer{host: cfg.Host, opts: opts}, nil
}

// Send delivers a plain-text message.
func (m *SMTPMailer) Send(ctx context.Context, from, to, subject, body string) error {
	msg, err := newMessage(from, to, subject, body)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(m.host, m.opts...)
	if err != nil {
		return oops.Code("MAIL_CONFIG_INVALID").With("host", m.host).Wrap(err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("host", m.host).Wrap(err)
	}
	return nil
}

func newMessage(from, to, subject, body string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, oops.Code("MAIL_INVALID_SENDER").With("from", from).Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return nil, oops.Code("MAIL_INVALID_RECIPIENT").Wrap(err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}

// LogMailer records mail in the log instead of sending it. The body is never
// logged.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send validates the addresses and logs the envelope.
func (m *LogMailer) Send(ctx context.Context, from, to, subject, _ string) error {
	if _, err := newMessage(from, to, subject, ""); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not sent, no smtp relay configured",
		"from", from, "to", to, "subject", subject)
	return nil
}
