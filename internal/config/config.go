// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads warden configuration from an optional YAML file,
// command-line flags and environment variables.
//
// Precedence, lowest first: built-in defaults, the config file, explicitly
// set flags, environment variables. Secrets are expected in the environment.
package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/logging"
)

// Defaults.
const (
	DefaultHTTPAddr         = ":8080"
	DefaultMetricsAddr      = "127.0.0.1:9100"
	DefaultLogFormat        = "json"
	DefaultLogLevel         = "info"
	DefaultDBConnectRetries = 5
	DefaultSMTPPort         = 465

	// MinCookieHashKeyLen is the shortest accepted cookie signing key.
	MinCookieHashKeyLen = 32
)

// Config is the complete server configuration.
type Config struct {
	HTTPAddr    string `koanf:"http-addr"`
	MetricsAddr string `koanf:"metrics-addr"`
	LogFormat   string `koanf:"log-format"`
	LogLevel    string `koanf:"log-level"`

	DatabaseURL      string `koanf:"database-url" env:"DATABASE_URL"`
	DBConnectRetries uint64 `koanf:"db-connect-retries"`
	AutoMigrate      bool   `koanf:"auto-migrate"`

	SessionTTL    time.Duration `koanf:"session-ttl"`
	OTPTTL        time.Duration `koanf:"otp-ttl"`
	SweepInterval time.Duration `koanf:"sweep-interval"`

	SMTPHost     string `koanf:"smtp-host" env:"WARDEN_SMTP_HOST"`
	SMTPPort     int    `koanf:"smtp-port"`
	SMTPSSL      bool   `koanf:"smtp-ssl"`
	SMTPUsername string `koanf:"smtp-username" env:"WARDEN_SMTP_USERNAME"`
	SMTPPassword string `koanf:"smtp-password" env:"WARDEN_SMTP_PASSWORD"`
	MailFrom     string `koanf:"mail-from" env:"WARDEN_MAIL_FROM"`

	CookieHashKey  string `koanf:"cookie-hash-key" env:"WARDEN_COOKIE_HASH_KEY"`
	CookieBlockKey string `koanf:"cookie-block-key" env:"WARDEN_COOKIE_BLOCK_KEY"`
	CookieSecure   bool   `koanf:"cookie-secure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:         DefaultHTTPAddr,
		MetricsAddr:      DefaultMetricsAddr,
		LogFormat:        DefaultLogFormat,
		LogLevel:         DefaultLogLevel,
		DBConnectRetries: DefaultDBConnectRetries,
		AutoMigrate:      true,
		SessionTTL:       auth.DefaultSessionTTL,
		OTPTTL:           auth.DefaultOTPTTL,
		SweepInterval:    auth.DefaultSweepInterval,
		SMTPPort:         DefaultSMTPPort,
		SMTPSSL:          true,
		CookieSecure:     true,
	}
}

// RegisterFlags adds the non-secret settings to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTPAddr, "HTTP API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Uint64("db-connect-retries", d.DBConnectRetries, "database connection attempts at startup")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply pending migrations at startup")
	fs.Duration("session-ttl", d.SessionTTL, "session lifetime")
	fs.Duration("otp-ttl", d.OTPTTL, "one time password lifetime")
	fs.Duration("sweep-interval", d.SweepInterval, "interval between expired row purges")
	fs.String("smtp-host", "", "SMTP relay host (empty = log mail instead of sending)")
	fs.Int("smtp-port", d.SMTPPort, "SMTP relay port")
	fs.Bool("smtp-ssl", d.SMTPSSL, "use implicit TLS for SMTP")
	fs.String("mail-from", "", "sender address for account mail")
	fs.Bool("cookie-secure", d.CookieSecure, "mark the session cookie Secure")
}

// Load builds a Config from the file at path (optional), the flags in fs
// (optional) and the environment, then validates it.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "merge").Wrap(err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// Validate checks that the configuration is usable by the server.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return invalid("http-addr", "http-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log-format", "log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log-level", "log-level %q is not a level", c.LogLevel)
	}
	if c.DatabaseURL == "" {
		return invalid("database-url", "database-url or DATABASE_URL is required")
	}
	for key, d := range map[string]time.Duration{
		"session-ttl":    c.SessionTTL,
		"otp-ttl":        c.OTPTTL,
		"sweep-interval": c.SweepInterval,
	} {
		if d <= 0 {
			return invalid(key, "%s must be positive, got %s", key, d)
		}
	}
	if len(c.CookieHashKey) < MinCookieHashKeyLen {
		return invalid("cookie-hash-key", "cookie-hash-key must be at least %d bytes", MinCookieHashKeyLen)
	}
	switch len(c.CookieBlockKey) {
	case 0, 16, 24, 32:
	default:
		return invalid("cookie-block-key", "cookie-block-key must be 16, 24 or 32 bytes")
	}
	if c.SMTPHost != "" {
		if c.SMTPPort <= 0 {
			return invalid("smtp-port", "smtp-port must be positive, got %d", c.SMTPPort)
		}
		if c.MailFrom == "" {
			return invalid("mail-from", "mail-from is required when smtp-host is set")
		}
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
