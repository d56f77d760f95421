// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account and session operations as an HTTP+JSON API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/fault"
	"github.com/holomush/warden/internal/observability"
)

// AuthService is the part of auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*auth.Account, error)
	Login(ctx context.Context, username, password string) (string, uuid.UUID, error)
	Logout(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string, userID uuid.UUID, now time.Time) error
	UpdateAccount(ctx context.Context, userID uuid.UUID, req auth.UpdateRequest) error
	RequestOTP(ctx context.Context, userID uuid.UUID, email string) error
	DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error
}

var _ AuthService = (*auth.Service)(nil)

// Options tunes a Server. Zero values select defaults.
type Options struct {
	Metrics *observability.Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Server serves the public API.
type Server struct {
	addr     string
	svc      AuthService
	cookies  *CookieCodec
	reporter *fault.Reporter
	metrics  *observability.Metrics
	logger   *slog.Logger
	clock    func() time.Time

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server for addr.
func NewServer(addr string, svc AuthService, cookies *CookieCodec, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Server{
		addr:     addr,
		svc:      svc,
		cookies:  cookies,
		reporter: fault.NewReporter(logger),
		metrics:  opts.Metrics,
		logger:   logger,
		clock:    clock,
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "POST /user", s.handleRegister)
	s.route(mux, "PATCH /user", s.requireSession(s.handleUpdateAccount))
	s.route(mux, "DELETE /user", s.requireSession(s.handleDeleteAccount))
	s.route(mux, "POST /user/otp", s.requireSession(s.handleRequestOTP))
	s.route(mux, "POST /session", s.handleLogin)
	s.route(mux, "DELETE /session", s.requireSession(s.handleLogout))
	return mux
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

// Start begins serving. The returned channel receives a serve error, if any,
// and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
		}
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
