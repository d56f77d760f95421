// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/warden/internal/fault"
	"github.com/holomush/warden/internal/logging"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

const msgMissingAuth = "Could not accept request, missing auth fields!"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns a request id and records the access log line and
// request metric for route.
func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ulid.Make().String()
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(logging.WithRequestID(r.Context(), id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		s.metrics.ObserveRequest(route, rec.status)
		s.logger.InfoContext(r.Context(), "request served",
			"route", route,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type sessionKey struct{}

// sessionFrom returns the verified session cookie stored by requireSession.
func sessionFrom(ctx context.Context) SessionCookie {
	session, _ := ctx.Value(sessionKey{}).(SessionCookie)
	return session
}

// requireSession rejects requests without a valid, unexpired session.
// Storage failures are reported as such rather than as a missing session.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.cookies.Read(r)
		if err != nil {
			s.reporter.Report(w, r, "", fault.Unauthorized("SESSION_MISSING", msgMissingAuth, err))
			return
		}

		if err := s.svc.ValidateSession(r.Context(), session.ID, session.UserID, s.clock()); err != nil {
			if fault.IsAuthorization(err) {
				err = fault.Unauthorized("SESSION_REJECTED", msgMissingAuth, err)
			}
			s.reporter.Report(w, r, fallbackSession, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	}
}
