// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/fault"
	"github.com/holomush/warden/internal/observability"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Fallback messages for failures whose detail stays server-side.
const (
	fallbackRegister = "Account could not be created due to internal server error, please try again later!"
	fallbackUpdate   = "Could not update information for user due to internal server error!"
	fallbackDelete   = "Could not delete account due to internal server error!"
	fallbackOTP      = "Could not send one time password due to internal server error!"
	fallbackLogout   = "Could not process session logout due to internal server error!"
	fallbackSession  = "Could not validate session due to internal server error!"
)

// SessionTypeStandard is the only session type issued.
const SessionTypeStandard = "STANDARD"

// MessageBody is the JSON document written on success.
type MessageBody struct {
	Message string `json:"message"`
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginBody struct {
	SessionType string `json:"sessionType"`
	credentialsBody
}

type passwordBody struct {
	Password string `json:"password"`
}

type emailBody struct {
	Email string `json:"email"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fault.Validation("REQUEST_MALFORMED", "Could not process request, malformed JSON body!")
	}
	return nil
}

func writeMessage(w http.ResponseWriter, message string) {
	fault.WriteJSON(w, http.StatusOK, MessageBody{Message: message})
}

// handleRegister serves POST /user.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.reporter.Report(w, r, fallbackRegister, err)
		return
	}

	if _, err := s.svc.Register(r.Context(), body.Username, body.Password); err != nil {
		s.reporter.Report(w, r, fallbackRegister, err)
		return
	}
	writeMessage(w, fmt.Sprintf("Account successfully created for user %q", body.Username))
}

// handleLogin serves POST /session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.reporter.Report(w, r, auth.MsgLoginInternal, err)
		return
	}
	if body.SessionType != SessionTypeStandard {
		s.reporter.Report(w, r, auth.MsgLoginInternal,
			fault.Validation("SESSION_TYPE_INVALID", "Could not process request for invalid session type!"))
		return
	}

	token, userID, err := s.svc.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if fault.Classify(err).Status == http.StatusUnauthorized {
			s.metrics.ObserveLogin(observability.LoginRejected)
		} else {
			s.metrics.ObserveLogin(observability.LoginError)
		}
		s.reporter.Report(w, r, auth.MsgLoginInternal, err)
		return
	}

	if err := s.cookies.Write(w, SessionCookie{ID: token, UserID: userID}); err != nil {
		s.metrics.ObserveLogin(observability.LoginError)
		s.reporter.Report(w, r, auth.MsgLoginInternal, fault.Internal("COOKIE_ENCODE_FAILED", err))
		return
	}
	s.metrics.ObserveLogin(observability.LoginSuccess)
	writeMessage(w, fmt.Sprintf("Successfully logged in as user %q!", body.Username))
}

// handleLogout serves DELETE /session?id=<token>.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.reporter.Report(w, r, fallbackLogout,
			fault.Validation("SESSION_ID_MISSING", `No valid "id" provided in request query!`))
		return
	}

	if err := s.svc.Logout(r.Context(), id); err != nil {
		s.reporter.Report(w, r, fallbackLogout, err)
		return
	}
	if id == sessionFrom(r.Context()).ID {
		s.cookies.Clear(w)
	}
	writeMessage(w, "Successfully logged out!")
}

// handleUpdateAccount serves PATCH /user.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.reporter.Report(w, r, fallbackUpdate, err)
		return
	}

	req, err := body.request()
	if err != nil {
		s.reporter.Report(w, r, fallbackUpdate, err)
		return
	}

	if err := s.svc.UpdateAccount(r.Context(), sessionFrom(r.Context()).UserID, req); err != nil {
		s.reporter.Report(w, r, fallbackUpdate, err)
		return
	}
	writeMessage(w, "Successfully updated information for user!")
}

// handleDeleteAccount serves DELETE /user.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.reporter.Report(w, r, fallbackDelete, err)
		return
	}

	if err := s.svc.DeleteAccount(r.Context(), sessionFrom(r.Context()).UserID, body.Password); err != nil {
		s.reporter.Report(w, r, fallbackDelete, err)
		return
	}
	s.cookies.Clear(w)
	writeMessage(w, "Account successfully deleted!")
}

// handleRequestOTP serves POST /user/otp.
func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.reporter.Report(w, r, fallbackOTP, err)
		return
	}

	if err := s.svc.RequestOTP(r.Context(), sessionFrom(r.Context()).UserID, body.Email); err != nil {
		s.reporter.Report(w, r, fallbackOTP, err)
		return
	}
	s.metrics.ObserveOTPIssued()
	writeMessage(w, "One time password sent!")
}
