// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package fault classifies failures into the domain error kinds exposed to
// callers and maps them to transport status codes.
//
// Every fault carries a machine code, a kind, an HTTP status and a message
// that is safe to return to a client. The underlying cause is an oops error
// that keeps the code, structured context and stack trace for server-side
// logging only.
package fault

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

// Kind is a domain error class.
type Kind string

// Error kinds.
const (
	KindValidation    Kind = "ValidationError"
	KindAuthorization Kind = "AuthorizationError"
	KindConflict      Kind = "ConflictError"
	KindDatabase      Kind = "DatabaseError"
	KindInternal      Kind = "Error"
)

// GenericMessage is returned for faults whose detail must stay server-side.
const GenericMessage = "Internal server error, please try again later!"

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

// Unwrap returns the underlying oops error.
func (e *Error) Unwrap() error {
	return e.cause
}

// With attaches structured context to the underlying cause.
func (e *Error) With(kv ...any) *Error {
	e.cause = oops.With(kv...).Wrap(e.cause)
	return e
}

func build(kind Kind, code string, status int, message string, cause error) *Error {
	b := oops.In(string(kind)).Code(code).With("status", status).Public(message)
	var wrapped error
	if cause != nil {
		wrapped = b.Wrap(cause)
	} else {
		wrapped = b.Errorf("%s", message)
	}
	return &Error{Kind: kind, Code: code, Status: status, Message: message, cause: wrapped}
}

// Validation reports malformed or missing input.
func Validation(code, message string) *Error {
	return build(KindValidation, code, http.StatusBadRequest, message, nil)
}

// Unauthorized reports rejected credentials, sessions or one-time passwords.
func Unauthorized(code, message string, cause error) *Error {
	return build(KindAuthorization, code, http.StatusUnauthorized, message, cause)
}

// NotFound reports an authorization failure caused by a missing resource.
func NotFound(code, message string, cause error) *Error {
	return build(KindAuthorization, code, http.StatusNotFound, message, cause)
}

// AuthInternal reports an authorization flow that could not complete. The
// message is returned to callers, the cause is not.
func AuthInternal(code, message string, cause error) *Error {
	return build(KindAuthorization, code, http.StatusInternalServerError, message, cause)
}

// Conflict reports a uniqueness conflict such as a taken username.
func Conflict(code, message string, cause error) *Error {
	return build(KindConflict, code, http.StatusConflict, message, cause)
}

// Database reports an opaque storage fault.
func Database(code string, cause error) *Error {
	return build(KindDatabase, code, http.StatusInternalServerError, GenericMessage, cause)
}

// Internal reports an unexpected failure outside the storage layer.
func Internal(code string, cause error) *Error {
	return build(KindInternal, code, http.StatusInternalServerError, GenericMessage, cause)
}

// Info is the caller-facing classification of an error.
type Info struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
}

// Classify returns the outermost fault in err's chain. Errors without one are
// internal and carry the generic message.
func Classify(err error) Info {
	var fe *Error
	if errors.As(err, &fe) {
		return Info{Kind: fe.Kind, Code: fe.Code, Status: fe.Status, Message: fe.Message}
	}
	return Info{Kind: KindInternal, Code: "INTERNAL", Status: http.StatusInternalServerError, Message: GenericMessage}
}

// Is reports whether err carries a fault of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// IsAuthorization reports whether err is already a caller-safe authorization
// failure.
func IsAuthorization(err error) bool {
	return Is(err, KindAuthorization)
}
