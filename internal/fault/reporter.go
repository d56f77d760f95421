// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package fault

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/holomush/warden/pkg/errutil"
)

// Body is the JSON document written for a reported error.
type Body struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Reporter logs failures in full and writes the caller-safe part to the
// response.
type Reporter struct {
	logger *slog.Logger
}

// NewReporter creates a Reporter. A nil logger uses slog.Default().
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger}
}

// Report writes err to w. Database and unclassified faults are answered with
// fallback so storage text never reaches the client.
func (r *Reporter) Report(w http.ResponseWriter, req *http.Request, fallback string, err error) {
	info := Classify(err)

	message := info.Message
	if info.Kind == KindDatabase || info.Kind == KindInternal {
		message = fallback
		if message == "" {
			message = GenericMessage
		}
	}

	if info.Status >= http.StatusInternalServerError {
		errutil.LogErrorContext(req.Context(), r.logger, "request failed", err,
			"method", req.Method,
			"path", req.URL.Path,
		)
	} else {
		r.logger.WarnContext(req.Context(), "request rejected",
			"method", req.Method,
			"path", req.URL.Path,
			"kind", info.Kind,
			"code", info.Code,
			"status", info.Status,
		)
	}

	WriteJSON(w, info.Status, Body{Kind: info.Kind, Message: message})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(v)
}
