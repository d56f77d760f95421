// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package fault_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/fault"
)

func TestReporter_Report(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		fallback   string
		wantStatus int
		wantBody   fault.Body
		wantLevel  string
	}{
		{
			name:       "conflict message passes through",
			err:        fault.Conflict("USERNAME_TAKEN", `Could not create account because username "SuperUser321" has already been taken!`, nil),
			fallback:   "Account could not be created due to internal server error, please try again later!",
			wantStatus: http.StatusConflict,
			wantBody: fault.Body{
				Kind:    fault.KindConflict,
				Message: `Could not create account because username "SuperUser321" has already been taken!`,
			},
			wantLevel: "WARN",
		},
		{
			name:       "database error uses fallback",
			err:        fault.Database("ACCOUNT_INSERT_FAILED", errors.New(`pq: relation "accounts" does not exist`)),
			fallback:   "Account could not be created due to internal server error, please try again later!",
			wantStatus: http.StatusInternalServerError,
			wantBody: fault.Body{
				Kind:    fault.KindDatabase,
				Message: "Account could not be created due to internal server error, please try again later!",
			},
			wantLevel: "ERROR",
		},
		{
			name:       "unclassified error without fallback",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   fault.Body{Kind: fault.KindInternal, Message: fault.GenericMessage},
			wantLevel:  "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			reporter := fault.NewReporter(slog.New(slog.NewJSONHandler(&logs, nil)))

			req := httptest.NewRequest(http.MethodPost, "/user", nil)
			rec := httptest.NewRecorder()
			reporter.Report(rec, req, tt.fallback, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body fault.Body
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
			assert.NotContains(t, rec.Body.String(), "relation")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
		})
	}
}
