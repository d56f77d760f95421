// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/pkg/errutil"
)

func requestWith(cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestNewCookieCodec_RequiresHashKey(t *testing.T) {
	_, err := NewCookieCodec(nil, nil, time.Hour, false)
	errutil.AssertErrorCode(t, err, "COOKIE_KEY_INVALID")
}

func TestCookieCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		blockKey []byte
	}{
		{"signed", nil},
		{"signed and encrypted", []byte(strings.Repeat("b", 32))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := NewCookieCodec([]byte(strings.Repeat("h", 32)), tt.blockKey, time.Hour, true)
			require.NoError(t, err)

			want := SessionCookie{ID: "abc123", UserID: uuid.New()}
			rec := httptest.NewRecorder()
			require.NoError(t, codec.Write(rec, want))

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.True(t, cookies[0].Secure)
			assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
			assert.NotContains(t, cookies[0].Value, want.UserID.String())

			got, err := codec.Read(requestWith(cookies[0]))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCookieCodec_Read(t *testing.T) {
	codec, err := NewCookieCodec([]byte(strings.Repeat("h", 32)), nil, time.Hour, false)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := codec.Read(requestWith())
		errutil.AssertErrorCode(t, err, "COOKIE_MISSING")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := codec.Read(requestWith(&http.Cookie{Name: SessionCookieName, Value: "not-a-cookie"}))
		errutil.AssertErrorCode(t, err, "COOKIE_INVALID")
	})

	t.Run("empty payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, codec.Write(rec, SessionCookie{}))
		_, err := codec.Read(requestWith(rec.Result().Cookies()[0]))
		errutil.AssertErrorCode(t, err, "COOKIE_INVALID")
	})
}

func TestCookieCodec_Clear(t *testing.T) {
	codec, err := NewCookieCodec([]byte(strings.Repeat("h", 32)), nil, time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	codec.Clear(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
