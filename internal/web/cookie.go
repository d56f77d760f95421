// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/samber/oops"
)

// SessionCookieName is the name of the signed session cookie.
const SessionCookieName = "session"

// SessionCookie is the payload of the session cookie. ID is the raw session
// token; only its digest is stored server-side.
type SessionCookie struct {
	ID     string    `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

// CookieCodec signs, and optionally encrypts, session cookies.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
	maxAge time.Duration
}

// NewCookieCodec creates a codec. hashKey signs the cookie; a non-empty
// blockKey (16, 24 or 32 bytes) also encrypts it. maxAge bounds both the
// browser lifetime and the accepted signature age.
func NewCookieCodec(hashKey, blockKey []byte, maxAge time.Duration, secure bool) (*CookieCodec, error) {
	if len(hashKey) == 0 {
		return nil, oops.Code("COOKIE_KEY_INVALID").Errorf("cookie hash key is required")
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(maxAge.Seconds()))
	return &CookieCodec{sc: sc, secure: secure, maxAge: maxAge}, nil
}

// Write sets the session cookie on w.
func (c *CookieCodec) Write(w http.ResponseWriter, session SessionCookie) error {
	value, err := c.sc.Encode(SessionCookieName, session)
	if err != nil {
		return oops.Code("COOKIE_ENCODE_FAILED").Wrap(err)
	}
	http.SetCookie(w, c.cookie(value, int(c.maxAge.Seconds())))
	return nil
}

// Clear expires the session cookie on w.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

// Read decodes and verifies the session cookie of r.
func (c *CookieCodec) Read(r *http.Request) (SessionCookie, error) {
	var session SessionCookie
	raw, err := r.Cookie(SessionCookieName)
	if err != nil {
		return session, oops.Code("COOKIE_MISSING").Wrap(err)
	}
	if err := c.sc.Decode(SessionCookieName, raw.Value, &session); err != nil {
		return session, oops.Code("COOKIE_INVALID").Wrap(err)
	}
	if session.ID == "" || session.UserID == uuid.Nil {
		return session, oops.Code("COOKIE_INVALID").Errorf("session cookie is missing fields")
	}
	return session, nil
}

func (c *CookieCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
