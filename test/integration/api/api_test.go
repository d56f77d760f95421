// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

// client is a browser-like API client that keeps the session cookie.
type client struct {
	http *http.Client
}

func newClient() *client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &client{http: &http.Client{Jar: jar}}
}

type reply struct {
	status int
	body   map[string]string
}

func (c *client) call(method, path string, body any) reply {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.baseURL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	out := reply{status: resp.StatusCode, body: map[string]string{}}
	Expect(json.NewDecoder(resp.Body).Decode(&out.body)).To(Succeed())
	return out
}

func (c *client) sessionToken() string {
	u, err := url.Parse(env.baseURL)
	Expect(err).NotTo(HaveOccurred())
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "session" {
			return ck.Value
		}
	}
	return ""
}

const (
	username = "SuperUser321"
	password = "helloWorld781!"
	email    = "player@example.test"
)

func credentials(sessionType, pw string) map[string]string {
	return map[string]string{"sessionType": sessionType, "username": username, "password": pw}
}

var _ = Describe("Account API", func() {
	BeforeEach(func() {
		truncateAll()
	})

	It("runs an account through its whole lifecycle", func() {
		c := newClient()

		By("registering")
		r := c.call(http.MethodPost, "/user", map[string]string{"username": username, "password": password})
		Expect(r.status).To(Equal(http.StatusOK))

		By("rejecting a second registration of the same name")
		r = c.call(http.MethodPost, "/user", map[string]string{"username": username, "password": password})
		Expect(r.status).To(Equal(http.StatusConflict))
		Expect(r.body["kind"]).To(Equal("ConflictError"))

		By("logging in")
		r = c.call(http.MethodPost, "/session", credentials("STANDARD", password))
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(c.sessionToken()).NotTo(BeEmpty())

		By("registering an email address")
		r = c.call(http.MethodPatch, "/user", map[string]string{"update": "EMAIL", "password": password, "email": email})
		Expect(r.status).To(Equal(http.StatusOK))

		By("resetting the password with a mailed one time password")
		r = c.call(http.MethodPost, "/user/otp", map[string]string{"email": email})
		Expect(r.status).To(Equal(http.StatusOK))
		code := env.mail.code(email)
		Expect(code).To(HaveLen(6))

		r = c.call(http.MethodPatch, "/user", map[string]string{
			"update": "PASSWORD", "auth": "USING_OTP_EMAIL", "otp": code, "newPassword": "brandNew4567#",
		})
		Expect(r.status).To(Equal(http.StatusOK))

		By("refusing the spent code")
		r = c.call(http.MethodPatch, "/user", map[string]string{
			"update": "PASSWORD", "auth": "USING_OTP_EMAIL", "otp": code, "newPassword": "another9876$",
		})
		Expect(r.status).To(Equal(http.StatusNotFound))

		By("logging in with the new password from a second client")
		other := newClient()
		Expect(other.call(http.MethodPost, "/session", credentials("STANDARD", password)).status).
			To(Equal(http.StatusUnauthorized))
		Expect(other.call(http.MethodPost, "/session", credentials("STANDARD", "brandNew4567#")).status).
			To(Equal(http.StatusOK))

		By("having replaced the first client's session")
		r = c.call(http.MethodPatch, "/user", map[string]string{"update": "DESCRIPTION", "content": "x"})
		Expect(r.status).To(Equal(http.StatusUnauthorized))

		By("deleting the account")
		r = other.call(http.MethodDelete, "/user", map[string]string{"password": "brandNew4567#"})
		Expect(r.status).To(Equal(http.StatusOK))

		var sessions int
		Expect(env.pool.QueryRow(env.ctx, `SELECT count(*) FROM sessions`).Scan(&sessions)).To(Succeed())
		Expect(sessions).To(BeZero())
	})

	It("answers unknown users and wrong passwords identically", func() {
		c := newClient()
		Expect(c.call(http.MethodPost, "/user", map[string]string{"username": username, "password": password}).status).
			To(Equal(http.StatusOK))

		wrong := c.call(http.MethodPost, "/session", credentials("STANDARD", "helloWorld781?"))
		unknown := c.call(http.MethodPost, "/session", map[string]string{
			"sessionType": "STANDARD", "username": "NoSuchUser999", "password": password,
		})

		Expect(wrong.status).To(Equal(http.StatusUnauthorized))
		Expect(unknown).To(Equal(wrong))
	})
})
