// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/postgres"
	"github.com/holomush/warden/internal/fault"
)

type recordingMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *recordingMailer) Send(_ context.Context, _, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func countRows(ctx context.Context, query string, args ...any) int {
	var n int
	Expect(pool.QueryRow(ctx, query, args...).Scan(&n)).To(Succeed())
	return n
}

func newAccount(ctx context.Context, accounts *postgres.AccountRepository, username string) *auth.Account {
	account := &auth.Account{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "00ff$" + username,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	Expect(accounts.Create(ctx, account)).To(Succeed())
	return account
}

var _ = Describe("Repositories", func() {
	var (
		ctx      context.Context
		accounts *postgres.AccountRepository
		sessions *postgres.SessionRepository
		otps     *postgres.OTPRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx)
		accounts = postgres.NewAccountRepository(pool)
		sessions = postgres.NewSessionRepository(pool)
		otps = postgres.NewOTPRepository(pool)
	})

	Describe("AccountRepository", func() {
		It("round-trips an account by each key", func() {
			account := newAccount(ctx, accounts, "SuperUser321")

			byName, err := accounts.GetByUsername(ctx, "SuperUser321")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(account.ID))
			Expect(byName.EmailHash).To(BeEmpty())

			byID, err := accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Username).To(Equal("SuperUser321"))

			byHash, err := accounts.GetByPasswordHash(ctx, account.PasswordHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(byHash.ID).To(Equal(account.ID))
		})

		It("reports a taken username as a duplicate", func() {
			newAccount(ctx, accounts, "SuperUser321")
			err := accounts.Create(ctx, &auth.Account{ID: uuid.New(), Username: "SuperUser321", PasswordHash: "x$y"})
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
		})

		It("updates columns and reports missing rows", func() {
			account := newAccount(ctx, accounts, "SuperUser321")
			Expect(accounts.UpdateEmailHash(ctx, account.ID, auth.HashEmail("a@example.test"))).To(Succeed())
			Expect(accounts.UpdateDescription(ctx, account.ID, "grey cloak")).To(Succeed())
			Expect(accounts.UpdatePasswordHash(ctx, account.ID, "11ee$new")).To(Succeed())

			got, err := accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.EmailHash).To(Equal(auth.HashEmail("a@example.test")))
			Expect(got.Description).To(Equal("grey cloak"))
			Expect(got.PasswordHash).To(Equal("11ee$new"))

			err = accounts.UpdateDescription(ctx, uuid.New(), "x")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("cascades deletion to sessions and one time passwords", func() {
			account := newAccount(ctx, accounts, "SuperUser321")
			future := time.Now().Add(time.Hour)
			Expect(sessions.Insert(ctx, &auth.Session{HashedID: "digest", UserID: account.ID, ExpiresAt: future, CreatedAt: time.Now()})).To(Succeed())
			Expect(otps.Insert(ctx, &auth.OTP{UserID: account.ID, Code: "123456", ExpiresAt: future, CreatedAt: time.Now()})).To(Succeed())

			Expect(accounts.Delete(ctx, account.ID)).To(Succeed())
			Expect(countRows(ctx, `SELECT count(*) FROM sessions`)).To(Equal(0))
			Expect(countRows(ctx, `SELECT count(*) FROM otps`)).To(Equal(0))

			Expect(errors.Is(accounts.Delete(ctx, account.ID), auth.ErrNotFound)).To(BeTrue())
		})

		It("locks an account once failures reach the threshold", func() {
			account := newAccount(ctx, accounts, "SuperUser321")
			until := time.Now().Add(auth.LockoutDuration).UTC().Truncate(time.Microsecond)

			for i := 1; i < auth.LockoutThreshold; i++ {
				n, err := accounts.RecordFailure(ctx, account.ID, auth.LockoutThreshold, until)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(i))
			}
			got, err := accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LockedUntil).To(BeNil())

			n, err := accounts.RecordFailure(ctx, account.ID, auth.LockoutThreshold, until)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(auth.LockoutThreshold))

			got, err = accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LockedUntil).NotTo(BeNil())
			Expect(*got.LockedUntil).To(BeTemporally("==", until))

			Expect(accounts.ResetFailures(ctx, account.ID)).To(Succeed())
			got, err = accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FailedAttempts).To(BeZero())
			Expect(got.LockedUntil).To(BeNil())
		})
	})

	Describe("SessionRepository", func() {
		var alice, bob *auth.Account

		BeforeEach(func() {
			alice = newAccount(ctx, accounts, "alice12345")
			bob = newAccount(ctx, accounts, "bob1234567")
		})

		session := func(digest string, userID uuid.UUID) *auth.Session {
			now := time.Now().UTC().Truncate(time.Microsecond)
			return &auth.Session{HashedID: digest, UserID: userID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
		}

		It("distinguishes the two unique violations", func() {
			Expect(sessions.Insert(ctx, session("d1", alice.ID))).To(Succeed())

			err := sessions.Insert(ctx, session("d2", alice.ID))
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())

			err = sessions.Insert(ctx, session("d1", bob.ID))
			Expect(errors.Is(err, auth.ErrTokenCollision)).To(BeTrue())
		})

		It("updates only the user's own row", func() {
			Expect(sessions.Insert(ctx, session("d1", alice.ID))).To(Succeed())
			Expect(sessions.Insert(ctx, session("d2", bob.ID))).To(Succeed())

			Expect(sessions.UpdateForUser(ctx, session("d3", alice.ID))).To(Succeed())
			_, err := sessions.GetExpiry(ctx, "d1", alice.ID)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
			_, err = sessions.GetExpiry(ctx, "d3", alice.ID)
			Expect(err).NotTo(HaveOccurred())

			err = sessions.UpdateForUser(ctx, session("d2", alice.ID))
			Expect(errors.Is(err, auth.ErrTokenCollision)).To(BeTrue())
			_, err = sessions.GetExpiry(ctx, "d2", bob.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports an update without a row as not found", func() {
			err := sessions.UpdateForUser(ctx, session("d1", alice.ID))
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("scopes expiry lookups to the owner", func() {
			Expect(sessions.Insert(ctx, session("d1", alice.ID))).To(Succeed())
			_, err := sessions.GetExpiry(ctx, "d1", bob.ID)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("purges expired sessions", func() {
			expired := session("old", alice.ID)
			expired.ExpiresAt = time.Now().Add(-time.Minute)
			Expect(sessions.Insert(ctx, expired)).To(Succeed())
			Expect(sessions.Insert(ctx, session("new", bob.ID))).To(Succeed())

			n, err := sessions.DeleteExpired(ctx, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(errors.Is(sessions.Delete(ctx, "old"), auth.ErrNotFound)).To(BeTrue())
			Expect(sessions.Delete(ctx, "new")).To(Succeed())
		})
	})

	Describe("OTPRepository", func() {
		It("keys codes by user", func() {
			alice := newAccount(ctx, accounts, "alice12345")
			bob := newAccount(ctx, accounts, "bob1234567")
			expires := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Microsecond)

			Expect(otps.Insert(ctx, &auth.OTP{UserID: alice.ID, Code: "123456", ExpiresAt: expires, CreatedAt: time.Now()})).To(Succeed())
			Expect(otps.Insert(ctx, &auth.OTP{UserID: bob.ID, Code: "123456", ExpiresAt: expires, CreatedAt: time.Now()})).To(Succeed())

			err := otps.Insert(ctx, &auth.OTP{UserID: alice.ID, Code: "123456", ExpiresAt: expires, CreatedAt: time.Now()})
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())

			got, err := otps.GetExpiry(ctx, alice.ID, "123456")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeTemporally("==", expires))

			Expect(otps.Delete(ctx, alice.ID, "123456")).To(Succeed())
			Expect(errors.Is(otps.Delete(ctx, alice.ID, "123456"), auth.ErrNotFound)).To(BeTrue())
			_, err = otps.GetExpiry(ctx, bob.ID, "123456")
			Expect(err).NotTo(HaveOccurred())
		})

		It("revokes every code of one user", func() {
			alice := newAccount(ctx, accounts, "alice12345")
			bob := newAccount(ctx, accounts, "bob1234567")
			expires := time.Now().Add(10 * time.Minute)

			Expect(otps.Insert(ctx, &auth.OTP{UserID: alice.ID, Code: "111111", ExpiresAt: expires, CreatedAt: time.Now()})).To(Succeed())
			Expect(otps.Insert(ctx, &auth.OTP{UserID: alice.ID, Code: "222222", ExpiresAt: expires, CreatedAt: time.Now()})).To(Succeed())
			Expect(otps.Insert(ctx, &auth.OTP{UserID: bob.ID, Code: "111111", ExpiresAt: expires, CreatedAt: time.Now()})).To(Succeed())

			n, err := otps.DeleteForUser(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
			Expect(countRows(ctx, `SELECT count(*) FROM otps`)).To(Equal(1))
		})
	})
})

var _ = Describe("Service on PostgreSQL", func() {
	var (
		ctx context.Context
		svc *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx)

		var err error
		svc, err = auth.NewService(
			postgres.NewAccountRepository(pool),
			postgres.NewSessionRepository(pool),
			postgres.NewOTPRepository(pool),
			auth.NewScryptHasher(),
			&recordingMailer{},
			auth.Options{MailFrom: "warden@example.test"},
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("registers, logs in and logs out", func() {
		_, err := svc.Register(ctx, "SuperUser321", "helloWorld781!")
		Expect(err).NotTo(HaveOccurred())
		Expect(countRows(ctx, `SELECT count(*) FROM accounts`)).To(Equal(1))

		_, err = svc.Register(ctx, "SuperUser321", "helloWorld781!")
		Expect(fault.Classify(err).Kind).To(Equal(fault.KindConflict))

		token, userID, err := svc.Login(ctx, "SuperUser321", "helloWorld781!")
		Expect(err).NotTo(HaveOccurred())
		Expect(countRows(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, userID)).To(Equal(1))

		_, _, err = svc.Login(ctx, "SuperUser321", "helloWorld781?")
		Expect(fault.Classify(err).Code).To(Equal("AUTH_INVALID_CREDENTIALS"))
		Expect(countRows(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, userID)).To(Equal(1))

		Expect(svc.ValidateSession(ctx, token, userID, time.Now())).To(Succeed())
		Expect(svc.Logout(ctx, token)).To(Succeed())
		Expect(countRows(ctx, `SELECT count(*) FROM sessions`)).To(Equal(0))

		err = svc.Logout(ctx, token)
		Expect(fault.Classify(err).Code).To(Equal("SESSION_NOT_FOUND"))
	})

	It("keeps one session per user across logins", func() {
		_, err := svc.Register(ctx, "SuperUser321", "helloWorld781!")
		Expect(err).NotTo(HaveOccurred())

		first, userID, err := svc.Login(ctx, "SuperUser321", "helloWorld781!")
		Expect(err).NotTo(HaveOccurred())
		second, _, err := svc.Login(ctx, "SuperUser321", "helloWorld781!")
		Expect(err).NotTo(HaveOccurred())

		Expect(countRows(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, userID)).To(Equal(1))
		Expect(svc.ValidateSession(ctx, first, userID, time.Now())).NotTo(Succeed())
		Expect(svc.ValidateSession(ctx, second, userID, time.Now())).To(Succeed())
	})
})
