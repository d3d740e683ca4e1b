// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/internal/auth/postgres"
)

var _ = Describe("Credential store on PostgreSQL", func() {
	var (
		ctx   context.Context
		svc   *auth.Service
		now   time.Time
		login *auth.LoginResult
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		svc, err = auth.NewService(postgres.NewStore(testPool), hasher,
			auth.WithClock(func() time.Time { return now }))
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.RegisterUser(ctx, "alice", "correct horse", "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		login, err = svc.LoginUser(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores users with empty extra metadata", func() {
		var extra string
		Expect(testPool.QueryRow(ctx, `SELECT extra::text FROM users WHERE user_id = $1`, login.UserID).
			Scan(&extra)).To(Succeed())
		Expect(extra).To(MatchJSON(`{}`))
	})

	It("rejects duplicate handles", func() {
		_, err := svc.RegisterUser(ctx, "alice", "pw", "other@example.com")
		Expect(err).To(MatchError(auth.ErrUserAlreadyExists))
		_, err = svc.RegisterUser(ctx, "bob", "pw", "alice@example.com")
		Expect(err).To(MatchError(auth.ErrUserAlreadyExists))
	})

	It("enforces unique live handles in the schema", func() {
		repo := postgres.NewUserRepository(testPool)
		err := repo.Create(ctx, &auth.User{
			ID: "dup", Username: "alice", Password: "h", Email: "x@example.com", Created: now, Modified: now,
		})
		Expect(err).To(MatchError(auth.ErrDuplicate))
	})

	It("keeps deleted users' handles blocked", func() {
		_, err := testPool.Exec(ctx, `UPDATE users SET deleted = TRUE WHERE user_id = $1`, login.UserID)
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.RegisterUser(ctx, "alice", "pw", "alice@example.com")
		Expect(err).To(MatchError(auth.ErrUserAlreadyExists))

		_, err = svc.LoginUser(ctx, "alice", "correct horse")
		Expect(err).To(MatchError(auth.ErrUserNotFound))
	})

	It("creates pending sessions that expire after the TTL", func() {
		ident, err := svc.Authenticate(ctx, login.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ident.Active).To(BeFalse())

		now = now.Add(auth.DefaultSessionTTL + time.Second)
		_, err = svc.Authenticate(ctx, login.SessionID)
		Expect(err).To(MatchError(auth.ErrSessionExpired))
	})

	It("runs the two-factor flow exactly once", func() {
		ch, err := svc.CreateTwoFactorCode(ctx, login.UserID, login.SessionID)
		Expect(err).NotTo(HaveOccurred())

		var stored string
		var typ int16
		Expect(testPool.QueryRow(ctx, `SELECT token, type FROM auth_tokens WHERE token_id = $1`, ch.TokenID).
			Scan(&stored, &typ)).To(Succeed())
		Expect(typ).To(Equal(int16(auth.TokenTwoFactor)))
		Expect(stored).To(HavePrefix("$2a$"))

		Expect(svc.AuthenticateTwoFactorCode(ctx, ch.Digits, ch.TokenID, login.UserID, login.SessionID)).To(Succeed())
		ident, err := svc.Authenticate(ctx, login.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ident.Active).To(BeTrue())

		err = svc.AuthenticateTwoFactorCode(ctx, ch.Digits, ch.TokenID, login.UserID, login.SessionID)
		Expect(err).To(MatchError(auth.ErrTokenNotFound))
	})

	It("lets exactly one concurrent consumer win", func() {
		_, err := svc.CreateEmailLoginToken(ctx, "link-secret", login.UserID, login.SessionID)
		Expect(err).NotTo(HaveOccurred())

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				if err := svc.AuthenticateLoginToken(ctx, "link-secret", login.UserID, login.SessionID); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else {
					Expect(err).To(MatchError(auth.ErrTokenNotFound))
				}
			}()
		}
		wg.Wait()
		Expect(wins).To(Equal(1))
	})

	It("rolls back token consumption when activation fails", func() {
		tokenID, err := svc.CreateEmailLoginToken(ctx, "link-secret", login.UserID, login.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.Logout(ctx, login.SessionID)).To(Succeed())

		err = svc.AuthenticateLoginToken(ctx, "link-secret", login.UserID, login.SessionID)
		Expect(err).To(MatchError(auth.ErrSessionActivationFailed))

		var deleted bool
		Expect(testPool.QueryRow(ctx, `SELECT deleted FROM auth_tokens WHERE token_id = $1`, tokenID).
			Scan(&deleted)).To(Succeed())
		Expect(deleted).To(BeFalse())
	})

	It("changes the password without activating the session", func() {
		_, err := svc.CreatePasswordRenewalToken(ctx, "renew-secret", login.UserID, login.SessionID)
		Expect(err).NotTo(HaveOccurred())

		updated, err := svc.ChangePassword(ctx, "battery staple", "renew-secret", login.UserID, login.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(updated).To(BeTrue())

		_, err = svc.LoginUser(ctx, "alice", "correct horse")
		Expect(err).To(MatchError(auth.ErrCredentialsInvalid))
		_, err = svc.LoginUser(ctx, "alice", "battery staple")
		Expect(err).NotTo(HaveOccurred())

		ident, err := svc.Authenticate(ctx, login.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ident.Active).To(BeFalse())
	})

	It("terminates sessions on logout", func() {
		Expect(svc.Logout(ctx, login.SessionID)).To(Succeed())
		_, err := svc.Authenticate(ctx, login.SessionID)
		Expect(err).To(MatchError(auth.ErrSessionNotFound))

		var active, deleted bool
		Expect(testPool.QueryRow(ctx, `SELECT active, deleted FROM sessions WHERE session_id = $1`, login.SessionID).
			Scan(&active, &deleted)).To(Succeed())
		Expect(active).To(BeFalse())
		Expect(deleted).To(BeTrue())
	})
})
