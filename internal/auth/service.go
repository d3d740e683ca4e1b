// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/viixet/authn/pkg/errutil"
)

var tracer = otel.Tracer("github.com/viixet/authn/internal/auth")

// LoginResult identifies the pending session created by LoginUser.
type LoginResult struct {
	SessionID string
	UserID    string
	Username  string
}

// Identity is the answer to "is this session still good".
type Identity struct {
	SessionID string
	UserID    string
	Username  string
	Active    bool
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	ttl                 time.Duration
	ids                 IDGenerator
	digits              DigitSource
	clock               Clock
	logger              *slog.Logger
	loggerSet           bool
	metrics             *Metrics
	reuseDeletedHandles bool
}

// WithSessionTTL sets the session lifetime measured from last modification.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *serviceOptions) { o.ttl = ttl }
}

// WithIDGenerator replaces the default ULID generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *serviceOptions) { o.ids = ids }
}

// WithDigitSource replaces the crypto/rand digit source.
func WithDigitSource(d DigitSource) Option {
	return func(o *serviceOptions) { o.digits = d }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *serviceOptions) { o.clock = c }
}

// WithLogger sets the logger. A nil logger is rejected by NewService.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = l
		o.loggerSet = true
	}
}

// WithMetrics records operation outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithDeletedHandleReuse allows usernames and emails of soft-deleted users
// to be registered again.
func WithDeletedHandleReuse(reuse bool) Option {
	return func(o *serviceOptions) { o.reuseDeletedHandles = reuse }
}

// Service is the authentication facade consumed by callers.
type Service struct {
	identity *IdentityManager
	sessions *SessionManager
	tokens   *TokenManager
	logger   *slog.Logger
	metrics  *Metrics
}

// NewService wires the managers over store.
func NewService(store Store, hasher PasswordHasher, opts ...Option) (*Service, error) {
	switch {
	case store.Users == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	case store.Sessions == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	case store.Tokens == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("tokens repository is required")
	case store.Tx == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("transactor is required")
	case hasher == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}

	o := serviceOptions{
		ttl:    DefaultSessionTTL,
		ids:    ULIDGenerator{},
		digits: CryptoDigits{},
		clock:  SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loggerSet && o.logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger cannot be nil")
	}
	if o.ids == nil || o.digits == nil || o.clock == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("id generator, digit source and clock cannot be nil")
	}

	identity := NewIdentityManager(store.Users, store.Tx, hasher, o.ids, o.clock)
	identity.SetReuseDeletedHandles(o.reuseDeletedHandles)
	sessions := NewSessionManager(store.Sessions, o.ids, o.clock, o.ttl)
	tokens := NewTokenManager(store.Tokens, store.Tx, sessions, identity, hasher, o.ids, o.digits, o.clock)

	return &Service{
		identity: identity,
		sessions: sessions,
		tokens:   tokens,
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// Identity returns the identity manager.
func (s *Service) Identity() *IdentityManager { return s.identity }

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Tokens returns the token manager.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// RegisterUser creates a user and returns its ID.
func (s *Service) RegisterUser(ctx context.Context, username, password, email string) (string, error) {
	var userID string
	err := s.observe(ctx, OpRegisterUser, func(ctx context.Context) error {
		var err error
		userID, err = s.identity.RegisterUser(ctx, username, password, email)
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", userID)
	return userID, nil
}

// LoginUser checks the password and creates a pending session. Callers
// that do not run a second factor activate the session themselves.
func (s *Service) LoginUser(ctx context.Context, username, password string) (*LoginResult, error) {
	var result *LoginResult
	err := s.observe(ctx, OpLoginUser, func(ctx context.Context) error {
		user, err := s.identity.VerifyCredentials(ctx, username, password)
		if err != nil {
			return err
		}
		sessionID, err := s.sessions.CreateSession(ctx, user.ID, false)
		if err != nil {
			return err
		}
		result = &LoginResult{SessionID: sessionID, UserID: user.ID, Username: user.Username}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "session created", "user_id", result.UserID, "session_id", result.SessionID)
	return result, nil
}

// Authenticate re-validates a session on every request: it must exist, be
// live, belong to a live user and not be past its TTL.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*Identity, error) {
	var ident *Identity
	err := s.observe(ctx, OpAuthenticate, func(ctx context.Context) error {
		si, err := s.sessions.Validate(ctx, sessionID)
		if err != nil {
			return err
		}
		ident = &Identity{
			SessionID: si.Session.ID,
			UserID:    si.Session.UserID,
			Username:  si.Username,
			Active:    si.Session.Active,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ident, nil
}

// Logout terminates a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.observe(ctx, OpLogout, func(ctx context.Context) error {
		ok, err := s.sessions.DeleteSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !ok {
			return fail(CodeSessionNotFound, ErrSessionNotFound, "session_id", sessionID)
		}
		return nil
	})
}

// CreateTwoFactorCode issues a two-factor code bound to the user and session.
func (s *Service) CreateTwoFactorCode(ctx context.Context, userID, sessionID string) (*TwoFactorChallenge, error) {
	var ch *TwoFactorChallenge
	err := s.observe(ctx, OpCreateTwoFactorCode, func(ctx context.Context) error {
		var err error
		ch, err = s.tokens.CreateTwoFactorCode(ctx, userID, sessionID)
		return err
	})
	return ch, err
}

// AuthenticateTwoFactorCode consumes the code and activates the session.
func (s *Service) AuthenticateTwoFactorCode(ctx context.Context, digits []int, tokenID, userID, sessionID string) error {
	err := s.observe(ctx, OpAuthenticateTwoFactorCode, func(ctx context.Context) error {
		return s.tokens.AuthenticateTwoFactorCode(ctx, digits, tokenID, userID, sessionID)
	})
	if err == nil {
		s.logger.InfoContext(ctx, "session activated", "session_id", sessionID, "flow", TokenTwoFactor.String())
	}
	return err
}

// CreateEmailLoginToken stores an email-login secret and returns the token ID.
func (s *Service) CreateEmailLoginToken(ctx context.Context, secret, userID, sessionID string) (string, error) {
	var tokenID string
	err := s.observe(ctx, OpCreateEmailLoginToken, func(ctx context.Context) error {
		var err error
		tokenID, err = s.tokens.CreateEmailLoginToken(ctx, secret, userID, sessionID)
		return err
	})
	return tokenID, err
}

// AuthenticateLoginToken consumes an email-login secret and activates the session.
func (s *Service) AuthenticateLoginToken(ctx context.Context, secret, userID, sessionID string) error {
	err := s.observe(ctx, OpAuthenticateLoginToken, func(ctx context.Context) error {
		return s.tokens.AuthenticateLoginToken(ctx, secret, userID, sessionID)
	})
	if err == nil {
		s.logger.InfoContext(ctx, "session activated", "session_id", sessionID, "flow", TokenEmailLogin.String())
	}
	return err
}

// CreatePasswordRenewalToken stores a password-renewal secret and returns the token ID.
func (s *Service) CreatePasswordRenewalToken(ctx context.Context, secret, userID, sessionID string) (string, error) {
	var tokenID string
	err := s.observe(ctx, OpCreatePasswordRenewalToken, func(ctx context.Context) error {
		var err error
		tokenID, err = s.tokens.CreatePasswordRenewalToken(ctx, secret, userID, sessionID)
		return err
	})
	return tokenID, err
}

// ChangePassword consumes a password-renewal secret and sets a new password.
func (s *Service) ChangePassword(ctx context.Context, newPassword, secret, userID, sessionID string) (bool, error) {
	var updated bool
	err := s.observe(ctx, OpChangePassword, func(ctx context.Context) error {
		var err error
		updated, err = s.tokens.ChangePassword(ctx, newPassword, secret, userID, sessionID)
		return err
	})
	if err == nil {
		s.logger.InfoContext(ctx, "password changed", "user_id", userID, "updated", updated)
	}
	return updated, err
}

// observe wraps one facade operation in a span, records its outcome and
// logs failures. Storage-side failures log at error level; rejections of
// caller input log at debug.
func (s *Service) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "auth."+op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	kind := KindOf(err)
	s.metrics.record(op, kind, time.Since(start))
	span.SetAttributes(attribute.String("auth.result", string(kind)))

	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	switch {
	case errors.Is(err, ErrStorageFailure):
		errutil.LogErrorContext(ctx, s.logger, "auth operation failed", err, "operation", op)
	case kind == KindSessionActivationFailed, kind == KindUserCreationFailed, kind == KindSessionCreationFailed:
		s.logger.WarnContext(ctx, "auth operation not completed", "operation", op, "kind", string(kind))
	default:
		s.logger.DebugContext(ctx, "auth operation rejected", "operation", op, "kind", string(kind))
	}
	return err
}
