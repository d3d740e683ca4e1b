// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

// Package memory provides an in-process credential store with the same
// soft-delete, uniqueness and transaction semantics as the PostgreSQL store.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/viixet/authn/internal/auth"
)

type txKey struct{}

// Store holds users, sessions and tokens in maps guarded by one mutex.
// A transaction holds the mutex for its whole duration and restores a
// snapshot on rollback.
type Store struct {
	mu       sync.Mutex
	users    map[string]auth.User
	sessions map[string]auth.Session
	tokens   map[string]auth.AuthToken
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]auth.User),
		sessions: make(map[string]auth.Session),
		tokens:   make(map[string]auth.AuthToken),
	}
}

// AuthStore exposes s through the auth repository interfaces.
func (s *Store) AuthStore() auth.Store {
	return auth.Store{
		Users:    (*UserRepository)(s),
		Sessions: (*SessionRepository)(s),
		Tokens:   (*TokenRepository)(s),
		Tx:       s,
	}
}

// InTransaction runs fn with exclusive access to the store. Nested calls
// join the outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, sessions, tokens := maps.Clone(s.users), maps.Clone(s.sessions), maps.Clone(s.tokens)
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.users, s.sessions, s.tokens = users, sessions, tokens
		return err
	}
	return nil
}

// SoftDeleteUser flags a user deleted. Registration and login honour the
// flag; the store never removes rows.
func (s *Store) SoftDeleteUser(ctx context.Context, userID string, now time.Time) error {
	defer s.lock(ctx)()
	u, ok := s.users[userID]
	if !ok || u.Deleted {
		return oops.Code("USER_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	u.Deleted = true
	u.Modified = now
	s.users[userID] = u
	return nil
}

// Session returns the raw session row regardless of its flags.
func (s *Store) Session(ctx context.Context, sessionID string) (auth.Session, bool) {
	defer s.lock(ctx)()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// Token returns the raw token row regardless of its flags.
func (s *Store) Token(ctx context.Context, tokenID string) (auth.AuthToken, bool) {
	defer s.lock(ctx)()
	tok, ok := s.tokens[tokenID]
	return tok, ok
}

// SetSessionModified rewrites a session's modified timestamp.
func (s *Store) SetSessionModified(ctx context.Context, sessionID string, modified time.Time) {
	defer s.lock(ctx)()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.Modified = modified
		s.sessions[sessionID] = sess
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the mutex unless ctx already carries this store's transaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Soft-delete predicates. Every read path goes through these.
func liveUser(u auth.User) bool       { return !u.Deleted }
func liveSession(s auth.Session) bool { return !s.Deleted }
func liveToken(t auth.AuthToken) bool { return !t.Deleted }

// UserRepository implements auth.UserRepository over a Store.
type UserRepository Store

// Create stores a new user, enforcing unique live usernames and emails.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	s := (*Store)(r)
	defer s.lock(ctx)()

	if _, ok := s.users[user.ID]; ok {
		return oops.Code("USER_CREATE_FAILED").With("user_id", user.ID).Wrap(auth.ErrDuplicate)
	}
	for _, u := range s.users {
		if !liveUser(u) {
			continue
		}
		if u.Username == user.Username || u.Email == user.Email {
			return oops.Code("USER_CREATE_FAILED").With("username", user.Username).Wrap(auth.ErrDuplicate)
		}
	}
	u := *user
	if u.Extra == nil {
		u.Extra = auth.EmptyExtra
	}
	s.users[u.ID] = u
	return nil
}

// Exists reports whether identifier matches a username or email.
func (r *UserRepository) Exists(ctx context.Context, identifier string, includeDeleted bool) (bool, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	for _, u := range s.users {
		if !includeDeleted && !liveUser(u) {
			continue
		}
		if u.Username == identifier || u.Email == identifier {
			return true, nil
		}
	}
	return false, nil
}

// GetByUsername retrieves a live user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	for _, u := range s.users {
		if liveUser(u) && u.Username == username {
			return &u, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
}

// UpdatePassword replaces the password hash of a live user.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) (bool, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	u, ok := s.users[userID]
	if !ok || !liveUser(u) {
		return false, nil
	}
	u.Password = passwordHash
	u.Modified = now
	s.users[userID] = u
	return true, nil
}

// SessionRepository implements auth.SessionRepository over a Store.
type SessionRepository Store

// Create stores a new session. The owning user must exist.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	s := (*Store)(r)
	defer s.lock(ctx)()

	if _, ok := s.users[session.UserID]; !ok {
		return oops.Code("SESSION_CREATE_FAILED").
			With("user_id", session.UserID).
			Errorf("foreign key violation: user does not exist")
	}
	if _, ok := s.sessions[session.ID]; ok {
		return oops.Code("SESSION_CREATE_FAILED").With("session_id", session.ID).Wrap(auth.ErrDuplicate)
	}
	s.sessions[session.ID] = *session
	return nil
}

// GetIdentity retrieves a live session joined with its live user.
func (r *SessionRepository) GetIdentity(ctx context.Context, sessionID string) (*auth.SessionIdentity, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	sess, ok := s.sessions[sessionID]
	if !ok || !liveSession(sess) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", sessionID).Wrap(auth.ErrNotFound)
	}
	u, ok := s.users[sess.UserID]
	if !ok || !liveUser(u) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", sessionID).Wrap(auth.ErrNotFound)
	}
	return &auth.SessionIdentity{Session: sess, Username: u.Username}, nil
}

// Activate sets active on a live session.
func (r *SessionRepository) Activate(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	sess, ok := s.sessions[sessionID]
	if !ok || !liveSession(sess) {
		return false, nil
	}
	sess.Active = true
	sess.Modified = now
	s.sessions[sessionID] = sess
	return true, nil
}

// Delete terminates a live session.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	sess, ok := s.sessions[sessionID]
	if !ok || !liveSession(sess) {
		return false, nil
	}
	sess.Active = false
	sess.Deleted = true
	sess.Modified = now
	s.sessions[sessionID] = sess
	return true, nil
}

// TokenRepository implements auth.TokenRepository over a Store.
type TokenRepository Store

// Create stores a new token. Its user and session must exist.
func (r *TokenRepository) Create(ctx context.Context, token *auth.AuthToken) error {
	s := (*Store)(r)
	defer s.lock(ctx)()

	if _, ok := s.users[token.UserID]; !ok {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("user_id", token.UserID).
			Errorf("foreign key violation: user does not exist")
	}
	if _, ok := s.sessions[token.SessionID]; !ok {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("session_id", token.SessionID).
			Errorf("foreign key violation: session does not exist")
	}
	if _, ok := s.tokens[token.ID]; ok {
		return oops.Code("TOKEN_CREATE_FAILED").With("token_id", token.ID).Wrap(auth.ErrDuplicate)
	}
	s.tokens[token.ID] = *token
	return nil
}

// FindLive returns the oldest live token matching q.
func (r *TokenRepository) FindLive(ctx context.Context, q auth.TokenQuery) (*auth.AuthToken, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	var matches []auth.AuthToken
	for _, t := range s.tokens {
		if !liveToken(t) || t.UserID != q.UserID || t.SessionID != q.SessionID || t.Type != q.Type {
			continue
		}
		switch {
		case q.TokenID != "" && t.ID == q.TokenID:
			matches = append(matches, t)
		case q.TokenID == "" && q.Secret != "" && t.Token == q.Secret:
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("type", q.Type.String()).
			With("session_id", q.SessionID).
			Wrap(auth.ErrNotFound)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Created.Equal(matches[j].Created) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Created.Before(matches[j].Created)
	})
	return &matches[0], nil
}

// Deactivate soft-deletes a live token.
func (r *TokenRepository) Deactivate(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	s := (*Store)(r)
	defer s.lock(ctx)()

	t, ok := s.tokens[tokenID]
	if !ok || !liveToken(t) {
		return false, nil
	}
	t.Deleted = true
	t.Modified = now
	s.tokens[tokenID] = t
	return true, nil
}

// Compile-time interface checks.
var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
	_ auth.TokenRepository   = (*TokenRepository)(nil)
	_ auth.Transactor        = (*Store)(nil)
)
