// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

// Package auth implements the credential and session authentication core.
//
// # Domain Types
//
// A User owns Sessions, and a Session owns single-use AuthTokens. Rows are
// never physically removed: every entity carries a deleted flag and every
// read path in the store filters it.
//
// Sessions move through three states:
//   - pending - created by LoginUser after the password check
//   - active - set once, when a bound token flow completes
//   - terminated - set by Logout; irreversible
//
// # Services
//
// Managers coordinate one entity each and are composed by Service:
//   - IdentityManager - registration and existence checks
//   - SessionManager - create, activate, delete, expiry evaluation
//   - TokenManager - two-factor, email-login and password-renewal flows
//   - Service - the facade consumed by callers
//
// Every operation runs inside a single Transactor transaction. Token
// consumption and session activation commit together or not at all.
package auth
