// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import "time"

// Clock returns the current time. Timestamps written to the store and
// expiry checks both read it.
type Clock func() time.Time

// SystemClock reports wall-clock time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}
