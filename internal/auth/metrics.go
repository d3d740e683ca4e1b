// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used for metric labels, span names and log fields.
const (
	OpRegisterUser               = "register_user"
	OpLoginUser                  = "login_user"
	OpAuthenticate               = "authenticate"
	OpLogout                     = "logout"
	OpCreateTwoFactorCode        = "create_two_factor_code"
	OpAuthenticateTwoFactorCode  = "authenticate_two_factor_code"
	OpCreateEmailLoginToken      = "create_email_login_token"
	OpAuthenticateLoginToken     = "authenticate_login_token"
	OpCreatePasswordRenewalToken = "create_password_renewal_token"
	OpChangePassword             = "change_password"
)

// Metrics records auth operation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates auth metrics and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authn_operations_total",
				Help: "Total number of auth operations by operation and result kind",
			},
			[]string{"operation", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authn_operation_duration_seconds",
				Help:    "Auth operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.Operations)
	reg.MustRegister(m.Duration)

	return m
}

func (m *Metrics) record(operation string, result Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, string(result)).Inc()
	m.Duration.WithLabelValues(operation).Observe(d.Seconds())
}
