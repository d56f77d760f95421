// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes recorded by ObserveLogin.
const (
	LoginSuccess  = "success"
	LoginRejected = "rejected"
	LoginError    = "error"
)

// Metrics holds the warden domain counters. All methods are safe on a nil
// receiver so callers can run without metrics.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	LoginsTotal    *prometheus.CounterVec
	SessionsIssued prometheus.Counter
	OTPsIssued     prometheus.Counter
	ExpiredPurged  *prometheus.CounterVec
}

// NewMetrics creates the warden counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_sessions_issued_total",
			Help: "Total number of sessions issued",
		}),
		OTPsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_otps_issued_total",
			Help: "Total number of one time passwords issued",
		}),
		ExpiredPurged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_expired_purged_total",
				Help: "Total number of expired rows purged by kind",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.LoginsTotal, m.SessionsIssued, m.OTPsIssued, m.ExpiredPurged)
	return m
}

// ObserveRequest counts a served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveLogin counts a login attempt. A successful login also counts an
// issued session.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
	if outcome == LoginSuccess {
		m.SessionsIssued.Inc()
	}
}

// ObserveOTPIssued counts a mailed one-time password.
func (m *Metrics) ObserveOTPIssued() {
	if m == nil {
		return
	}
	m.OTPsIssued.Inc()
}

// ObservePurge counts rows removed by the expiry sweeper. Its signature
// matches auth.PurgeHook.
func (m *Metrics) ObservePurge(kind string, count int64) {
	if m == nil {
		return
	}
	m.ExpiredPurged.WithLabelValues(kind).Add(float64(count))
}
