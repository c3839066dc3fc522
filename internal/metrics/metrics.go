// Package metrics holds Prometheus instruments used across the portal.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_submissions_total",
			Help: "Submission attempts partitioned by form and outcome.",
		},
		[]string{"form", "outcome"}, // outcome: ok, invalid, captcha, rate_limited, error
	)

	TurnstileFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "turnstile_failures_total",
			Help: "Cumulative number of rejected or unreachable CAPTCHA verifications.",
		})

	MailDispatchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mail_dispatch_errors_total",
			Help: "Cumulative number of failed SMTP dispatch attempts.",
		})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Cumulative number of submissions rejected by the per-IP limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		TurnstileFailuresTotal,
		MailDispatchErrorsTotal,
		RateLimitedTotal,
	)
}
