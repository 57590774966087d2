// Package metrics exposes Prometheus instrumentation for validation
// decisions and outbound fetches.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/webguard/urlcheck"
)

var (
	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webguard_decisions_total",
		Help: "Validation decisions by verdict and reason.",
	}, []string{"verdict", "reason"})

	fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webguard_fetches_total",
		Help: "Outbound fetches by outcome.",
	}, []string{"outcome"})
)

// Reason maps a validation error to a stable label used in metrics,
// audit events, and API responses.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, urlcheck.ErrEmptyURL):
		return "empty_url"
	case errors.Is(err, urlcheck.ErrWhitespaceInURL):
		return "whitespace_in_url"
	case errors.Is(err, urlcheck.ErrInvalidScheme):
		return "invalid_scheme"
	case errors.Is(err, urlcheck.ErrMissingHost):
		return "missing_host"
	case errors.Is(err, urlcheck.ErrUserinfoNotAllowed):
		return "userinfo_not_allowed"
	case errors.Is(err, urlcheck.ErrIPv6NotSupported):
		return "ipv6_not_supported"
	case errors.Is(err, urlcheck.ErrHostNotAllowed):
		return "host_not_allowed"
	case errors.Is(err, urlcheck.ErrPrivateHost):
		return "private_host"
	default:
		return "error"
	}
}

// RecordDecision counts one validation decision. A nil error is an
// allowed verdict; anything else is blocked, labeled by reason.
func RecordDecision(err error) {
	verdict := "allowed"
	if err != nil {
		verdict = "blocked"
	}
	decisions.WithLabelValues(verdict, Reason(err)).Inc()
}

// RecordFetch counts one outbound fetch by outcome ("ok", "blocked",
// "http_error", "transport_error").
func RecordFetch(outcome string) {
	fetches.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
