// Package telemetry provides the Prometheus metrics and OpenTelemetry tracing
// plumbing for the session lifecycle.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for sessionguard.
// Pass to components that need to record metrics.
type Metrics struct {
	// ReconcilesTotal counts server reconciliation passes by result
	// (ok, error, inactive).
	ReconcilesTotal *prometheus.CounterVec
	// WarningsTotal counts expiry warnings surfaced to the user.
	WarningsTotal prometheus.Counter
	// LogoutsTotal counts terminated sessions by reason.
	LogoutsTotal *prometheus.CounterVec
	// SessionState is the current lifecycle state as its numeric value.
	SessionState prometheus.Gauge
	// RequestsTotal counts outgoing requests seen by the activity tagger.
	RequestsTotal *prometheus.CounterVec
	// HintsTotal counts advisory expiry hints observed on responses.
	HintsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ReconcilesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sessionguard",
				Name:      "reconciles_total",
				Help:      "Total server reconciliation passes",
			},
			[]string{"result"}, // result=ok/error/inactive
		),
		WarningsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessionguard",
				Name:      "warnings_total",
				Help:      "Total idle-expiry warnings surfaced",
			},
		),
		LogoutsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sessionguard",
				Name:      "logouts_total",
				Help:      "Total session terminations",
			},
			[]string{"reason"}, // reason=user_logout/idle_expiry/unauthorized/server_inactive
		),
		SessionState: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sessionguard",
				Name:      "session_state",
				Help:      "Current session state (0=anonymous 1=active 2=warning 3=expired)",
			},
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sessionguard",
				Name:      "requests_total",
				Help:      "Total outgoing requests tagged with session activity",
			},
			[]string{"method"},
		),
		HintsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessionguard",
				Name:      "hints_total",
				Help:      "Total advisory expiry hints observed on responses",
			},
		),
	}
}
