package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rebuilder"

// Outcome labels shared by the rebuild and geocode counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeDisabled = "disabled"
	OutcomeEmpty    = "empty"
	OutcomeNoResult = "no_result"
	OutcomeOpen     = "circuit_open"
)

var (
	rebuildDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "dispatch_total",
			Help:      "Rebuild trigger attempts by transport and outcome.",
		},
		[]string{"transport", "outcome"},
	)

	rebuildSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "suppressed_total",
			Help:      "Content changes suppressed by the rebuild cooldown.",
		},
		[]string{"source"},
	)

	rebuildRegistryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "registry_entries",
			Help:      "Change keys currently tracked by the cooldown registry.",
		},
	)

	geocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "requests_total",
			Help:      "Geocode lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// RecordDispatch counts one rebuild trigger attempt.
func RecordDispatch(transport, outcome string) {
	rebuildDispatches.WithLabelValues(transport, outcome).Inc()
}

// RecordSuppressed counts one change swallowed by the cooldown.
func RecordSuppressed(source string) {
	rebuildSuppressed.WithLabelValues(source).Inc()
}

// SetRegistryEntries reports the cooldown registry size.
func SetRegistryEntries(n int) {
	rebuildRegistryEntries.Set(float64(n))
}

// RecordGeocode counts one geocode lookup.
func RecordGeocode(outcome string) {
	geocodeRequests.WithLabelValues(outcome).Inc()
}
