package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionDecisions counts pipeline outcomes by reason code.
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_admission_decisions_total",
		Help: "Admission decisions by reason code.",
	}, []string{"reason"})

	// StoreDegradations counts decisions made on degraded in-memory state
	// because the persistent store was unreachable or timed out.
	StoreDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_store_degradations_total",
		Help: "Admission checks degraded by persistent store failures.",
	}, []string{"component"})

	// CredentialCacheHits counts key-resolver cache outcomes.
	CredentialCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_credential_cache_total",
		Help: "Credential cache lookups by outcome.",
	}, []string{"outcome"})

	// BreakerTrips counts circuit breaker open transitions per guarded
	// component (window store, each proxy route).
	BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_circuit_breaker_trips_total",
		Help: "Circuit breaker transitions to the open state.",
	}, []string{"component"})

	// UnlimitedRequests is the lifetime counter for unlimited-tier
	// traffic, kept so unlimited keys stay observable.
	UnlimitedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_unlimited_tier_requests_total",
		Help: "Requests admitted on unlimited rate tiers.",
	})
)
