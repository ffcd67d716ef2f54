// Package metrics holds the Prometheus collectors for validation, the
// SMT engine and the certificate cache. Collectors register with the
// default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aisp"

// #region collectors
var (
	validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "validations_total",
		Help:      "Documents validated, by outcome and tier",
	}, []string{"outcome", "tier"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "stage_seconds",
		Help:      "Latency of each pipeline stage",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"stage"})

	ambiguity = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "ambiguity",
		Help:      "Distribution of measured ambiguity scores",
		Buckets:   []float64{0, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1},
	})

	diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "diagnostics_total",
		Help:      "Diagnostics emitted, by kind and severity",
	}, []string{"kind", "severity"})

	smtVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "smt",
		Name:      "verdicts_total",
		Help:      "SMT query verdicts, by mode, value and reason",
	}, []string{"mode", "value", "reason"})

	smtLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "smt",
		Name:      "query_seconds",
		Help:      "Wall time of solver invocations",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"mode"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Certificate cache lookups, by layer and result",
	}, []string{"layer", "result"})

	proofs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prover",
		Name:      "races_total",
		Help:      "Hybrid prover races, by winning engine",
	}, []string{"winner"})
)

// #endregion collectors

// #region recorders
// RecordValidation counts one finished validation.
func RecordValidation(valid bool, tier string) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	validations.WithLabelValues(outcome, tier).Inc()
}

// ObserveStage records the latency of a pipeline stage in seconds.
func ObserveStage(stage string, seconds float64) {
	stageLatency.WithLabelValues(stage).Observe(seconds)
}

func ObserveAmbiguity(score float64) { ambiguity.Observe(score) }

func RecordDiagnostic(kind, severity string) {
	diagnostics.WithLabelValues(kind, severity).Inc()
}

// RecordVerdict counts an SMT verdict. reason is empty for definite ones.
func RecordVerdict(mode, value, reason string) {
	smtVerdicts.WithLabelValues(mode, value, reason).Inc()
}

func ObserveSolver(mode string, seconds float64) {
	smtLatency.WithLabelValues(mode).Observe(seconds)
}

// RecordCacheLookup counts a lookup against layer "memory" or "store".
func RecordCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(layer, result).Inc()
}

// RecordRace counts which engine settled a hybrid race: "deduction",
// "smt" or "none".
func RecordRace(winner string) { proofs.WithLabelValues(winner).Inc() }

// #endregion recorders
