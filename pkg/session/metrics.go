package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("incscore.session")

var (
	// operationsTotal counts fact operations by kind and outcome.
	// Labels: op = insert|update|replace|retract, result = ok|rejected|broken
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incscore_session_operations_total",
		Help: "Fact operations applied to sessions",
	}, []string{"op", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "incscore_session_operation_duration_seconds",
		Help:    "Propagation time of one fact operation",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
	}, []string{"op"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incscore_session_verifications_total",
		Help: "Full-rebuild score verifications by outcome",
	}, []string{"result"})

	sessionsBroken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incscore_sessions_broken_total",
		Help: "Sessions that stopped after an internal error",
	})
)
