package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipmate_credential_refresh_total",
			Help: "Total credential refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	refreshWaiters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shipmate_refresh_waiters_total",
			Help: "Total requests parked behind an in-flight credential refresh",
		},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipmate_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)
