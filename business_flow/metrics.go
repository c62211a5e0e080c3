package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation and result label values
const (
	opOpen      = "open"
	opIncrement = "increment"
	opDecrement = "decrement"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	// Counter page operations partitioned by operation and result
	counterOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_operations_total",
			Help: "Total number of counter page operations",
		},
		[]string{"operation", "result"},
	)

	// Clicks whose value only reached the display
	counterPersistSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "counter_persist_skipped_total",
			Help: "Number of counter clicks not written to the store because the counter was missing",
		},
	)
)
