// Package metrics exposes in-process prometheus metrics for swap executions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Определение метрик исполнения свапов
var (
	executionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paraswap_adapter",
			Name:      "executions_total",
			Help:      "Total number of buy executions attempted",
		},
		[]string{"status", "reason"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paraswap_adapter",
			Name:      "execution_duration_seconds",
			Help:      "Buy execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"status"},
	)

	rpcLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paraswap_adapter",
			Name:      "rpc_latency_seconds",
			Help:      "JSON-RPC request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"method", "endpoint"},
	)
)
