package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FailureReason buckets an execution error for the counter label. Free-form
// error strings would explode label cardinality.
type FailureReason string

const (
	ReasonNone       FailureReason = "none"
	ReasonValidation FailureReason = "validation"
	ReasonSlippage   FailureReason = "slippage"
	ReasonExternal   FailureReason = "external_call"
	ReasonAccounting FailureReason = "accounting"
	ReasonOther      FailureReason = "other"
)

var registerOnce sync.Once

// Collector управляет набором метрик исполнения
type Collector struct{}

// NewCollector создает новый экземпляр коллектора и регистрирует метрики
func NewCollector() *Collector {
	registerOnce.Do(func() {
		prometheus.MustRegister(executionCounter, executionDuration, rpcLatency)
	})
	return &Collector{}
}

// RecordExecution записывает итог одного исполнения свапа
func (c *Collector) RecordExecution(ctx context.Context, duration time.Duration, success bool, reason FailureReason) {
	status := "success"
	if !success {
		status = "failed"
	}
	select {
	case <-ctx.Done():
		status = "cancelled"
	default:
	}

	executionCounter.WithLabelValues(status, string(reason)).Inc()
	executionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method, endpoint string, duration time.Duration) {
	rpcLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	executionCounter.Reset()
	executionDuration.Reset()
	rpcLatency.Reset()
}
