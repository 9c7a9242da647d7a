package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// VaultMetrics tracks vault engine executions.
type VaultMetrics struct {
	executions   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	instantiated prometheus.Counter
	liquidations *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record API
// request activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by transport, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by transport, method and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stakevault",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to rate limiting.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	module = labelOrUnknown(module)
	method = labelOrUnknown(method)
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, strconv.Itoa(status)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(labelOrUnknown(module), labelOrUnknown(reason)).Inc()
}

// Vault returns the lazily-initialised vault engine metrics.
func Vault() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			executions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "vault",
				Name:      "executions_total",
				Help:      "Vault executions segmented by action and error class.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stakevault",
				Subsystem: "vault",
				Name:      "execution_duration_seconds",
				Help:      "Time spent executing a vault message including ledger dispatch.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
			instantiated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "vault",
				Name:      "instantiated_total",
				Help:      "Vault instances created.",
			}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "vault",
				Name:      "liquidations_completed_total",
				Help:      "Completed collateral liquidations by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			vaultRegistry.executions,
			vaultRegistry.latency,
			vaultRegistry.instantiated,
			vaultRegistry.liquidations,
		)
	})
	return vaultRegistry
}

// ObserveExecution records one vault execution. An empty outcome means success.
func (m *VaultMetrics) ObserveExecution(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if strings.TrimSpace(outcome) == "" {
		outcome = "ok"
	}
	action = labelOrUnknown(action)
	m.executions.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(d.Seconds())
}

// RecordInstantiation counts a new vault.
func (m *VaultMetrics) RecordInstantiation() {
	if m == nil {
		return
	}
	m.instantiated.Inc()
}

// RecordLiquidation counts a completed liquidation.
func (m *VaultMetrics) RecordLiquidation(outcome string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(labelOrUnknown(outcome)).Inc()
}

func labelOrUnknown(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
