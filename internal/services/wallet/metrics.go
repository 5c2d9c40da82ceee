package wallet

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                         {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                        {}
func (n *NoopMetricsCollector) RecordError(string, string)                    {}
func (n *NoopMetricsCollector) RecordTransaction(string, float64)             {}
func (n *NoopMetricsCollector) RecordReconciliation(int, int)                 {}

// PrometheusMetrics exports ledger metrics to a prometheus registry.
type PrometheusMetrics struct {
	operationDuration   *prometheus.HistogramVec
	operationResults    *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	errors              *prometheus.CounterVec
	transactions        *prometheus.CounterVec
	transactionVolume   *prometheus.CounterVec
	walletMismatches    prometheus.Gauge
	unbalancedTransfers prometheus.Gauge
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		operationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total number of ledger operations by result",
			},
			[]string{"operation", "result"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_lookups_total",
				Help: "Wallet cache lookups by result",
			},
			[]string{"entity", "result"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_errors_total",
				Help: "Ledger infrastructure errors",
			},
			[]string{"operation", "type"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transfers_total",
				Help: "Completed ledger movements by category",
			},
			[]string{"category"},
		),
		transactionVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transfer_volume",
				Help: "Money moved by category",
			},
			[]string{"category"},
		),
		walletMismatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_reconciliation_wallet_mismatches",
			Help: "Wallets whose balance disagrees with their ledger in the last audit",
		}),
		unbalancedTransfers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_reconciliation_unbalanced_transfers",
			Help: "Transfer groups that do not net to zero in the last audit",
		}),
	}
}

func (m *PrometheusMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordOperationResult(operation, result string) {
	m.operationResults.WithLabelValues(operation, result).Inc()
}

func (m *PrometheusMetrics) RecordCacheHit(entity string) {
	m.cacheLookups.WithLabelValues(entity, "hit").Inc()
}

func (m *PrometheusMetrics) RecordCacheMiss(entity string) {
	m.cacheLookups.WithLabelValues(entity, "miss").Inc()
}

func (m *PrometheusMetrics) RecordError(operation, errType string) {
	m.errors.WithLabelValues(operation, errType).Inc()
}

func (m *PrometheusMetrics) RecordTransaction(category string, amount float64) {
	m.transactions.WithLabelValues(category).Inc()
	m.transactionVolume.WithLabelValues(category).Add(amount)
}

func (m *PrometheusMetrics) RecordReconciliation(walletMismatches, unbalancedTransfers int) {
	m.walletMismatches.Set(float64(walletMismatches))
	m.unbalancedTransfers.Set(float64(unbalancedTransfers))
}
