package monitoring

import (
	"net/http"
	"sync"

	"github.com/mezonai/tokenledger/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ledgerPromMetrics struct {
	upUnixSeconds        prometheus.Gauge
	operations           *prometheus.CounterVec
	rejectedOperations   *prometheus.CounterVec
	logLength            prometheus.Gauge
	hotLogLength         prometheus.Gauge
	archivedTransactions prometheus.Counter
	panicCount           prometheus.Counter
}

func newLedgerPromMetrics() *ledgerPromMetrics {
	return &ledgerPromMetrics{
		upUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenledger_up_timestamp_unix_seconds",
				Help: "Unix timestamp at which the ledger metrics were initialized",
			},
		),
		operations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenledger_operations_total",
				Help: "The total number of committed ledger operations",
			},
			[]string{"kind"},
		),
		rejectedOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenledger_rejected_operations_total",
				Help: "The total number of rejected ledger operations",
			},
			[]string{"kind", "reason"},
		),
		logLength: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenledger_log_length",
				Help: "The number of transactions ever committed",
			},
		),
		hotLogLength: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenledger_hot_log_length",
				Help: "The number of transactions held in hot storage",
			},
		),
		archivedTransactions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenledger_archived_transactions_total",
				Help: "The total number of transactions moved to the archive",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenledger_panics_total",
				Help: "The total number of recovered panics in background goroutines",
			},
		),
	}
}

var (
	metricsOnce   sync.Once
	ledgerMetrics *ledgerPromMetrics
)

// InitMetrics registers the ledger metrics with the default registry. Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		ledgerMetrics = newLedgerPromMetrics()
		ledgerMetrics.upUnixSeconds.SetToCurrentTime()
	})
}

func metrics() *ledgerPromMetrics {
	InitMetrics()
	return ledgerMetrics
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func RecordOperation(kind string) {
	metrics().operations.With(prometheus.Labels{"kind": kind}).Inc()
}

func RecordRejectedOperation(kind, reason string) {
	metrics().rejectedOperations.With(prometheus.Labels{
		"kind":   kind,
		"reason": reason,
	}).Inc()
}

func SetLogLength(logLength, firstIndex uint64) {
	m := metrics()
	m.logLength.Set(float64(logLength))
	m.hotLogLength.Set(float64(logLength - firstIndex))
}

func AddArchivedTransactions(n int) {
	metrics().archivedTransactions.Add(float64(n))
}

func IncreasePanicCount() {
	metrics().panicCount.Inc()
}
