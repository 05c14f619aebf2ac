package prometheus

import (
	"time"

	"github.com/turtacn/motivequery/pkg/errors"
)

// EngineMetrics holds the metrics of query evaluation, batch runs and the
// result store.
type EngineMetrics struct {
	// Evaluation
	QueriesTotal    CounterVec
	QueryDuration   HistogramVec
	MotivesReturned HistogramVec

	// Batch
	BatchRunsTotal  CounterVec
	BatchItemsTotal CounterVec
	BatchDuration   HistogramVec
	BatchInFlight   GaugeVec

	// Result store
	StoreAccessTotal CounterVec
	StoreErrorsTotal CounterVec
}

// Default Buckets
var (
	DefaultQueryDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30}
	DefaultBatchDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900}
	DefaultMotiveCountBuckets   = []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000}
)

// NewEngineMetrics registers all metrics on collector.
func NewEngineMetrics(collector MetricsCollector) *EngineMetrics {
	m := &EngineMetrics{}

	m.QueriesTotal = collector.RegisterCounter("queries_total", "Query evaluations per structure", "status")
	m.QueryDuration = collector.RegisterHistogram("query_duration_seconds", "Query evaluation duration", DefaultQueryDurationBuckets, "status")
	m.MotivesReturned = collector.RegisterHistogram("query_motives", "Motives returned per evaluation", DefaultMotiveCountBuckets)

	m.BatchRunsTotal = collector.RegisterCounter("batch_runs_total", "Batch runs", "status")
	m.BatchItemsTotal = collector.RegisterCounter("batch_items_total", "Batch items by outcome", "status")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Batch run duration", DefaultBatchDurationBuckets)
	m.BatchInFlight = collector.RegisterGauge("batch_items_in_flight", "Structures being evaluated")

	m.StoreAccessTotal = collector.RegisterCounter("store_access_total", "Result store lookups", "result")
	m.StoreErrorsTotal = collector.RegisterCounter("store_errors_total", "Result store failures", "operation")

	return m
}

// NewNopEngineMetrics returns metrics that record nothing.
func NewNopEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		QueriesTotal:     noopCounterVec{},
		QueryDuration:    noopHistogramVec{},
		MotivesReturned:  noopHistogramVec{},
		BatchRunsTotal:   noopCounterVec{},
		BatchItemsTotal:  noopCounterVec{},
		BatchDuration:    noopHistogramVec{},
		BatchInFlight:    noopGaugeVec{},
		StoreAccessTotal: noopCounterVec{},
		StoreErrorsTotal: noopCounterVec{},
	}
}

// Helpers

// StatusOf maps an evaluation error to a low-cardinality label.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.IsCode(err, errors.ErrCodeQueryCancelled):
		return "cancelled"
	default:
		return string(errors.GetCode(err))
	}
}

func RecordQuery(m *EngineMetrics, duration time.Duration, motives int, err error) {
	status := StatusOf(err)
	m.QueriesTotal.WithLabelValues(status).Inc()
	m.QueryDuration.WithLabelValues(status).Observe(duration.Seconds())
	if err == nil {
		m.MotivesReturned.WithLabelValues().Observe(float64(motives))
	}
}

func RecordStoreAccess(m *EngineMetrics, hit bool) {
	if hit {
		m.StoreAccessTotal.WithLabelValues("hit").Inc()
	} else {
		m.StoreAccessTotal.WithLabelValues("miss").Inc()
	}
}

func RecordStoreError(m *EngineMetrics, operation string) {
	m.StoreErrorsTotal.WithLabelValues(operation).Inc()
}

func RecordBatch(m *EngineMetrics, duration time.Duration, failed int) {
	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	m.BatchRunsTotal.WithLabelValues(status).Inc()
	m.BatchDuration.WithLabelValues().Observe(duration.Seconds())
}
