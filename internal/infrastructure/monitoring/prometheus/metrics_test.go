package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/motivequery/pkg/errors"
)

func TestNewEngineMetrics_AllRegistered(t *testing.T) {
	c := newTestCollector(t)
	m := NewEngineMetrics(c)

	RecordQuery(m, 2*time.Millisecond, 3, nil)
	RecordQuery(m, time.Millisecond, 0, errors.Runtime("boom"))
	RecordQuery(m, time.Millisecond, 0, errors.New(errors.ErrCodeQueryCancelled, "stop"))
	RecordStoreAccess(m, true)
	RecordStoreAccess(m, false)
	RecordStoreAccess(m, false)
	RecordStoreError(m, "put")
	m.BatchItemsTotal.WithLabelValues("ok").Inc()
	m.BatchInFlight.WithLabelValues().Set(4)
	RecordBatch(m, time.Second, 1)

	output := scrapeMetrics(t, c)
	for _, want := range []string{
		`test_unit_queries_total{status="ok"} 1`,
		`test_unit_queries_total{status="QRY_002"} 1`,
		`test_unit_queries_total{status="cancelled"} 1`,
		`test_unit_query_motives_sum 3`,
		`test_unit_store_access_total{result="hit"} 1`,
		`test_unit_store_access_total{result="miss"} 2`,
		`test_unit_store_errors_total{operation="put"} 1`,
		`test_unit_batch_items_total{status="ok"} 1`,
		`test_unit_batch_items_in_flight 4`,
		`test_unit_batch_runs_total{status="partial"} 1`,
		`test_unit_batch_duration_seconds_count 1`,
	} {
		assert.Contains(t, output, want)
	}
}

func TestNopEngineMetrics(t *testing.T) {
	m := NewNopEngineMetrics()
	assert.NotPanics(t, func() {
		RecordQuery(m, time.Millisecond, 1, nil)
		RecordStoreAccess(m, true)
		RecordStoreError(m, "get")
		RecordBatch(m, time.Second, 0)
		m.BatchInFlight.WithLabelValues().Inc()
	})
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "ok", StatusOf(nil))
	assert.Equal(t, "QRY_004", StatusOf(errors.New(errors.ErrCodeQueryUndefinedSymbol, "x")))
	assert.Equal(t, "cancelled", StatusOf(errors.New(errors.ErrCodeQueryCancelled, "x")))
}
