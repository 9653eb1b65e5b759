package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/workload-api/internal/workload"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordImportRow(outcomeSucceeded)
	m.RecordImportRow(outcomeSucceeded)
	m.RecordImportRow(outcomeSkipped)
	m.RecordConflict(workload.ConflictResult{Severity: workload.SeverityError, Kind: workload.ConflictOverload}, true)
	m.RecordConflict(workload.ConflictResult{Severity: workload.SeverityOK}, false)
	m.RecordBackfill(3, 1)
	m.RecordMatrixSave(true, "applied")
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.importRows.WithLabelValues(outcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("error", "overload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("ok", "none")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.backfillRecords.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matrixSaves.WithLabelValues("atomic", "applied")))

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(3), snapshot.ImportRows)
	assert.Equal(t, uint64(1), snapshot.BlockedAssignments)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordImportRow(outcomeErrored)
		m.RecordBackfill(1, 0)
		m.RecordMatrixSave(false, "partial")
		m.ObserveDBQuery("q", time.Millisecond)
	})
	assert.Zero(t, m.Snapshot().ImportRows)
}
