package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/UnknownOlympus/capitals/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_WriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.RecordsProcessed.WithLabelValues("geocode", "success").Add(49)
	m.RecordsProcessed.WithLabelValues("geocode", "failed").Inc()
	m.Issues.WithLabelValues("schema", "MissingField").Inc()
	m.SetPassed("verify", true)

	assert.InDelta(t, 49, testutil.ToFloat64(m.RecordsProcessed.WithLabelValues("geocode", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StagePassed.WithLabelValues("verify")), 0)

	path := filepath.Join(t.TempDir(), "capitals.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `capitals_records_processed_total{stage="geocode",status="success"} 49`)
	assert.Contains(t, string(content), `capitals_validation_issues_total{kind="MissingField",stage="schema"} 1`)
}

func TestMetrics_WriteTextfileBadPath(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	m.SetPassed("audit", false)

	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "capitals.prom"))
	require.Error(t, err)
}
