package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Started()
	m.Started()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inFlight))
	m.Finished()
	m.Finished()

	m.Observe(types.Outcome{
		Dialect:  types.DialectMySQL,
		Status:   types.StatusSuccess,
		Duration: 2 * time.Second,
		Analysis: &types.Analysis{
			Issues:    []types.Issue{{Type: types.IssueError}, {Type: types.IssueWarning}},
			HasIssues: true,
		},
	})
	m.Observe(types.Outcome{Dialect: types.DialectMySQL, Status: types.StatusError})
	m.Observe(types.Outcome{Dialect: types.DialectOracle, Status: types.StatusSkipped})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues("mysql", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues("mysql", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues("oracle", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.issues.WithLabelValues("mysql", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.issues.WithLabelValues("mysql", "warning")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Started()
	m.Finished()
	m.Observe(types.Outcome{})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(types.Outcome{Dialect: types.DialectDB2, Status: types.StatusSuccess})

	path := filepath.Join(t.TempDir(), "scan.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sql_scanner_scan_files_total{db_type="db2",status="success"} 1`)
}
