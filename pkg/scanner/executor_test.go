package scanner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-scanner/pkg/analysis"
	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/repository"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

func batchOf(repo *repository.Memory, n int) Batch {
	b := Batch{ProjectID: projectID, Ref: "main", Dialect: types.DialectDB2, Version: "v1"}
	for i := 0; i < n; i++ {
		p := fmt.Sprintf("db/versions/v1/db2/%03d.sql", i)
		repo.Add(projectID, p, []byte("SELECT 1 FROM sysibm.sysdummy1;"))
		b.Files = append(b.Files, p)
	}
	return b
}

func TestRunBatch_BoundedConcurrency(t *testing.T) {
	repo := repository.NewMemory()
	b := batchOf(repo, 12)
	fb := &fakeBackend{delay: 20 * time.Millisecond}

	exec := NewExecutor(repo, fb, analysis.Resolve(config.AIAnalysis{}, analysis.Overrides{}), nil, WithConcurrency(3))
	outcomes := exec.RunBatch(context.Background(), b)

	assert.Len(t, outcomes, 12)
	assert.LessOrEqual(t, fb.peak.Load(), int32(3))
	assert.Equal(t, types.Counters{TotalFiles: 0, ScannedFiles: 12}, exec.Stats().Snapshot().Counters)
}

func TestRunBatch_PoolUnavailable(t *testing.T) {
	repo := repository.NewMemory()
	b := batchOf(repo, 4)
	fb := &fakeBackend{}

	stats := NewAggregator()
	stats.SetTotal(b.Dialect, b.Version, len(b.Files))
	outcomes := NewExecutor(repo, fb, analysis.Settings{}, stats, WithConcurrency(0)).RunBatch(context.Background(), b)

	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Equal(t, types.StatusError, o.Status)
		assert.Contains(t, o.Error, ErrPoolUnavailable.Error())
		assert.Equal(t, types.DialectDB2, o.Dialect)
	}
	assert.Zero(t, fb.calls())
	assert.Equal(t, types.Counters{TotalFiles: 4, ScannedFiles: 4, ErrorFiles: 4}, stats.Snapshot().Counters)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	repo := repository.NewMemory()
	b := batchOf(repo, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := NewExecutor(repo, &fakeBackend{}, analysis.Settings{}, nil).RunBatch(ctx, b)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, types.StatusError, o.Status)
		assert.Contains(t, o.Error, context.Canceled.Error())
	}
}

func TestRunBatch_EmptyBatch(t *testing.T) {
	outcomes := NewExecutor(repository.NewMemory(), &fakeBackend{}, analysis.Settings{}, nil).
		RunBatch(context.Background(), Batch{ProjectID: projectID})
	assert.Empty(t, outcomes)
}

func TestErrorOutcome(t *testing.T) {
	b := Batch{Dialect: types.DialectOracle, Version: "v3"}
	o := errorOutcome(b, "a.sql", fixedNow, assert.AnError)

	assert.Equal(t, types.Outcome{
		FilePath:  "a.sql",
		Dialect:   types.DialectOracle,
		Version:   "v3",
		Status:    types.StatusError,
		Error:     assert.AnError.Error(),
		ScannedAt: fixedNow,
	}, o)
}

func TestAggregator(t *testing.T) {
	a := NewAggregator()
	a.SetTotal(types.DialectMySQL, "v1", 3)
	a.SetTotal(types.DialectOracle, "v2", 1)

	a.Record(types.Outcome{Dialect: types.DialectMySQL, Version: "v1", Status: types.StatusSuccess,
		Analysis: &types.Analysis{Issues: []types.Issue{{Type: types.IssueError}, {Type: types.IssueWarning}}, HasIssues: true}})
	a.Record(types.Outcome{Dialect: types.DialectMySQL, Version: "v1", Status: types.StatusError})
	a.Record(types.Outcome{Dialect: types.DialectMySQL, Version: "v1", Status: types.StatusSkipped})
	a.Record(types.Outcome{Dialect: types.DialectOracle, Version: "v2", Status: types.StatusSuccess})

	s := a.Snapshot()
	assert.Equal(t, types.Counters{TotalFiles: 4, ScannedFiles: 3, ErrorFiles: 1, IssuesFound: 2, SkippedFiles: 1}, s.Counters)
	assert.Equal(t, types.Counters{TotalFiles: 3, ScannedFiles: 2, ErrorFiles: 1, IssuesFound: 2, SkippedFiles: 1}, s.ByDialect[types.DialectMySQL])
	assert.Equal(t, types.Counters{TotalFiles: 1, ScannedFiles: 1}, s.ByVersion["v2"])

	// Snapshots are detached from the aggregator.
	s.ByDialect[types.DialectMySQL] = types.Counters{}
	assert.Equal(t, 3, a.Snapshot().ByDialect[types.DialectMySQL].TotalFiles)
}

func TestAggregator_ConcurrentSnapshot(t *testing.T) {
	a := NewAggregator()
	a.SetTotal(types.DialectDefault, "v1", 100)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			a.Record(types.Outcome{Dialect: types.DialectDefault, Version: "v1", Status: types.StatusSuccess})
		}
	}()
	for i := 0; i < 50; i++ {
		s := a.Snapshot()
		assert.LessOrEqual(t, s.ScannedFiles, s.TotalFiles)
	}
	wg.Wait()

	assert.Equal(t, 100, a.Snapshot().ScannedFiles)
}
