package scanner

import (
	"sync"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

// Aggregator maintains the statistics tree of a run. Record is called only
// from the goroutine draining a batch; the mutex lets Snapshot run
// concurrently with it.
type Aggregator struct {
	mu    sync.Mutex
	stats types.Statistics
}

// NewAggregator returns an aggregator with every counter at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{stats: types.NewStatistics()}
}

// SetTotal adds n files to the totals of the global, dialect and version
// scopes. It is called once per bucket before the bucket is scanned.
func (a *Aggregator) SetTotal(dialect types.Dialect, version string, n int) {
	a.update(dialect, version, func(c *types.Counters) {
		c.TotalFiles += n
	})
}

// Record folds one outcome into the three scopes. Skipped files count only
// as skipped; errors count as scanned and as errors.
func (a *Aggregator) Record(o types.Outcome) {
	a.update(o.Dialect, o.Version, func(c *types.Counters) {
		switch o.Status {
		case types.StatusSkipped:
			c.SkippedFiles++
		case types.StatusError:
			c.ScannedFiles++
			c.ErrorFiles++
		case types.StatusSuccess:
			c.ScannedFiles++
			c.IssuesFound += len(o.Issues())
		}
	})
}

// Snapshot returns a copy of the current tree.
func (a *Aggregator) Snapshot() types.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.Clone()
}

func (a *Aggregator) update(dialect types.Dialect, version string, fn func(*types.Counters)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fn(&a.stats.Counters)

	d := a.stats.ByDialect[dialect]
	fn(&d)
	a.stats.ByDialect[dialect] = d

	v := a.stats.ByVersion[version]
	fn(&v)
	a.stats.ByVersion[version] = v
}
