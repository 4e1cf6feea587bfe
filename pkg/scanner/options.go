package scanner

import (
	"time"

	"github.com/nsxbet/sql-scanner/pkg/logger"
	"github.com/nsxbet/sql-scanner/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultConcurrency = 5
	DefaultMaxFileSize = 100000
	DefaultBranch      = "main"
)

// Option is a functional option for customizing scan behavior.
type Option func(*options)

type options struct {
	log         logger.Interface
	metrics     *metrics.Metrics
	concurrency int
	maxFileSize int
	rps         float64
	now         func() time.Time
}

func defaultOptions() options {
	return options{
		log:         logger.Discard(),
		concurrency: DefaultConcurrency,
		maxFileSize: DefaultMaxFileSize,
		now:         time.Now,
	}
}

// WithLogger sets the logger used for progress and per-file failures.
func WithLogger(l logger.Interface) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records per-file counters and durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithConcurrency sets the number of files analysed at the same time.
//
// The value is used as given: a pool size below one cannot run any task,
// and every file of a batch is then reported as an error outcome.
//
// Example:
//
//	s := scanner.New(repo, client, scanner.WithConcurrency(cfg.GlobalSettings.MaxConcurrentFiles))
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithMaxFileSize sets the size in bytes above which a file is skipped.
func WithMaxFileSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFileSize = n
		}
	}
}

// WithRateLimit bounds backend calls to rps per second across all workers.
// Clients built by backend.New already honour ai.requests_per_second; this
// option is for clients constructed by hand.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		o.rps = rps
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
