package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nsxbet/sql-scanner/pkg/analysis"
	"github.com/nsxbet/sql-scanner/pkg/backend"
	"github.com/nsxbet/sql-scanner/pkg/mysqlparser"
	"github.com/nsxbet/sql-scanner/pkg/repository"
	"github.com/nsxbet/sql-scanner/pkg/telemetry"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

// Skip reasons recorded on skipped outcomes.
const (
	SkipEmptyFile = "empty file"
	SkipTooLarge  = "file exceeds max size"
)

// ErrPoolUnavailable is carried by every outcome of a batch whose worker
// pool could not be built.
var ErrPoolUnavailable = errors.New("worker pool unavailable")

// Batch is one dialect bucket of one version directory.
type Batch struct {
	ProjectID string
	Ref       string
	Dialect   types.Dialect
	Version   string
	Files     []string
}

// Executor analyses the files of a batch on a bounded worker pool.
type Executor struct {
	repo     repository.Client
	client   backend.Client
	settings analysis.Settings
	stats    *Aggregator
	opts     options
}

// NewExecutor creates an executor. Outcomes are recorded on stats; a nil
// stats gets a private aggregator.
func NewExecutor(repo repository.Client, client backend.Client, settings analysis.Settings, stats *Aggregator, opts ...Option) *Executor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if stats == nil {
		stats = NewAggregator()
	}
	return &Executor{
		repo:     repo,
		client:   backend.RateLimited(client, o.rps, 1),
		settings: settings,
		stats:    stats,
		opts:     o,
	}
}

// Stats returns the aggregator the executor records on.
func (e *Executor) Stats() *Aggregator {
	return e.stats
}

// RunBatch scans every file of b and returns one outcome per file, in
// completion order. It never fails as a whole: per-file and pool failures
// become error outcomes.
func (e *Executor) RunBatch(ctx context.Context, b Batch) []types.Outcome {
	results := make(chan types.Outcome)
	go e.dispatch(ctx, b, results)

	// This loop is the only writer of the statistics tree.
	outcomes := make([]types.Outcome, 0, len(b.Files))
	for o := range results {
		e.stats.Record(o)
		e.opts.metrics.Observe(o)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (e *Executor) dispatch(ctx context.Context, b Batch, results chan<- types.Outcome) {
	defer close(results)

	if e.opts.concurrency < 1 {
		err := errors.Wrapf(ErrPoolUnavailable, "pool size %d", e.opts.concurrency)
		e.opts.log.Error("Cannot scan batch", "db_type", b.Dialect, "version", b.Version, "error", err)
		for _, path := range b.Files {
			results <- errorOutcome(b, path, e.opts.now(), err)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(e.opts.concurrency)

	for i, path := range b.Files {
		if err := ctx.Err(); err != nil {
			err = errors.Wrap(err, "file not scheduled")
			for _, pending := range b.Files[i:] {
				results <- errorOutcome(b, pending, e.opts.now(), err)
			}
			break
		}
		g.Go(func() error {
			results <- e.scanFile(ctx, b, path)
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Executor) scanFile(ctx context.Context, b Batch, path string) (out types.Outcome) {
	start := e.opts.now()
	e.opts.metrics.Started()
	defer e.opts.metrics.Finished()

	ctx, span := telemetry.Tracer().Start(ctx, "scan.file", trace.WithAttributes(
		attribute.String("file.path", path),
		attribute.String("db.type", b.Dialect.String()),
		attribute.String("version", b.Version),
	))
	defer func() {
		out.Duration = e.opts.now().Sub(start)
		span.SetAttributes(attribute.String("scan.status", string(out.Status)))
		if out.Status == types.StatusError {
			span.SetStatus(codes.Error, out.Error)
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			out = errorOutcome(b, path, start, errors.Errorf("panic while scanning: %v", r))
			e.opts.log.Error("Recovered panic", "file", path, "panic", r)
		}
	}()

	out = types.Outcome{
		FilePath:  path,
		Dialect:   b.Dialect,
		Version:   b.Version,
		ScannedAt: start,
	}

	content, err := e.repo.GetFileContent(ctx, b.ProjectID, path, b.Ref)
	if err != nil {
		e.opts.log.Warn("Failed to fetch file", "file", path, "error", err)
		return errorOutcome(b, path, start, errors.Wrap(err, "fetch file"))
	}
	out.FileSize = len(content)

	sql := string(content)
	if strings.TrimSpace(sql) == "" {
		out.Status = types.StatusSkipped
		out.SkipReason = SkipEmptyFile
		e.opts.log.Debug("Skipping file", "file", path, "reason", out.SkipReason)
		return out
	}
	if len(content) > e.opts.maxFileSize {
		out.Status = types.StatusSkipped
		out.SkipReason = SkipTooLarge
		e.opts.log.Info("Skipping file", "file", path, "reason", out.SkipReason, "size", len(content), "max", e.opts.maxFileSize)
		return out
	}

	if b.Dialect == types.DialectMySQL {
		out.Precheck = precheck(sql)
		if out.Precheck.SyntaxError != "" {
			e.opts.log.Debug("MySQL precheck failed", "file", path, "error", out.Precheck.SyntaxError)
		}
	}

	prompt := analysis.BuildPrompt(b.Dialect, path, sql, e.settings)
	raw, err := e.client.Infer(ctx, prompt, backend.Params{
		Model:          e.settings.Model,
		Temperature:    e.settings.Temperature,
		TopP:           e.settings.TopP,
		MaxTokens:      e.settings.MaxTokens,
		EnableThinking: e.settings.EnableThinking,
	})
	if err != nil {
		e.opts.log.Warn("Analysis failed", "file", path, "error", err)
		failed := errorOutcome(b, path, start, err)
		failed.FileSize = out.FileSize
		failed.Precheck = out.Precheck
		return failed
	}

	result := analysis.ParseResponse(raw)
	result.Metadata = types.AnalysisMetadata{
		Model:      e.settings.Model,
		Backend:    e.client.Name(),
		Dialect:    b.Dialect,
		FilePath:   path,
		AnalyzedAt: e.opts.now(),
		Params:     e.settings.Params(),
	}
	out.Status = types.StatusSuccess
	out.Analysis = &result
	return out
}

// errorOutcome is the single shape of a failed file, whether the failure
// happened inside the task or prevented it from running.
func errorOutcome(b Batch, path string, at time.Time, err error) types.Outcome {
	return types.Outcome{
		FilePath:  path,
		Dialect:   b.Dialect,
		Version:   b.Version,
		Status:    types.StatusError,
		Error:     err.Error(),
		ScannedAt: at,
	}
}

func precheck(sql string) *types.Precheck {
	res := mysqlparser.Check(sql)
	p := &types.Precheck{Statements: res.Statements}
	if res.Err != nil {
		p.SyntaxError = res.Err.Error()
	}
	return p
}
