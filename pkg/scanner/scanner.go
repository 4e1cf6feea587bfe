// Package scanner orchestrates a scan run over the SQL migrations of a
// project repository.
//
// A run resolves a version selector against the repository tree, classifies
// the files of every selected version by database dialect and sends each
// file to a language model backend for review. Files are analysed on a
// bounded worker pool, one dialect bucket at a time. A failure on one file
// never stops the run; it becomes an error outcome in the report.
//
// Basic usage:
//
//	repo, _ := repository.NewGitLab(cfg.GitLab.URL, cfg.GitLab.Token, cfg.GitLab.TimeoutDuration(), log)
//	client, _ := backend.New(cfg.AI, log)
//	project, _ := cfg.Project("93")
//
//	s := scanner.New(repo, client, scanner.WithLogger(log))
//	rep, err := s.Scan(ctx, scanner.Request{
//	    ProjectID:   "93",
//	    Project:     project,
//	    VersionPath: "v2.1.*",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep)
package scanner

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nsxbet/sql-scanner/pkg/analysis"
	"github.com/nsxbet/sql-scanner/pkg/backend"
	"github.com/nsxbet/sql-scanner/pkg/classifier"
	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/report"
	"github.com/nsxbet/sql-scanner/pkg/repository"
	"github.com/nsxbet/sql-scanner/pkg/telemetry"
	"github.com/nsxbet/sql-scanner/pkg/types"
	"github.com/nsxbet/sql-scanner/pkg/version"
)

// Request describes one scan run.
type Request struct {
	// ProjectID identifies the project in the repository host.
	ProjectID string

	// Project is the project configuration. VersionBasePath is required.
	Project *config.Project

	// VersionPath is the version selector, e.g. "v1.0,v2.*".
	VersionPath string

	// Branch is the ref to read. Defaults to "main".
	Branch string

	// DialectFilter restricts the run to one dialect bucket. Empty scans all.
	DialectFilter types.Dialect

	// Overrides take precedence over the project's ai_analysis section.
	Overrides analysis.Overrides
}

// Plan is the result of resolving and classifying a request without
// analysing anything.
type Plan struct {
	Versions []VersionPlan
}

// VersionPlan lists the dialect buckets of one version directory.
type VersionPlan struct {
	Dir     string
	Name    string
	Buckets classifier.Buckets
}

// Total returns the number of files the plan would scan.
func (p *Plan) Total() int {
	n := 0
	for _, v := range p.Versions {
		n += v.Buckets.Total()
	}
	return n
}

// Scanner runs scans against a repository and an analysis backend.
type Scanner struct {
	repo   repository.Client
	client backend.Client
	opts   options
	raw    []Option
}

// New creates a scanner with the given options.
//
// Example:
//
//	s := scanner.New(repo, client,
//	    scanner.WithConcurrency(10),
//	    scanner.WithMetrics(metrics.New()),
//	)
func New(repo repository.Client, client backend.Client, opts ...Option) *Scanner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Scanner{
		repo:   repo,
		client: client,
		opts:   o,
		raw:    opts,
	}
}

// Plan lists the project files once, resolves the version selector and
// classifies the files of every selected version. Buckets not matching the
// dialect filter are dropped.
func (s *Scanner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if req.Project == nil {
		return nil, errors.Errorf("no configuration for project %s", req.ProjectID)
	}
	branch := branchOrDefault(req.Branch)

	files, err := s.repo.ListFiles(ctx, req.ProjectID, branch)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list files of project %s at %s", req.ProjectID, branch)
	}

	dirs, err := version.NewResolver(s.opts.log).Resolve(req.Project.VersionBasePath, req.VersionPath, files)
	if err != nil {
		return nil, err
	}

	c := classifier.New(Rules(req.Project.DBTypePatterns), s.opts.log)
	plan := &Plan{Versions: make([]VersionPlan, 0, len(dirs))}
	for _, dir := range dirs {
		plan.Versions = append(plan.Versions, VersionPlan{
			Dir:     dir,
			Name:    version.Name(dir),
			Buckets: c.Classify(version.FilesUnder(dir, files)).Filter(req.DialectFilter),
		})
	}
	return plan, nil
}

// Scan runs the whole pipeline and builds the report. It returns an error
// only for run-terminal failures: a missing project, a failed file listing
// or a selector matching no version.
func (s *Scanner) Scan(ctx context.Context, req Request) (*report.Report, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "scan.run", trace.WithAttributes(
		attribute.String("project.id", req.ProjectID),
		attribute.String("version.selector", req.VersionPath),
	))
	defer span.End()

	if req.Project == nil {
		return nil, errors.Errorf("no configuration for project %s", req.ProjectID)
	}
	settings := analysis.Resolve(req.Project.AIAnalysis, req.Overrides)
	branch := branchOrDefault(req.Branch)

	plan, err := s.Plan(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.opts.log.Info("Scan planned",
		"project", req.ProjectID,
		"versions", len(plan.Versions),
		"files", plan.Total(),
		"model", settings.Model,
		"backend", s.client.Name(),
	)

	stats := NewAggregator()
	exec := NewExecutor(s.repo, s.client, settings, stats, s.raw...)

	var outcomes []types.Outcome
	for _, v := range plan.Versions {
		for _, bucket := range v.Buckets {
			stats.SetTotal(bucket.Dialect, v.Name, len(bucket.Files))
			s.opts.log.Info("Scanning bucket", "version", v.Name, "db_type", bucket.Dialect, "files", len(bucket.Files))

			outcomes = append(outcomes, exec.RunBatch(ctx, Batch{
				ProjectID: req.ProjectID,
				Ref:       branch,
				Dialect:   bucket.Dialect,
				Version:   v.Name,
				Files:     bucket.Files,
			})...)

			snap := stats.Snapshot()
			s.opts.log.Debug("Progress", "scanned", snap.ScannedFiles, "skipped", snap.SkippedFiles, "total", snap.TotalFiles)
		}
	}

	rep := report.Build(outcomes, stats.Snapshot(), req.ProjectID, req.VersionPath)
	rep.Branch = branch
	rep.DialectFilter = req.DialectFilter
	rep.GeneratedAt = s.opts.now()

	span.SetAttributes(
		attribute.Int("files.total", rep.Summary.Total),
		attribute.Int("files.errors", rep.Summary.Errors),
		attribute.Int("issues", rep.Summary.Issues),
	)
	s.opts.log.Info("Scan finished", "summary", rep.String())
	return rep, nil
}

// Rules converts configured db_type_patterns into classifier rules,
// preserving their order.
func Rules(patterns config.DialectPatterns) []classifier.Rule {
	rules := make([]classifier.Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, classifier.Rule{
			Dialect:  types.ParseDialect(p.Dialect),
			Patterns: p.Patterns,
		})
	}
	return rules
}

func branchOrDefault(branch string) string {
	if branch == "" {
		return DefaultBranch
	}
	return branch
}
