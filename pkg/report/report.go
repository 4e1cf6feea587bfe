// Package report assembles scan outcomes and statistics into the final run
// document and renders it for people and machines.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

// Report is the result of one scan run.
//
// Results holds one outcome per classified file in completion order.
// Statistics holds the same information aggregated at global, dialect and
// version scope.
type Report struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	ProjectID     string           `json:"project_id" yaml:"project_id"`
	VersionPath   string           `json:"version_path" yaml:"version_path"`
	Branch        string           `json:"branch" yaml:"branch"`
	DialectFilter types.Dialect    `json:"db_type_filter,omitempty" yaml:"db_type_filter,omitempty"`
	GeneratedAt   time.Time        `json:"scan_time" yaml:"scan_time"`
	Statistics    types.Statistics `json:"statistics" yaml:"statistics"`
	Results       []types.Outcome  `json:"results" yaml:"results"`
	Summary       Summary          `json:"summary" yaml:"summary"`
}

// Summary provides the headline numbers of a run.
type Summary struct {
	// Total is the number of classified files.
	Total int `json:"total_files" yaml:"total_files"`

	// Scanned counts files that reached a terminal state other than skipped.
	// Errors are included.
	Scanned int `json:"scanned_files" yaml:"scanned_files"`

	// Errors is the number of files whose scan failed.
	Errors int `json:"error_files" yaml:"error_files"`

	// Skipped counts empty and oversized files.
	Skipped int `json:"skipped_files" yaml:"skipped_files"`

	// Issues is the number of issues detected across all files.
	Issues int `json:"issues_found" yaml:"issues_found"`

	// SuccessRate is Scanned divided by Total, or by one for an empty run.
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// Build assembles a report. It does not modify its inputs.
func Build(outcomes []types.Outcome, stats types.Statistics, projectID, selector string) *Report {
	results := make([]types.Outcome, len(outcomes))
	copy(results, outcomes)

	return &Report{
		RunID:       uuid.New().String(),
		ProjectID:   projectID,
		VersionPath: selector,
		GeneratedAt: time.Now(),
		Statistics:  stats.Clone(),
		Results:     results,
		Summary:     summarize(stats.Counters),
	}
}

func summarize(c types.Counters) Summary {
	return Summary{
		Total:       c.TotalFiles,
		Scanned:     c.ScannedFiles,
		Errors:      c.ErrorFiles,
		Skipped:     c.SkippedFiles,
		Issues:      c.IssuesFound,
		SuccessRate: float64(c.ScannedFiles) / float64(max(c.TotalFiles, 1)),
	}
}

// HasIssues returns true if any analysed file produced at least one issue.
//
// This is useful for CI pipelines that should fail on findings:
//
//	if rep.HasIssues() {
//	    os.Exit(1)
//	}
func (r *Report) HasIssues() bool {
	return r.Summary.Issues > 0
}

// HasErrors returns true if at least one file could not be scanned.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// FilesWithIssues returns the outcomes whose analysis detected an issue.
func (r *Report) FilesWithIssues() []types.Outcome {
	filtered := make([]types.Outcome, 0)
	for _, o := range r.Results {
		if o.HasIssues() {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// FilterByStatus returns the outcomes with the given status.
//
//	for _, o := range rep.FilterByStatus(types.StatusError) {
//	    fmt.Printf("ERROR: %s: %s\n", o.FilePath, o.Error)
//	}
func (r *Report) FilterByStatus(status types.Status) []types.Outcome {
	filtered := make([]types.Outcome, 0)
	for _, o := range r.Results {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// String returns a one-line summary.
//
// Example output:
//
//	Scan Results: 12 total (11 scanned, 1 errors, 0 skipped, 4 issues)
func (r *Report) String() string {
	return fmt.Sprintf(
		"Scan Results: %d total (%d scanned, %d errors, %d skipped, %d issues)",
		r.Summary.Total,
		r.Summary.Scanned,
		r.Summary.Errors,
		r.Summary.Skipped,
		r.Summary.Issues,
	)
}
