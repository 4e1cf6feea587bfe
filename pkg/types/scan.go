package types

import (
	"strings"
	"time"
)

// Dialect is the target database flavor a SQL file is written for.
type Dialect string

const (
	DialectMySQL   Dialect = "mysql"
	DialectOracle  Dialect = "oracle"
	DialectDB2     Dialect = "db2"
	DialectDefault Dialect = "default"
)

// KnownDialects lists the dialects recognized by the filename heuristics.
var KnownDialects = []Dialect{DialectMySQL, DialectOracle, DialectDB2}

// ParseDialect converts a user supplied dialect name. Unknown names are kept
// as-is so that dialects declared only in db_type_patterns still filter.
func ParseDialect(s string) Dialect {
	return Dialect(strings.ToLower(strings.TrimSpace(s)))
}

func (d Dialect) String() string {
	return string(d)
}

// Status is the terminal state of one file scan.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// IssueType tags a detected issue.
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
)

// Issue is a single problem detected in an analysis response.
type Issue struct {
	Type        IssueType `json:"type" yaml:"type"`
	Indicator   string    `json:"indicator" yaml:"indicator"`
	Description string    `json:"description" yaml:"description"`
	Details     string    `json:"details,omitempty" yaml:"details,omitempty"`
}

// AnalysisParams records the sampling parameters an analysis ran with.
type AnalysisParams struct {
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	TopP           float64 `json:"top_p" yaml:"top_p"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	EnableThinking bool    `json:"enable_thinking" yaml:"enable_thinking"`
	Depth          string  `json:"analysis_depth" yaml:"analysis_depth"`
}

// AnalysisMetadata describes how an analysis was produced.
type AnalysisMetadata struct {
	Model      string         `json:"model_used" yaml:"model_used"`
	Backend    string         `json:"backend" yaml:"backend"`
	Dialect    Dialect        `json:"db_type" yaml:"db_type"`
	FilePath   string         `json:"file_path" yaml:"file_path"`
	AnalyzedAt time.Time      `json:"analysis_time" yaml:"analysis_time"`
	Params     AnalysisParams `json:"ai_params" yaml:"ai_params"`
}

// Analysis is the structured form of a backend response.
type Analysis struct {
	RawResult string           `json:"raw_result" yaml:"raw_result"`
	Issues    []Issue          `json:"issues" yaml:"issues"`
	HasIssues bool             `json:"has_issues" yaml:"has_issues"`
	Metadata  AnalysisMetadata `json:"analysis_metadata" yaml:"analysis_metadata"`
}

// Precheck is the result of the local syntax pass run before analysis.
type Precheck struct {
	Statements  int    `json:"statements" yaml:"statements"`
	SyntaxError string `json:"syntax_error,omitempty" yaml:"syntax_error,omitempty"`
}

// Outcome is the result of one scan attempt for one file. It is created by
// exactly one worker task and not modified afterwards.
type Outcome struct {
	FilePath   string        `json:"file_path" yaml:"file_path"`
	Dialect    Dialect       `json:"db_type" yaml:"db_type"`
	Version    string        `json:"version" yaml:"version"`
	FileSize   int           `json:"file_size" yaml:"file_size"`
	Status     Status        `json:"status" yaml:"status"`
	Analysis   *Analysis     `json:"ai_analysis,omitempty" yaml:"ai_analysis,omitempty"`
	Precheck   *Precheck     `json:"precheck,omitempty" yaml:"precheck,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	SkipReason string        `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	ScannedAt  time.Time     `json:"scan_time" yaml:"scan_time"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Issues returns the issues attached to the outcome, if any.
func (o Outcome) Issues() []Issue {
	if o.Analysis == nil {
		return nil
	}
	return o.Analysis.Issues
}

// HasIssues reports whether the analysis detected at least one issue.
func (o Outcome) HasIssues() bool {
	return o.Analysis != nil && o.Analysis.HasIssues
}
