// Package pkg provides the building blocks of SQL Scanner, an AI assisted
// reviewer for the SQL migrations kept in GitLab project repositories.
//
// # Package Structure
//
//   - scanner: orchestration of a scan run (recommended starting point)
//   - version: resolution of version selectors into version directories
//   - classifier: partitioning of SQL files by database type
//   - analysis: prompt construction and response parsing
//   - backend: Ollama and OpenAI compatible model clients
//   - repository: GitLab and in-memory file sources
//   - report: run report, console and file renderers
//   - mysqlparser: ANTLR based MySQL syntax precheck
//   - config: configuration loading, defaults and validation
//   - metrics, telemetry: Prometheus counters and OpenTelemetry spans
//   - types: outcome and statistics types shared by the packages above
//   - logger: logging abstraction layer
//
// # Getting Started
//
//	import (
//	    "github.com/nsxbet/sql-scanner/pkg/backend"
//	    "github.com/nsxbet/sql-scanner/pkg/config"
//	    "github.com/nsxbet/sql-scanner/pkg/repository"
//	    "github.com/nsxbet/sql-scanner/pkg/scanner"
//	)
//
//	func main() {
//	    cfg, _ := config.LoadFromFile("config.yaml")
//	    project, _ := cfg.Project("93")
//	    repo, _ := repository.NewGitLab(cfg.GitLab.URL, cfg.GitLab.Token, cfg.GitLab.TimeoutDuration(), nil)
//	    client, _ := backend.New(cfg.AI, nil)
//
//	    rep, err := scanner.New(repo, client).Scan(context.Background(), scanner.Request{
//	        ProjectID:   "93",
//	        Project:     project,
//	        VersionPath: "v2.*",
//	    })
//	    // Process the report...
//	}
//
// # Statistics
//
// Every run keeps the same counters at three scopes: the whole run, each
// database type and each version. A file that could not be scanned counts
// as scanned and as an error; empty and oversized files count only as
// skipped.
package pkg
