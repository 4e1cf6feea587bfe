package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nsxbet/sql-scanner/pkg/analysis"
	"github.com/nsxbet/sql-scanner/pkg/backend"
	"github.com/nsxbet/sql-scanner/pkg/metrics"
	"github.com/nsxbet/sql-scanner/pkg/report"
	"github.com/nsxbet/sql-scanner/pkg/scanner"
	"github.com/nsxbet/sql-scanner/pkg/telemetry"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the SQL migrations of a project with a language model",
	Long: `Scan the SQL files of every version directory matched by --version-path.

Files are grouped by database type and sent to the configured AI backend
with a bounded number of requests in flight. A failure on one file is
recorded in the report and does not stop the scan.`,
	Example: `  sql-scanner scan -p 93 -v "v2.1.*" --db-type mysql
  sql-scanner scan -p 93 -v v1.0,v1.1 --output json --output-dir reports
  sql-scanner scan -p 93 -v "*" --analysis-depth deep --focus-areas security,performance`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addTargetFlags(scanCmd)

	f := scanCmd.Flags()
	f.String("db-type", "", "only scan one database type (mysql, oracle, db2, default or a db_type_patterns tag)")
	f.StringP("output", "o", string(report.FormatConsole), "output format (console, text, json, yaml)")
	f.String("output-dir", "", "directory for report files (default from global_settings.output_dir)")
	f.Int("max-concurrent-files", 0, "files analysed at the same time (default from global_settings)")

	addAnalysisFlags(f)

	f.String("metrics-file", "", "write Prometheus metrics to this file when the scan ends")
	f.Bool("trace", false, "print OpenTelemetry spans to stderr")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	t, err := loadTarget(cmd)
	if err != nil {
		return err
	}

	outputFlag, _ := f.GetString("output")
	format, err := report.ParseFormat(outputFlag)
	if err != nil {
		return err
	}

	dbType, _ := f.GetString("db-type")
	if dbType != "" {
		dialect, err := parseDBType(dbType)
		if err != nil {
			return err
		}
		t.request.DialectFilter = dialect
	}

	overrides, err := overridesFromFlags(f)
	if err != nil {
		return err
	}
	t.request.Overrides = overrides

	client, err := backend.New(t.cfg.AI, log)
	if err != nil {
		return err
	}

	if trace, _ := f.GetBool("trace"); trace {
		shutdown, err := telemetry.Setup(Version, os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Warn("Failed to flush traces", "error", err)
			}
		}()
	}

	metricsFile, _ := f.GetString("metrics-file")
	var m *metrics.Metrics
	if metricsFile != "" {
		m = metrics.New()
	}

	concurrency := t.cfg.GlobalSettings.MaxConcurrentFiles
	if f.Changed("max-concurrent-files") {
		concurrency, _ = f.GetInt("max-concurrent-files")
	}

	s := scanner.New(t.repo, client,
		scanner.WithLogger(log),
		scanner.WithMetrics(m),
		scanner.WithConcurrency(concurrency),
		scanner.WithMaxFileSize(t.cfg.GlobalSettings.MaxFileSize),
	)

	rep, err := s.Scan(ctx, t.request)
	if err != nil {
		return err
	}

	if err := m.WriteTextfile(metricsFile); err != nil {
		log.Warn("Failed to write metrics", "error", err)
	}

	outputDir, _ := f.GetString("output-dir")
	if outputDir == "" {
		outputDir = t.cfg.GlobalSettings.OutputDir
	}
	path, err := report.NewRenderer(cmd.OutOrStdout(), outputDir).Render(rep, format)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	}
	return nil
}

// parseDBType accepts the built-in dialects and any tag declared in a
// project's db_type_patterns.
func parseDBType(s string) (types.Dialect, error) {
	d := types.ParseDialect(s)
	if d == "" {
		return "", errors.New("--db-type must not be empty")
	}
	return d, nil
}

// addAnalysisFlags registers the flags overriding the ai_analysis section.
func addAnalysisFlags(f *pflag.FlagSet) {
	f.String("model", "", "model name")
	f.Bool("enable-thinking", false, "keep the model's reasoning in the answer")
	f.Float64("temperature", analysis.DefaultTemperature, "sampling temperature (0-2)")
	f.Float64("top-p", analysis.DefaultTopP, "nucleus sampling (0-1)")
	f.Int("max-tokens", 0, "maximum tokens in the answer")
	f.String("analysis-depth", "", "quick, standard or deep")
	f.StringSlice("focus-areas", nil, "comma separated focus areas")
	f.String("custom-instructions", "", "text appended to every prompt")
}

// overridesFromFlags returns the analysis settings given on the command
// line. Flags left at their default do not override the project config.
func overridesFromFlags(f *pflag.FlagSet) (analysis.Overrides, error) {
	var o analysis.Overrides

	o.Model, _ = f.GetString("model")
	o.MaxTokens, _ = f.GetInt("max-tokens")
	o.CustomInstructions, _ = f.GetString("custom-instructions")

	if f.Changed("enable-thinking") {
		v, _ := f.GetBool("enable-thinking")
		o.EnableThinking = &v
	}
	if f.Changed("temperature") {
		v, _ := f.GetFloat64("temperature")
		if v < 0 || v > 2 {
			return o, errors.Errorf("--temperature must be between 0 and 2, got %v", v)
		}
		o.Temperature = &v
	}
	if f.Changed("top-p") {
		v, _ := f.GetFloat64("top-p")
		if v < 0 || v > 1 {
			return o, errors.Errorf("--top-p must be between 0 and 1, got %v", v)
		}
		o.TopP = &v
	}

	depth, _ := f.GetString("analysis-depth")
	switch analysis.Depth(depth) {
	case "", analysis.DepthQuick, analysis.DepthStandard, analysis.DepthDeep:
		o.Depth = depth
	default:
		return o, errors.Errorf("--analysis-depth must be quick, standard or deep, got %q", depth)
	}

	areas, _ := f.GetStringSlice("focus-areas")
	for _, a := range areas {
		if a = strings.TrimSpace(a); a != "" {
			o.FocusAreas = append(o.FocusAreas, a)
		}
	}
	return o, nil
}
