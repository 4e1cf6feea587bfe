package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatConsole Format = "console"
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// consoleIssueLimit is the number of files with issues listed on the console.
const consoleIssueLimit = 10

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", errors.Errorf("unknown output format %q (want console, text, json or yaml)", s)
	}
}

var (
	colorOK    = lipgloss.Color("#2CD7C7")
	colorWarn  = lipgloss.Color("#F4D03F")
	colorError = lipgloss.Color("#E74C3C")
	colorMuted = lipgloss.Color("#2C4A54")
	colorTitle = lipgloss.Color("#20B9B4")
)

type styles struct {
	title, header, ok, warn, err, muted, box lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(colorTitle),
		header: lipgloss.NewStyle().Bold(true),
		ok:     lipgloss.NewStyle().Foreground(colorOK),
		warn:   lipgloss.NewStyle().Foreground(colorWarn),
		err:    lipgloss.NewStyle().Foreground(colorError),
		muted:  lipgloss.NewStyle().Foreground(colorMuted),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorTitle).
			Padding(0, 1),
	}
}

// Renderer writes reports to the console or to files in a directory.
type Renderer struct {
	out   io.Writer
	dir   string
	color bool
}

// NewRenderer creates a renderer printing to out and writing report files
// into dir. Colour is enabled only when out is a terminal.
func NewRenderer(out io.Writer, dir string) *Renderer {
	if dir == "" {
		dir = "."
	}
	return &Renderer{out: out, dir: dir, color: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render outputs rep in format. For file formats it returns the path of the
// written file; for the console it returns an empty path.
func (r *Renderer) Render(rep *Report, format Format) (string, error) {
	switch format {
	case FormatConsole:
		return "", r.console(rep)
	case FormatText:
		return r.writeFile(rep, "txt", func(w io.Writer) error { return writeText(w, rep) })
	case FormatJSON:
		return r.writeFile(rep, "json", func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		})
	case FormatYAML:
		return r.writeFile(rep, "yaml", func(w io.Writer) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(rep); err != nil {
				return err
			}
			return enc.Close()
		})
	default:
		return "", errors.Errorf("unknown output format %q", format)
	}
}

// FileName returns the name of the report file for extension ext. Project
// ids may be GitLab paths, so characters outside [A-Za-z0-9._-] become '_'.
func FileName(rep *Report, ext string) string {
	return fmt.Sprintf("sql_scan_report_%s_%s.%s", safeFileComponent(rep.ProjectID), rep.GeneratedAt.Format("20060102_150405"), ext)
}

func safeFileComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}

func (r *Renderer) writeFile(rep *Report, ext string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", r.dir)
	}
	path := filepath.Join(r.dir, FileName(rep, ext))

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close %s", path)
	}
	return path, nil
}

func (r *Renderer) console(rep *Report) error {
	st := newStyles(r.color)
	var b strings.Builder

	b.WriteString(st.title.Render("SQL scan report") + "\n")
	fmt.Fprintf(&b, "Project:  %s\n", rep.ProjectID)
	fmt.Fprintf(&b, "Versions: %s\n", rep.VersionPath)
	fmt.Fprintf(&b, "Branch:   %s\n", rep.Branch)
	if rep.DialectFilter != "" {
		fmt.Fprintf(&b, "DB type:  %s\n", rep.DialectFilter)
	}
	fmt.Fprintf(&b, "Time:     %s\n\n", rep.GeneratedAt.Format(time.DateTime))

	s := rep.Summary
	summary := fmt.Sprintf("Total files:   %d\nScanned files: %s\nErrors:        %s\nSkipped:       %d\nIssues found:  %s\nSuccess rate:  %.1f%%",
		s.Total,
		st.ok.Render(fmt.Sprint(s.Scanned)),
		errorStyle(st, s.Errors).Render(fmt.Sprint(s.Errors)),
		s.Skipped,
		warnStyle(st, s.Issues).Render(fmt.Sprint(s.Issues)),
		s.SuccessRate*100,
	)
	b.WriteString(st.box.Render(summary) + "\n\n")

	if len(rep.Statistics.ByDialect) > 0 {
		b.WriteString(st.header.Render("By database type") + "\n")
		for _, d := range sortedDialects(rep.Statistics.ByDialect) {
			b.WriteString(counterLine(st, d.String(), rep.Statistics.ByDialect[d]))
		}
		b.WriteString("\n")
	}

	if len(rep.Statistics.ByVersion) > 0 {
		b.WriteString(st.header.Render("By version") + "\n")
		for _, v := range sortedKeys(rep.Statistics.ByVersion) {
			b.WriteString(counterLine(st, v, rep.Statistics.ByVersion[v]))
		}
		b.WriteString("\n")
	}

	withIssues := rep.FilesWithIssues()
	if len(withIssues) > 0 {
		b.WriteString(st.header.Render("Files with issues") + "\n")
		for i, o := range withIssues {
			if i == consoleIssueLimit {
				b.WriteString(st.muted.Render(fmt.Sprintf("  ... and %d more", len(withIssues)-consoleIssueLimit)) + "\n")
				break
			}
			fmt.Fprintf(&b, "  %s %s (%s)\n", st.warn.Render("!"), o.FilePath, o.Dialect)
			for _, issue := range o.Issues() {
				fmt.Fprintf(&b, "      %s: %s\n", issue.Type, issue.Description)
			}
		}
	}

	failed := rep.FilterByStatus(types.StatusError)
	if len(failed) > 0 {
		b.WriteString("\n" + st.header.Render("Failed files") + "\n")
		for _, o := range failed {
			fmt.Fprintf(&b, "  %s %s: %s\n", st.err.Render("x"), o.FilePath, o.Error)
		}
	}

	_, err := io.WriteString(r.out, b.String())
	return errors.Wrap(err, "failed to write console report")
}

func counterLine(st styles, name string, c types.Counters) string {
	return fmt.Sprintf("  %-12s total %d, scanned %d, errors %s, skipped %d, issues %s\n",
		name,
		c.TotalFiles,
		c.ScannedFiles,
		errorStyle(st, c.ErrorFiles).Render(fmt.Sprint(c.ErrorFiles)),
		c.SkippedFiles,
		warnStyle(st, c.IssuesFound).Render(fmt.Sprint(c.IssuesFound)),
	)
}

func errorStyle(st styles, n int) lipgloss.Style {
	if n > 0 {
		return st.err
	}
	return st.ok
}

func warnStyle(st styles, n int) lipgloss.Style {
	if n > 0 {
		return st.warn
	}
	return st.ok
}

func writeText(w io.Writer, rep *Report) error {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "SQL scan report\n%s\n", line)
	fmt.Fprintf(&b, "Run ID:       %s\n", rep.RunID)
	fmt.Fprintf(&b, "Project:      %s\n", rep.ProjectID)
	fmt.Fprintf(&b, "Version path: %s\n", rep.VersionPath)
	fmt.Fprintf(&b, "Branch:       %s\n", rep.Branch)
	if rep.DialectFilter != "" {
		fmt.Fprintf(&b, "DB type:      %s\n", rep.DialectFilter)
	}
	fmt.Fprintf(&b, "Generated at: %s\n\n", rep.GeneratedAt.Format(time.RFC3339))

	s := rep.Summary
	fmt.Fprintf(&b, "Total files:   %d\n", s.Total)
	fmt.Fprintf(&b, "Scanned files: %d\n", s.Scanned)
	fmt.Fprintf(&b, "Error files:   %d\n", s.Errors)
	fmt.Fprintf(&b, "Skipped files: %d\n", s.Skipped)
	fmt.Fprintf(&b, "Issues found:  %d\n", s.Issues)
	fmt.Fprintf(&b, "Success rate:  %.1f%%\n\n", s.SuccessRate*100)

	fmt.Fprintf(&b, "By database type\n")
	for _, d := range sortedDialects(rep.Statistics.ByDialect) {
		c := rep.Statistics.ByDialect[d]
		fmt.Fprintf(&b, "  %s: total %d, scanned %d, errors %d, skipped %d, issues %d\n",
			d, c.TotalFiles, c.ScannedFiles, c.ErrorFiles, c.SkippedFiles, c.IssuesFound)
	}
	fmt.Fprintf(&b, "\nBy version\n")
	for _, v := range sortedKeys(rep.Statistics.ByVersion) {
		c := rep.Statistics.ByVersion[v]
		fmt.Fprintf(&b, "  %s: total %d, scanned %d, errors %d, skipped %d, issues %d\n",
			v, c.TotalFiles, c.ScannedFiles, c.ErrorFiles, c.SkippedFiles, c.IssuesFound)
	}

	fmt.Fprintf(&b, "\nFiles\n%s\n", line)
	for _, o := range rep.Results {
		fmt.Fprintf(&b, "\n%s [%s, %s] %s\n", o.FilePath, o.Dialect, o.Version, o.Status)
		switch o.Status {
		case types.StatusError:
			fmt.Fprintf(&b, "  error: %s\n", o.Error)
		case types.StatusSkipped:
			fmt.Fprintf(&b, "  skipped: %s\n", o.SkipReason)
		}
		if o.Precheck != nil && o.Precheck.SyntaxError != "" {
			fmt.Fprintf(&b, "  precheck: %s\n", o.Precheck.SyntaxError)
		}
		if o.Analysis == nil {
			continue
		}
		for _, issue := range o.Analysis.Issues {
			fmt.Fprintf(&b, "  %s: %s\n", issue.Type, issue.Description)
		}
		fmt.Fprintf(&b, "  analysis (%s, %s):\n", o.Analysis.Metadata.Backend, o.Analysis.Metadata.Model)
		for _, l := range strings.Split(o.Analysis.RawResult, "\n") {
			fmt.Fprintf(&b, "    %s\n", l)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sortedDialects(m map[types.Dialect]types.Counters) []types.Dialect {
	out := make([]types.Dialect, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(m map[string]types.Counters) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
