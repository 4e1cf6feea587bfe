package analysis

import (
	"fmt"
	"strings"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

// ErrorIndicators and WarningIndicators are scanned in order; only the first
// hit of each list produces an issue.
var (
	ErrorIndicators = []string{
		"syntax error",
		"error",
		"exception",
		"failed",
		"does not exist",
		"permission denied",
		"invalid",
		"undefined",
	}
	WarningIndicators = []string{
		"warning",
		"caution",
		"suggest",
		"optimize",
		"risk",
		"issue",
	}
)

// ParseResponse classifies a model answer. It is a keyword scan, not a
// parser: at most one error issue and one warning issue are produced no
// matter how many indicators the text contains.
func ParseResponse(raw string) types.Analysis {
	lower := strings.ToLower(raw)

	var issues []types.Issue
	if ind, ok := firstIndicator(lower, ErrorIndicators); ok {
		issues = append(issues, newIssue(types.IssueError, ind, raw))
	}
	if ind, ok := firstIndicator(lower, WarningIndicators); ok {
		issues = append(issues, newIssue(types.IssueWarning, ind, raw))
	}

	return types.Analysis{
		RawResult: raw,
		Issues:    issues,
		HasIssues: len(issues) > 0,
	}
}

func firstIndicator(text string, vocabulary []string) (string, bool) {
	for _, ind := range vocabulary {
		if strings.Contains(text, ind) {
			return ind, true
		}
	}
	return "", false
}

func newIssue(t types.IssueType, indicator, raw string) types.Issue {
	return types.Issue{
		Type:        t,
		Indicator:   indicator,
		Description: fmt.Sprintf("found %s related problem", indicator),
		Details:     raw,
	}
}
