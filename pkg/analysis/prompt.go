package analysis

import (
	"fmt"
	"strings"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

var depthInstructions = map[Depth]string{
	DepthQuick: `Run a quick check. Concentrate on:
- obvious syntax mistakes
- severe performance problems
- critical security exposure`,
	DepthStandard: `Run a standard review covering:
- syntax correctness
- performance problems
- security exposure
- logical consistency`,
	DepthDeep: `Run an in-depth review covering:
- execution plan behaviour
- performance impact of complex queries
- potential concurrency problems
- long-term maintainability`,
}

const responseLayout = `Answer using this layout:

## Summary
[Write "Nothing to report" when the file is fine.]

## Details
### 1. Syntax
### 2. Performance
### 3. Security
### 4. Logic
### 5. Best practices

## Recommendations
[Concrete changes for every problem found.]`

// BuildPrompt renders the analysis request for one SQL file.
func BuildPrompt(dialect types.Dialect, filePath, sql string, s Settings) string {
	instruction, ok := depthInstructions[s.Depth]
	if !ok {
		instruction = depthInstructions[DepthStandard]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review the following %s SQL file for potential problems.\n\n", strings.ToUpper(dialect.String()))

	b.WriteString("Focus areas:\n")
	for _, area := range s.FocusAreas {
		fmt.Fprintf(&b, "- %s\n", area)
	}

	fmt.Fprintf(&b, "\nAnalysis depth: %s\n%s\n\n", s.Depth, instruction)
	fmt.Fprintf(&b, "File path: %s\nDatabase type: %s\n\n", filePath, dialect)
	fmt.Fprintf(&b, "SQL content:\n```sql\n%s\n```\n\n", sql)
	b.WriteString(responseLayout)
	b.WriteString("\n")

	if s.CustomInstructions != "" {
		b.WriteString("\n")
		b.WriteString(s.CustomInstructions)
		b.WriteString("\n")
	}
	if !s.EnableThinking {
		b.WriteString("\nGive the result directly. Do not include your reasoning steps.\n")
	}
	return b.String()
}
