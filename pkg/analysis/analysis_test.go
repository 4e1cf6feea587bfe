package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_Defaults(t *testing.T) {
	s := Resolve(config.AIAnalysis{}, Overrides{})

	assert.Equal(t, DefaultModel, s.Model)
	assert.Equal(t, DefaultTemperature, s.Temperature)
	assert.Equal(t, DefaultTopP, s.TopP)
	assert.Equal(t, DefaultMaxTokens, s.MaxTokens)
	assert.Equal(t, DepthStandard, s.Depth)
	assert.False(t, s.EnableThinking)
	assert.Equal(t, DefaultFocusAreas, s.FocusAreas)
}

func TestResolve_Precedence(t *testing.T) {
	project := config.AIAnalysis{
		Model:          "llama3",
		Temperature:    ptr(0.2),
		MaxTokens:      512,
		EnableThinking: ptr(true),
		FocusAreas:     []string{"security"},
		AnalysisDepth:  "deep",
	}

	t.Run("project over defaults", func(t *testing.T) {
		s := Resolve(project, Overrides{})
		assert.Equal(t, "llama3", s.Model)
		assert.Equal(t, 0.2, s.Temperature)
		assert.Equal(t, DefaultTopP, s.TopP)
		assert.Equal(t, 512, s.MaxTokens)
		assert.True(t, s.EnableThinking)
		assert.Equal(t, []string{"security"}, s.FocusAreas)
		assert.Equal(t, DepthDeep, s.Depth)
	})

	t.Run("call site over project", func(t *testing.T) {
		s := Resolve(project, Overrides{
			Model:          "qwen:14b",
			Temperature:    ptr(0.0),
			EnableThinking: ptr(false),
			Depth:          "quick",
			FocusAreas:     []string{"performance"},
		})
		assert.Equal(t, "qwen:14b", s.Model)
		assert.Equal(t, 0.0, s.Temperature)
		assert.False(t, s.EnableThinking)
		assert.Equal(t, DepthQuick, s.Depth)
		assert.Equal(t, []string{"performance"}, s.FocusAreas)
		assert.Equal(t, 512, s.MaxTokens)
	})
}

func TestResolve_DoesNotAliasInputs(t *testing.T) {
	areas := []string{"a"}
	s := Resolve(config.AIAnalysis{FocusAreas: areas}, Overrides{})
	s.FocusAreas[0] = "changed"
	assert.Equal(t, "a", areas[0])
}

func TestBuildPrompt(t *testing.T) {
	s := Resolve(config.AIAnalysis{}, Overrides{
		Depth:              "deep",
		FocusAreas:         []string{"locking", "indexes"},
		CustomInstructions: "Flag every DROP statement.",
	})

	p := BuildPrompt(types.DialectMySQL, "v1/001.mysql.sql", "CREATE TABLE t (id INT);", s)

	assert.Contains(t, p, "MYSQL SQL file")
	assert.Contains(t, p, "- locking\n- indexes\n")
	assert.Contains(t, p, depthInstructions[DepthDeep])
	assert.Contains(t, p, "File path: v1/001.mysql.sql")
	assert.Contains(t, p, "```sql\nCREATE TABLE t (id INT);\n```")
	assert.Contains(t, p, "Flag every DROP statement.")
	assert.Contains(t, p, "Do not include your reasoning steps.")
}

func TestBuildPrompt_DepthTemplatesDiffer(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range []Depth{DepthQuick, DepthStandard, DepthDeep} {
		s := Resolve(config.AIAnalysis{}, Overrides{Depth: string(d)})
		p := BuildPrompt(types.DialectDefault, "a.sql", "SELECT 1;", s)
		require.Contains(t, p, depthInstructions[d])
		seen[p] = true
	}
	assert.Len(t, seen, 3)
}

func TestBuildPrompt_ThinkingEnabled(t *testing.T) {
	s := Resolve(config.AIAnalysis{}, Overrides{EnableThinking: ptr(true)})
	p := BuildPrompt(types.DialectOracle, "a.oracle", "SELECT 1 FROM dual;", s)
	assert.NotContains(t, p, "reasoning steps")
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []types.Issue
	}{
		{
			name:     "clean",
			response: "Nothing to report. The statements look fine.",
		},
		{
			name:     "permission denied only",
			response: "The GRANT will be rejected: permission denied for schema app.",
			want:     []types.Issue{{Type: types.IssueError, Indicator: "permission denied"}},
		},
		{
			name:     "warning only",
			response: "Consider adding an index; we Suggest a composite key.",
			want:     []types.Issue{{Type: types.IssueWarning, Indicator: "suggest"}},
		},
		{
			name:     "first hit wins in each list",
			response: "Exception raised. Syntax error near FROM. Risk of a full scan, warning.",
			want: []types.Issue{
				{Type: types.IssueError, Indicator: "syntax error"},
				{Type: types.IssueWarning, Indicator: "warning"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseResponse(tt.response)
			assert.Equal(t, tt.response, a.RawResult)
			require.Len(t, a.Issues, len(tt.want))
			assert.Equal(t, len(tt.want) > 0, a.HasIssues)
			for i, want := range tt.want {
				assert.Equal(t, want.Type, a.Issues[i].Type)
				assert.Equal(t, want.Indicator, a.Issues[i].Indicator)
				assert.Equal(t, tt.response, a.Issues[i].Details)
			}
		})
	}
}

func TestParseResponse_AtMostTwoIssues(t *testing.T) {
	text := strings.Join(append(append([]string{}, ErrorIndicators...), WarningIndicators...), " ")
	a := ParseResponse(text)
	assert.Len(t, a.Issues, 2)
}
