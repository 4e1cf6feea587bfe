package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

func parseAnalysisFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addAnalysisFlags(f)
	require.NoError(t, f.Parse(args))
	return f
}

func TestOverridesFromFlags_Defaults(t *testing.T) {
	o, err := overridesFromFlags(parseAnalysisFlags(t))
	require.NoError(t, err)

	assert.Empty(t, o.Model)
	assert.Nil(t, o.Temperature, "an untouched flag must not override the project")
	assert.Nil(t, o.TopP)
	assert.Nil(t, o.EnableThinking)
	assert.Empty(t, o.FocusAreas)
}

func TestOverridesFromFlags_Set(t *testing.T) {
	o, err := overridesFromFlags(parseAnalysisFlags(t,
		"--model", "llama3",
		"--temperature", "0",
		"--top-p", "0.5",
		"--max-tokens", "300",
		"--enable-thinking",
		"--analysis-depth", "deep",
		"--focus-areas", "security, indexes,,",
		"--custom-instructions", "Flag missing primary keys.",
	))
	require.NoError(t, err)

	assert.Equal(t, "llama3", o.Model)
	require.NotNil(t, o.Temperature)
	assert.Equal(t, 0.0, *o.Temperature)
	require.NotNil(t, o.TopP)
	assert.Equal(t, 0.5, *o.TopP)
	assert.Equal(t, 300, o.MaxTokens)
	require.NotNil(t, o.EnableThinking)
	assert.True(t, *o.EnableThinking)
	assert.Equal(t, "deep", o.Depth)
	assert.Equal(t, []string{"security", "indexes"}, o.FocusAreas)
	assert.Equal(t, "Flag missing primary keys.", o.CustomInstructions)
}

func TestOverridesFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"temperature too high", []string{"--temperature", "2.5"}},
		{"negative top-p", []string{"--top-p", "-0.1"}},
		{"unknown depth", []string{"--analysis-depth", "thorough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := overridesFromFlags(parseAnalysisFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestParseDBType(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Dialect
		wantErr bool
	}{
		{"mysql", types.DialectMySQL, false},
		{"ORACLE", types.DialectOracle, false},
		{"db2", types.DialectDB2, false},
		{"default", types.DialectDefault, false},
		{" Postgres ", types.Dialect("postgres"), false},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDBType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
