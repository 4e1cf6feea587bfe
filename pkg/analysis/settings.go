// Package analysis builds language model prompts for SQL files and turns the
// free-text answers into issue records.
package analysis

import (
	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

// Depth selects how much the model is asked to look at.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// Built-in defaults, the lowest precedence layer.
const (
	DefaultModel       = "qwen:7b"
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 2000
	DefaultDepth       = DepthStandard
)

// DefaultFocusAreas is used when neither the call nor the project names any.
var DefaultFocusAreas = []string{
	"syntax correctness",
	"performance",
	"security",
	"logical consistency",
	"best practices",
}

// Overrides are call-site values. Nil pointers and zero values are unset.
type Overrides struct {
	Model              string
	Temperature        *float64
	TopP               *float64
	MaxTokens          int
	EnableThinking     *bool
	Depth              string
	FocusAreas         []string
	CustomInstructions string
}

// Settings is the fully resolved, read-only analysis configuration of a run.
type Settings struct {
	Model              string
	Temperature        float64
	TopP               float64
	MaxTokens          int
	EnableThinking     bool
	Depth              Depth
	FocusAreas         []string
	CustomInstructions string
}

// Resolve layers call-site overrides over the project configuration over
// the built-in defaults.
func Resolve(project config.AIAnalysis, call Overrides) Settings {
	s := Settings{
		Model:              firstString(call.Model, project.Model, DefaultModel),
		Temperature:        firstFloat(DefaultTemperature, call.Temperature, project.Temperature),
		TopP:               firstFloat(DefaultTopP, call.TopP, project.TopP),
		MaxTokens:          firstInt(call.MaxTokens, project.MaxTokens, DefaultMaxTokens),
		Depth:              Depth(firstString(call.Depth, project.AnalysisDepth, string(DefaultDepth))),
		CustomInstructions: firstString(call.CustomInstructions, project.CustomInstructions),
	}

	switch {
	case call.EnableThinking != nil:
		s.EnableThinking = *call.EnableThinking
	case project.EnableThinking != nil:
		s.EnableThinking = *project.EnableThinking
	}

	switch {
	case len(call.FocusAreas) > 0:
		s.FocusAreas = append([]string(nil), call.FocusAreas...)
	case len(project.FocusAreas) > 0:
		s.FocusAreas = append([]string(nil), project.FocusAreas...)
	default:
		s.FocusAreas = append([]string(nil), DefaultFocusAreas...)
	}

	return s
}

// Params returns the part of the settings recorded with every analysis.
func (s Settings) Params() types.AnalysisParams {
	return types.AnalysisParams{
		Temperature:    s.Temperature,
		TopP:           s.TopP,
		MaxTokens:      s.MaxTokens,
		EnableThinking: s.EnableThinking,
		Depth:          string(s.Depth),
	}
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstFloat(def float64, values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return def
}
