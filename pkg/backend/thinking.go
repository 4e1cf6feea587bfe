package backend

import (
	"regexp"
	"strings"
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	blankRuns  = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// StripThinking removes <think>...</think> reasoning segments and collapses
// the blank lines they leave behind.
func StripThinking(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
