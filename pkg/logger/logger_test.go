package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelWarn)

	l.Info("hidden")
	l.Warn("shown", "file", "a.sql")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "file=a.sql")
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelDebug).With("version", "v1.0")

	l.Debug("scanning")

	assert.Contains(t, buf.String(), "version=v1.0")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	// Must not panic and must satisfy the interface.
	var _ Interface = l
	l.Error("dropped", Error(assert.AnError))
}
