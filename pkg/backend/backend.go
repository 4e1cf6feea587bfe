// Package backend talks to the language model that reviews SQL files.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/logger"
)

// Backend names accepted in configuration and LLM_BACKEND.
const (
	NameOllama = "ollama"
	NameOpenAI = "openai"
)

// ErrEmptyResponse is wrapped by a BackendError when the model answered with
// no usable text.
var ErrEmptyResponse = errors.New("empty response")

// Params are the per-call generation settings.
type Params struct {
	Model          string
	Temperature    float64
	TopP           float64
	MaxTokens      int
	EnableThinking bool
}

// Client produces a text answer for a prompt.
type Client interface {
	Infer(ctx context.Context, prompt string, params Params) (string, error)
	Name() string
}

// BackendError is returned for every failed inference, including timeouts
// and empty or malformed answers.
type BackendError struct {
	Backend string
	Model   string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend (model %s): %v", e.Backend, e.Model, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// New builds the client named by cfg.Backend.
func New(cfg config.AI, log logger.Interface) (Client, error) {
	if log == nil {
		log = logger.Discard()
	}

	var (
		c   Client
		err error
	)
	switch name := strings.ToLower(strings.TrimSpace(cfg.Backend)); name {
	case "", NameOllama:
		c, err = NewOllama(cfg.Host, cfg.TimeoutDuration(), log)
	case NameOpenAI:
		c, err = NewOpenAI(cfg.APIBase, cfg.APIKey, cfg.TimeoutDuration(), log)
	default:
		return nil, errors.Errorf("unknown AI backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return RateLimited(c, cfg.RequestsPerSecond, 1), nil
}

// finish applies the thinking filter and rejects empty answers.
func finish(backend string, params Params, text string) (string, error) {
	if !params.EnableThinking {
		text = StripThinking(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &BackendError{Backend: backend, Model: params.Model, Err: ErrEmptyResponse}
	}
	return text, nil
}
