package backend

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/JexSrs/go-ollama"
	"github.com/pkg/errors"

	"github.com/nsxbet/sql-scanner/pkg/logger"
)

const systemPrompt = "You are a database reviewer. You review SQL migration files and report problems precisely."

// generateFunc is the single Ollama call the client needs.
type generateFunc func(system, prompt string, params Params) (text string, done bool, err error)

// Ollama is a Client backed by a local Ollama server.
type Ollama struct {
	generate generateFunc
	timeout  time.Duration
	log      logger.Interface
}

// NewOllama creates a client for the server at host.
func NewOllama(host string, timeout time.Duration, log logger.Interface) (*Ollama, error) {
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return nil, errors.Errorf("invalid Ollama host %q", host)
	}
	if log == nil {
		log = logger.Discard()
	}
	client := ollama.New(*u)

	log.Debug("Using Ollama backend", "host", host)
	return &Ollama{
		generate: func(system, prompt string, params Params) (string, bool, error) {
			res, err := client.Generate(
				client.Generate.WithModel(params.Model),
				client.Generate.WithSystem(system),
				client.Generate.WithPrompt(prompt),
				client.Generate.WithOptions(ollamaOptions(params)),
			)
			if err != nil {
				return "", false, err
			}
			return res.Response, res.Done, nil
		},
		timeout: timeout,
		log:     log,
	}, nil
}

// ollamaOptions maps the sampling parameters onto the request options.
// num_predict is left unset when no limit is configured.
func ollamaOptions(params Params) ollama.Options {
	temperature, topP := params.Temperature, params.TopP
	opts := ollama.Options{
		Temperature: &temperature,
		TopP:        &topP,
	}
	if params.MaxTokens > 0 {
		maxTokens := params.MaxTokens
		opts.NumPredict = &maxTokens
	}
	return opts
}

// Name implements Client.
func (o *Ollama) Name() string { return NameOllama }

// Infer implements Client. The Ollama library call does not take a context,
// so cancellation abandons the pending request instead of aborting it.
func (o *Ollama) Infer(ctx context.Context, prompt string, params Params) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	type result struct {
		text string
		done bool
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, done, err := o.generate(systemPrompt, prompt, params)
		ch <- result{text: text, done: done, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return "", &BackendError{Backend: NameOllama, Model: params.Model, Err: ctx.Err()}
	case r = <-ch:
	}

	if r.err != nil {
		return "", &BackendError{Backend: NameOllama, Model: params.Model, Err: r.err}
	}
	if !r.done {
		return "", &BackendError{Backend: NameOllama, Model: params.Model, Err: errors.New("generation did not complete")}
	}

	o.log.Debug("Received Ollama response", "model", params.Model, "length", len(r.text))
	return finish(NameOllama, params, strings.Trim(r.text, "`"))
}
