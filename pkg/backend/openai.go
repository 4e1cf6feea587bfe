package backend

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/nsxbet/sql-scanner/pkg/logger"
)

// OpenAI is a Client for any OpenAI compatible chat completion endpoint.
type OpenAI struct {
	client *openai.Client
	log    logger.Interface
}

// NewOpenAI creates a client for apiBase. An empty apiBase targets the
// public OpenAI API.
func NewOpenAI(apiBase, apiKey string, timeout time.Duration, log logger.Interface) (*OpenAI, error) {
	if apiBase == "" && apiKey == "" {
		return nil, errors.New("openai backend needs OPENAI_API_BASE or OPENAI_API_KEY")
	}

	if log == nil {
		log = logger.Discard()
	}
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = apiBase
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	log.Debug("Using OpenAI compatible backend", "api_base", cfg.BaseURL)
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		log:    log,
	}, nil
}

// Name implements Client.
func (o *OpenAI) Name() string { return NameOpenAI }

// Infer implements Client.
func (o *OpenAI) Infer(ctx context.Context, prompt string, params Params) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: params.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: requestTemperature(params.Temperature),
		TopP:        float32(params.TopP),
		MaxTokens:   params.MaxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &BackendError{Backend: NameOpenAI, Model: params.Model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Backend: NameOpenAI, Model: params.Model, Err: errors.New("no choices returned")}
	}

	o.log.Debug("Received OpenAI response", "model", params.Model, "finish_reason", resp.Choices[0].FinishReason)
	return finish(NameOpenAI, params, resp.Choices[0].Message.Content)
}

// requestTemperature converts t for the request. A zero temperature is
// dropped from the JSON body, so it is sent as the smallest positive value.
func requestTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
