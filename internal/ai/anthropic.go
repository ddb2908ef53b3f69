package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

var _ Backend = (*AnthropicProvider)(nil)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider is a Backend over the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey string
	model  string
	opts   options
}

// NewAnthropicProvider creates an AnthropicProvider. Without options it uses
// a 60-second timeout HTTP client, 500 max tokens and temperature 0.3.
func NewAnthropicProvider(apiKey, model string, opts ...Option) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey: apiKey,
		model:  model,
		opts:   buildOptions(anthropicAPIURL, opts),
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string    `json:"stop_reason"`
	Error      *apiError `json:"error"`
}

// Complete returns the text of the first text block of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var reply anthropicResponse
	err := p.opts.post(ctx, header, anthropicRequest{
		Model:       p.model,
		MaxTokens:   p.opts.maxTokens,
		Temperature: p.opts.temperature,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
	}, &reply, func() *apiError { return reply.Error })
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	for _, block := range reply.Content {
		if block.Type == "" || block.Type == "text" {
			slog.Debug("anthropic reply", "model", p.model, "stop_reason", reply.StopReason)
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: reply has no text content")
}
