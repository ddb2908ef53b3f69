package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

var _ Backend = (*OpenAIProvider)(nil)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider is a Backend over the OpenAI Chat Completions API. Any
// compatible endpoint works through WithBaseURL.
type OpenAIProvider struct {
	apiKey string
	model  string
	opts   options
}

// NewOpenAIProvider creates an OpenAIProvider. Without options it uses a
// 60-second timeout HTTP client, 500 max tokens and temperature 0.3.
func NewOpenAIProvider(apiKey, model string, opts ...Option) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey: apiKey,
		model:  model,
		opts:   buildOptions(openaiAPIURL, opts),
	}
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

// Complete returns the content of the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	var reply openaiResponse
	err := p.opts.post(ctx, header, openaiRequest{
		Model: p.model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: p.opts.temperature,
		MaxTokens:   p.opts.maxTokens,
	}, &reply, func() *apiError { return reply.Error })
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(reply.Choices) == 0 {
		return "", errors.New("openai: reply has no choices")
	}
	slog.Debug("openai reply", "model", p.model, "finish_reason", reply.Choices[0].FinishReason)
	return reply.Choices[0].Message.Content, nil
}
