package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Backend is a language model that answers one system and user prompt pair
// with text.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderConfig holds the configuration needed to create a Backend.
type ProviderConfig struct {
	Provider    string // "anthropic" | "openai"
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Option customizes a provider.
type Option func(*options)

type options struct {
	baseURL     string
	client      *http.Client
	maxTokens   int
	temperature float64
}

// WithBaseURL points the provider at a different endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient replaces the provider's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = t }
}

func buildOptions(defaultURL string, opts []Option) options {
	o := options{
		baseURL:     defaultURL,
		client:      &http.Client{Timeout: 60 * time.Second},
		maxTokens:   500,
		temperature: 0.3,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// maxReplyBytes bounds how much of a provider reply is read.
const maxReplyBytes = 1 << 20

// apiError is the error envelope both providers use.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// post sends in as JSON and decodes the reply into out. An error envelope
// or a non-200 status is returned as an error.
func (o options) post(ctx context.Context, header http.Header, in any, out any, envelope func() *apiError) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = header
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw[:min(len(raw), 200)])))
		}
		return fmt.Errorf("parsing response: %w", err)
	}
	if e := envelope(); e != nil {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, e.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NewBackend creates the appropriate provider based on config.
func NewBackend(cfg ProviderConfig) (Backend, error) {
	var opts []Option
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	opts = append(opts, WithMaxTokens(cfg.MaxTokens), WithTemperature(cfg.Temperature))

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, opts...), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
