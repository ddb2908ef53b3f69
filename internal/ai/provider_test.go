package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProviderConfig
		wantErr  bool
		wantType string
	}{
		{
			name:     "anthropic provider",
			cfg:      ProviderConfig{Provider: "anthropic", APIKey: "test-key", Model: "claude-haiku-4-5"},
			wantType: "*ai.AnthropicProvider",
		},
		{
			name:     "openai provider",
			cfg:      ProviderConfig{Provider: "openai", APIKey: "test-key", Model: "gpt-4o-mini"},
			wantType: "*ai.OpenAIProvider",
		},
		{
			name:    "unsupported provider",
			cfg:     ProviderConfig{Provider: "invalid", APIKey: "test-key", Model: "some-model"},
			wantErr: true,
		},
		{
			name:    "empty provider",
			cfg:     ProviderConfig{Provider: "", APIKey: "test-key", Model: "some-model"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewBackend(tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if backend != nil {
					t.Fatal("expected nil backend when error occurs")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			switch tt.wantType {
			case "*ai.AnthropicProvider":
				if _, ok := backend.(*AnthropicProvider); !ok {
					t.Errorf("expected *AnthropicProvider, got %T", backend)
				}
			case "*ai.OpenAIProvider":
				if _, ok := backend.(*OpenAIProvider); !ok {
					t.Errorf("expected *OpenAIProvider, got %T", backend)
				}
			}
		})
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("x-api-key = %q, want k", r.Header.Get("x-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"content":[{"text":"{\"viable\":true}"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "claude-haiku-4-5", WithBaseURL(srv.URL), WithMaxTokens(400), WithTemperature(0.2))
	text, err := p.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != `{"viable":true}` {
		t.Errorf("Complete() = %q", text)
	}
	if got.System != "sys" || len(got.Messages) != 1 || got.Messages[0].Content != "user" {
		t.Errorf("request = %+v", got)
	}
	if got.MaxTokens != 400 || got.Temperature != 0.2 {
		t.Errorf("MaxTokens = %d, Temperature = %v", got.MaxTokens, got.Temperature)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("bad", "m", WithBaseURL(srv.URL))
	_, err := p.Complete(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Fatalf("Complete() error = %v, want API error", err)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got openaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", "gpt-4o-mini", WithBaseURL(srv.URL))
	text, err := p.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != "hello" {
		t.Errorf("Complete() = %q, want hello", text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.MaxTokens != 500 || got.Temperature != 0.3 {
		t.Errorf("defaults: MaxTokens = %d, Temperature = %v", got.MaxTokens, got.Temperature)
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestProvider_NonJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := NewAnthropicProvider("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("Complete() error = %v, want status 502", err)
	}
}
