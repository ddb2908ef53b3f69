package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when something that has to reach an
// external service has no credentials for it.
var ErrMissingCredential = errors.New("missing credential")

// Config holds all application configuration.
type Config struct {
	AI        AIConfig         `toml:"ai" yaml:"ai"`
	Ingest    IngestConfig     `toml:"ingest" yaml:"ingest"`
	Classify  ClassifyConfig   `toml:"classify" yaml:"classify"`
	Dispatch  DispatchConfig   `toml:"dispatch" yaml:"dispatch"`
	Seen      SeenConfig       `toml:"seen" yaml:"seen"`
	Schedule  ScheduleConfig   `toml:"schedule" yaml:"schedule"`
	Storage   StorageConfig    `toml:"storage" yaml:"storage"`
	Supabase  SupabaseConfig   `toml:"supabase" yaml:"supabase"`
	Slack     SlackConfig      `toml:"slack" yaml:"slack"`
	Telegram  TelegramConfig   `toml:"telegram" yaml:"telegram"`
	Server    ServerConfig     `toml:"server" yaml:"server"`
	Log       LogConfig        `toml:"log" yaml:"log"`
	Pipelines []PipelineConfig `toml:"pipelines" yaml:"pipelines"`
}

// AIConfig holds AI provider settings.
type AIConfig struct {
	Provider       string  `toml:"provider" yaml:"provider"`
	APIKey         string  `toml:"api_key" yaml:"api_key"`
	Model          string  `toml:"model" yaml:"model"`
	BaseURL        string  `toml:"base_url" yaml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxTokens      int     `toml:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `toml:"temperature" yaml:"temperature"`
}

// IngestConfig controls source fetching.
type IngestConfig struct {
	MinDelayMS          int  `toml:"min_delay_ms" yaml:"min_delay_ms"`
	FetchTimeoutSeconds int  `toml:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	LookbackHours       int  `toml:"lookback_hours" yaml:"lookback_hours"`
	PageSize            int  `toml:"page_size" yaml:"page_size"`
	SnippetChars        int  `toml:"snippet_chars" yaml:"snippet_chars"`
	ExtractFullText     bool `toml:"extract_full_text" yaml:"extract_full_text"`
}

// MinDelay is the minimum spacing between source requests.
func (c IngestConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

// FetchTimeout bounds one source request.
func (c IngestConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Lookback is how far back sources are asked for items.
func (c IngestConfig) Lookback() time.Duration {
	return time.Duration(c.LookbackHours) * time.Hour
}

// ClassifyConfig controls classification calls.
type ClassifyConfig struct {
	MinDelayMS     int      `toml:"min_delay_ms" yaml:"min_delay_ms"`
	TimeoutSeconds int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
	Languages      []string `toml:"languages" yaml:"languages"`
}

// MinDelay is the minimum spacing between backend calls.
func (c ClassifyConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

// Timeout bounds one backend call.
func (c ClassifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DispatchConfig controls sink delivery.
type DispatchConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout bounds one delivery.
func (c DispatchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SeenConfig sizes each pipeline's seen-set.
type SeenConfig struct {
	Capacity int `toml:"capacity" yaml:"capacity"`
}

// ScheduleConfig controls periodic cycles.
type ScheduleConfig struct {
	IntervalMinutes int  `toml:"interval_minutes" yaml:"interval_minutes"`
	RunOnStart      bool `toml:"run_on_start" yaml:"run_on_start"`
}

// Interval is the time between scheduled cycles.
func (c ScheduleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// SupabaseConfig holds Supabase REST settings.
type SupabaseConfig struct {
	URL    string `toml:"url" yaml:"url"`
	APIKey string `toml:"api_key" yaml:"api_key"`
	Table  string `toml:"table" yaml:"table"`
}

// SlackConfig holds the incoming webhook.
type SlackConfig struct {
	WebhookURL string `toml:"webhook_url" yaml:"webhook_url"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr    string `toml:"addr" yaml:"addr"`
	Enabled bool   `toml:"enabled" yaml:"enabled"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// PipelineConfig describes one source list, classification profile and
// sink set.
type PipelineConfig struct {
	Name         string   `toml:"name" yaml:"name"`
	Profile      string   `toml:"profile" yaml:"profile"`
	Sources      []string `toml:"sources" yaml:"sources"`
	Sinks        []string `toml:"sinks" yaml:"sinks"`
	SystemPrompt string   `toml:"system_prompt" yaml:"system_prompt"`
	AcceptField  string   `toml:"accept_field" yaml:"accept_field"`
	Product      string   `toml:"product" yaml:"product"`
}

// Profile names.
const (
	ProfileOpportunity = "opportunity"
	ProfileOutreach    = "outreach"
	ProfileCustom      = "custom"
)

// Sink names.
const (
	SinkSQLite   = "sqlite"
	SinkSupabase = "supabase"
	SinkSlack    = "slack"
	SinkTelegram = "telegram"
)

var (
	knownProfiles = []string{ProfileOpportunity, ProfileOutreach, ProfileCustom}
	knownSinks    = []string{SinkSQLite, SinkSupabase, SinkSlack, SinkTelegram}
)

const defaultConfigContent = `[ai]
provider = "anthropic"            # "anthropic" or "openai"
api_key = ""                      # Your API key (or set AI_API_KEY env var)
model = "claude-haiku-4-5"

[ingest]
min_delay_ms = 2000               # PullPush allows one request every 2 seconds
lookback_hours = 6
page_size = 25

[classify]
min_delay_ms = 1000
languages = []                    # e.g. ["en"]; empty disables the filter

[schedule]
interval_minutes = 15
run_on_start = true

[storage]
path = "./data/threadscout.db"

[server]
addr = "localhost:8080"
enabled = true

[log]
level = "info"
format = "text"

[[pipelines]]
name = "opportunity"
profile = "opportunity"
sources = ["SaaS", "Entrepreneur", "smallbusiness", "startups"]
sinks = ["sqlite"]
`

// Load reads and parses the config from the given path. Files ending in
// .yaml or .yml are read as YAML, everything else as TOML. If the file does
// not exist, a default TOML config is created at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var (
		cfg     Config
		defined definedFunc
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		defined, err = decodeYAML(data, &cfg)
	default:
		defined, err = decodeTOML(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "capacity = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, defined); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, defined)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// definedFunc reports whether a key path was present in the file.
type definedFunc func(keys ...string) bool

func decodeTOML(data []byte, cfg *Config) (definedFunc, error) {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	return md.IsDefined, nil
}

func decodeYAML(data []byte, cfg *Config) (definedFunc, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return func(keys ...string) bool {
		m := raw
		for i, k := range keys {
			v, ok := m[k]
			if !ok {
				return false
			}
			if i == len(keys)-1 {
				return true
			}
			if m, ok = v.(map[string]any); !ok {
				return false
			}
		}
		return false
	}, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the file.
func validateExplicit(cfg *Config, defined definedFunc) error {
	if defined("ingest", "min_delay_ms") && cfg.Ingest.MinDelayMS < 500 {
		return fmt.Errorf("invalid ingest.min_delay_ms %d: must be >= 500", cfg.Ingest.MinDelayMS)
	}
	if defined("ingest", "lookback_hours") && cfg.Ingest.LookbackHours < 1 {
		return fmt.Errorf("invalid ingest.lookback_hours %d: must be >= 1", cfg.Ingest.LookbackHours)
	}
	if defined("classify", "min_delay_ms") && cfg.Classify.MinDelayMS < 1000 {
		return fmt.Errorf("invalid classify.min_delay_ms %d: must be >= 1000", cfg.Classify.MinDelayMS)
	}
	if defined("seen", "capacity") && cfg.Seen.Capacity < 2 {
		return fmt.Errorf("invalid seen.capacity %d: must be >= 2", cfg.Seen.Capacity)
	}
	if defined("schedule", "interval_minutes") && cfg.Schedule.IntervalMinutes < 1 {
		return fmt.Errorf("invalid schedule.interval_minutes %d: must be >= 1", cfg.Schedule.IntervalMinutes)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields. Booleans
// that default to true are only set when the key is absent.
func applyDefaults(cfg *Config, defined definedFunc) {
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "anthropic"
	}
	if cfg.AI.Model == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.Model = "gpt-4o-mini"
		default:
			cfg.AI.Model = "claude-haiku-4-5"
		}
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if !defined("ai", "temperature") {
		cfg.AI.Temperature = 0.3
	}

	if cfg.Ingest.MinDelayMS == 0 {
		cfg.Ingest.MinDelayMS = 2000
	}
	if cfg.Ingest.FetchTimeoutSeconds == 0 {
		cfg.Ingest.FetchTimeoutSeconds = 20
	}
	if cfg.Ingest.LookbackHours == 0 {
		cfg.Ingest.LookbackHours = 6
	}
	if cfg.Ingest.PageSize == 0 {
		cfg.Ingest.PageSize = 25
	}
	if cfg.Ingest.SnippetChars == 0 {
		cfg.Ingest.SnippetChars = 500
	}

	if cfg.Classify.MinDelayMS == 0 {
		cfg.Classify.MinDelayMS = 1000
	}
	if cfg.Classify.TimeoutSeconds == 0 {
		cfg.Classify.TimeoutSeconds = 30
	}
	if cfg.Dispatch.TimeoutSeconds == 0 {
		cfg.Dispatch.TimeoutSeconds = 15
	}
	if cfg.Seen.Capacity == 0 {
		cfg.Seen.Capacity = 10000
	}

	if cfg.Schedule.IntervalMinutes == 0 {
		cfg.Schedule.IntervalMinutes = 15
	}
	if !defined("schedule", "run_on_start") {
		cfg.Schedule.RunOnStart = true
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/threadscout.db"
	}
	if cfg.Supabase.Table == "" {
		cfg.Supabase.Table = "reddit_feeds"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "localhost:8080"
	}
	if !defined("server", "enabled") {
		cfg.Server.Enabled = true
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		if p.Profile == "" {
			p.Profile = ProfileOpportunity
		}
		if p.Name == "" {
			p.Name = p.Profile
		}
		if len(p.Sinks) == 0 {
			p.Sinks = []string{SinkSQLite}
		}
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for ai.api_key:
//  1. AI_API_KEY (generic, highest)
//  2. ANTHROPIC_API_KEY (when provider is "anthropic")
//  3. OPENAI_API_KEY (when provider is "openai")
func applyEnvOverrides(cfg *Config) {
	// Apply provider-specific env var first (lower priority).
	switch cfg.AI.Provider {
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	}

	// AI_API_KEY overrides everything (highest priority).
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	overrides := []struct {
		env string
		dst *string
	}{
		{"SUPABASE_URL", &cfg.Supabase.URL},
		{"SUPABASE_ANON_KEY", &cfg.Supabase.APIKey},
		{"SLACK_WEBHOOK_URL", &cfg.Slack.WebhookURL},
		{"TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID},
		{"THREADSCOUT_LOG_LEVEL", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case "anthropic", "openai":
		// valid
	default:
		return fmt.Errorf("invalid ai.provider %q: must be \"anthropic\" or \"openai\"", cfg.AI.Provider)
	}

	if cfg.Ingest.MinDelayMS < 500 {
		return fmt.Errorf("invalid ingest.min_delay_ms %d: must be >= 500", cfg.Ingest.MinDelayMS)
	}
	if cfg.Classify.MinDelayMS < 1000 {
		return fmt.Errorf("invalid classify.min_delay_ms %d: must be >= 1000", cfg.Classify.MinDelayMS)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q: must be debug, info, warn or error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be \"text\" or \"json\"", cfg.Log.Format)
	}

	names := make(map[string]bool, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		if names[p.Name] {
			return fmt.Errorf("duplicate pipeline name %q", p.Name)
		}
		names[p.Name] = true

		if !slices.Contains(knownProfiles, p.Profile) {
			return fmt.Errorf("pipeline %q: invalid profile %q: must be one of %s", p.Name, p.Profile, strings.Join(knownProfiles, ", "))
		}
		if p.Profile == ProfileCustom && (p.SystemPrompt == "" || p.AcceptField == "") {
			return fmt.Errorf("pipeline %q: custom profile needs system_prompt and accept_field", p.Name)
		}
		if len(p.Sources) == 0 {
			return fmt.Errorf("pipeline %q: no sources", p.Name)
		}
		for _, s := range p.Sinks {
			if !slices.Contains(knownSinks, s) {
				return fmt.Errorf("pipeline %q: unknown sink %q: must be one of %s", p.Name, s, strings.Join(knownSinks, ", "))
			}
		}
	}

	if cfg.AI.APIKey == "" {
		slog.Warn("ai.api_key is empty: set it in the config file or via AI_API_KEY environment variable")
	}

	return nil
}

// CheckCredentials reports ErrMissingCredential when a configured pipeline
// cannot reach the classifier or one of its sinks. Commands that run
// cycles call it before starting.
func (c *Config) CheckCredentials() error {
	if len(c.Pipelines) > 0 && c.AI.APIKey == "" {
		return fmt.Errorf("%w: ai.api_key (or AI_API_KEY)", ErrMissingCredential)
	}
	for _, p := range c.Pipelines {
		for _, s := range p.Sinks {
			var missing string
			switch s {
			case SinkSupabase:
				if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
					missing = "supabase.url and supabase.api_key (or SUPABASE_URL, SUPABASE_ANON_KEY)"
				}
			case SinkSlack:
				if c.Slack.WebhookURL == "" {
					missing = "slack.webhook_url (or SLACK_WEBHOOK_URL)"
				}
			case SinkTelegram:
				if c.Telegram.BotToken == "" || c.Telegram.ChatID == "" {
					missing = "telegram.bot_token and telegram.chat_id (or TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID)"
				}
			}
			if missing != "" {
				return fmt.Errorf("%w: pipeline %q sink %q needs %s", ErrMissingCredential, p.Name, s, missing)
			}
		}
	}
	return nil
}
