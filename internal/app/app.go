// Package app assembles configured pipelines, sinks and the scheduler.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoanghai1803/threadscout/internal/ai"
	"github.com/hoanghai1803/threadscout/internal/config"
	"github.com/hoanghai1803/threadscout/internal/feeds"
	"github.com/hoanghai1803/threadscout/internal/langdetect"
	"github.com/hoanghai1803/threadscout/internal/notify"
	"github.com/hoanghai1803/threadscout/internal/pipeline"
	"github.com/hoanghai1803/threadscout/internal/scheduler"
	"github.com/hoanghai1803/threadscout/internal/seen"
	"github.com/hoanghai1803/threadscout/internal/storage"
	"github.com/hoanghai1803/threadscout/internal/supabase"
)

// App holds everything a running instance needs.
type App struct {
	Config    *config.Config
	Store     *storage.Store
	Pipelines []*pipeline.Pipeline
	Scheduler *scheduler.Scheduler
	Logger    *slog.Logger
}

// Options replaces collaborators that normally come from config.
type Options struct {
	// Adapter serves every source id. Nil builds the feeds router.
	Adapter pipeline.SourceAdapter
	// NewBackend builds the classification backend for a pipeline. Nil
	// uses ai.NewBackend.
	NewBackend func(ai.ProviderConfig) (ai.Backend, error)
	// Detector backs the language filter. Nil uses lingua.
	Detector langdetect.Detector
	// Clock drives throttles and cycle timestamps. Nil uses the wall clock.
	Clock pipeline.Clock
	// HTTPClient is used by sinks. Nil gives each sink its own client.
	HTTPClient *http.Client
}

// New wires cfg into pipelines sharing one ingest throttle and one
// classify throttle, so pipelines never exceed the upstream rate limits
// together.
func New(cfg *config.Config, store *storage.Store, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.NewBackend == nil {
		opts.NewBackend = ai.NewBackend
	}
	if opts.Clock == nil {
		opts.Clock = pipeline.RealClock{}
	}
	if opts.Adapter == nil {
		opts.Adapter = NewSourceRouter(cfg.Ingest)
	}

	ingestThrottle := pipeline.NewThrottle(cfg.Ingest.MinDelay(), opts.Clock)
	classifyThrottle := pipeline.NewThrottle(cfg.Classify.MinDelay(), opts.Clock)

	var prefilter *langdetect.Filter
	if len(cfg.Classify.Languages) > 0 {
		prefilter = langdetect.NewFilter(cfg.Classify.Languages, opts.Detector)
	}

	a := &App{Config: cfg, Store: store, Logger: logger}
	runners := make([]scheduler.Runner, 0, len(cfg.Pipelines))

	for _, pc := range cfg.Pipelines {
		plog := logger.With("pipeline", pc.Name)

		profile, err := profileFor(pc)
		if err != nil {
			return nil, err
		}

		maxTokens := profile.MaxTokens
		if cfg.AI.MaxTokens > 0 {
			maxTokens = cfg.AI.MaxTokens
		}
		backend, err := opts.NewBackend(ai.ProviderConfig{
			Provider:    cfg.AI.Provider,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			BaseURL:     cfg.AI.BaseURL,
			MaxTokens:   maxTokens,
			Temperature: cfg.AI.Temperature,
			Timeout:     time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: creating backend: %w", pc.Name, err)
		}

		sinks, err := buildSinks(cfg, pc, store, opts.HTTPClient)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", pc.Name, err)
		}

		classifier := pipeline.NewClassifier(backend, profile, classifyThrottle, cfg.Classify.Timeout(), plog.With("component", "classify"))
		if prefilter != nil {
			classifier.WithPrefilter(prefilter)
		}

		p := &pipeline.Pipeline{
			Name:        pc.Name,
			Sources:     pc.Sources,
			Coordinator: pipeline.NewCoordinator(opts.Adapter, seen.NewStore(cfg.Seen.Capacity), ingestThrottle, cfg.Ingest.FetchTimeout(), plog.With("component", "ingest")),
			Classifier:  classifier,
			Dispatcher:  pipeline.NewDispatcher(sinks, cfg.Dispatch.Timeout(), plog.With("component", "dispatch")),
			Logger:      logger,
			Clock:       opts.Clock,
		}
		if store != nil {
			p.Recorder = store
		}

		plog.Info("pipeline configured",
			"profile", profile.Name,
			"sources", len(pc.Sources),
			"sinks", p.Dispatcher.Sinks(),
		)
		a.Pipelines = append(a.Pipelines, p)
		runners = append(runners, p)
	}

	a.Scheduler = scheduler.New(runners, cfg.Schedule.Interval(), cfg.Schedule.RunOnStart, logger.With("component", "scheduler"))
	return a, nil
}

// NewSourceRouter registers the pullpush, rss and reddit adapters. Bare
// source ids are subreddits read through PullPush.
func NewSourceRouter(cfg config.IngestConfig) *feeds.Router {
	client := feeds.NewHTTPClient(cfg.FetchTimeout())

	var enricher *feeds.Enricher
	if cfg.ExtractFullText {
		enricher = feeds.NewEnricher(cfg.FetchTimeout())
	}

	rss := feeds.NewRSSAdapter(client, cfg.Lookback(), cfg.SnippetChars, enricher)
	return feeds.NewRouter("pullpush").
		Register("pullpush", feeds.NewPullPushAdapter(client, feeds.PullPushOptions{
			PageSize:     cfg.PageSize,
			Lookback:     cfg.Lookback(),
			SnippetChars: cfg.SnippetChars,
			Enricher:     enricher,
		})).
		Register("rss", rss).
		Register("reddit", feeds.NewRedditAdapter(rss))
}

func profileFor(pc config.PipelineConfig) (ai.Profile, error) {
	switch pc.Profile {
	case config.ProfileOpportunity:
		return ai.Opportunity(), nil
	case config.ProfileOutreach:
		return ai.Outreach(pc.Product), nil
	case config.ProfileCustom:
		return ai.Custom(pc.SystemPrompt, pc.AcceptField), nil
	default:
		return ai.Profile{}, fmt.Errorf("pipeline %q: unknown profile %q", pc.Name, pc.Profile)
	}
}

func buildSinks(cfg *config.Config, pc config.PipelineConfig, store *storage.Store, client *http.Client) ([]pipeline.Sink, error) {
	sinks := make([]pipeline.Sink, 0, len(pc.Sinks))
	for _, name := range pc.Sinks {
		switch name {
		case config.SinkSQLite:
			if store == nil {
				return nil, fmt.Errorf("sqlite sink needs an open store")
			}
			sinks = append(sinks, pipeline.Persist(storage.NewSink(store, pc.Name)))
		case config.SinkSupabase:
			s, err := supabase.NewSink(cfg.Supabase.URL, cfg.Supabase.APIKey, cfg.Supabase.Table, client)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrMissingCredential, err)
			}
			sinks = append(sinks, pipeline.Persist(s))
		case config.SinkSlack:
			s, err := notify.NewSlack(cfg.Slack.WebhookURL, client)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrMissingCredential, err)
			}
			sinks = append(sinks, pipeline.Notify(s))
		case config.SinkTelegram:
			s, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "", client)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrMissingCredential, err)
			}
			sinks = append(sinks, pipeline.Notify(s))
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return sinks, nil
}
