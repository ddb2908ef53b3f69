// Package cli implements the threadscout command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/threadscout/internal/app"
	"github.com/hoanghai1803/threadscout/internal/config"
	"github.com/hoanghai1803/threadscout/internal/logging"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

// version is set at build time with -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "threadscout",
	Short: "Watch community feeds and triage new posts with a language model",
	Long: `threadscout polls subreddits and RSS feeds, classifies each new post
with a language model and forwards the matches to a database, Slack or
Telegram.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config file (.toml or .yaml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// env is what every command works against.
type env struct {
	cfg    *config.Config
	store  *storage.Store
	logger *slog.Logger
}

// openEnv loads config, sets up logging and opens the store. Tests replace
// it with an in-memory environment.
var openEnv = func(cmd *cobra.Command) (*env, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return &env{cfg: cfg, store: store, logger: logger}, func() { store.Close() }, nil
}

// newApp builds pipelines from the environment. Tests replace it to inject
// fake sources and backends.
var newApp = func(e *env) (*app.App, error) {
	return app.New(e.cfg, e.store, e.logger, app.Options{})
}
