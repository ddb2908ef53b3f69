package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// SourceAdapter fetches the current items of one named source. An error,
// including an empty payload, marks the source as failed for this cycle.
type SourceAdapter interface {
	Fetch(ctx context.Context, sourceID string) ([]models.Item, error)
}

// SeenSet is the cross-cycle membership set of item ids.
type SeenSet interface {
	IsNew(id string) bool
	MarkSeen(id string)
}

// IngestResult is the output of one ingest pass.
type IngestResult struct {
	Items   []models.Item
	Fetched int
	Failed  []string
}

// AllFailed reports whether every source failed.
func (r IngestResult) AllFailed(sources int) bool {
	return sources > 0 && len(r.Failed) == sources
}

// Coordinator fetches sources one at a time and keeps only unseen items.
type Coordinator struct {
	adapter  SourceAdapter
	seen     SeenSet
	throttle *Throttle
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator. timeout bounds each adapter call.
func NewCoordinator(adapter SourceAdapter, seen SeenSet, throttle *Throttle, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		adapter:  adapter,
		seen:     seen,
		throttle: throttle,
		timeout:  timeout,
		logger:   logger,
	}
}

// Ingest returns the new items from sources, in source order and then fetch
// order within each source.
func (c *Coordinator) Ingest(ctx context.Context, sources []string) []models.Item {
	return c.Run(ctx, sources).Items
}

// Run is Ingest with per-pass counters. It never returns an error: a failed
// source is logged and skipped.
func (c *Coordinator) Run(ctx context.Context, sources []string) IngestResult {
	var res IngestResult

	for i, src := range sources {
		if err := c.throttle.Wait(ctx); err != nil {
			c.logger.Warn("ingest interrupted", "source", src, "remaining", len(sources)-i, "error", err)
			res.Failed = append(res.Failed, sources[i:]...)
			break
		}

		items, err := c.fetch(ctx, src)
		if err != nil {
			c.logger.Warn("source fetch failed", "source", src, "error", err)
			res.Failed = append(res.Failed, src)
			continue
		}
		res.Fetched += len(items)

		added, dupes := 0, 0
		for _, item := range items {
			item.EnsureID()
			if item.SourceTag == "" {
				item.SourceTag = src
			}
			if !c.seen.IsNew(item.ID) {
				dupes++
				continue
			}
			c.seen.MarkSeen(item.ID)
			res.Items = append(res.Items, item)
			added++
		}
		c.logger.Info("fetched source", "source", src, "items", len(items), "new", added, "seen", dupes)
	}

	switch {
	case res.AllFailed(len(sources)):
		c.logger.Warn("all sources failed", "sources", len(sources))
	case len(res.Items) == 0:
		c.logger.Info("no new items", "sources", len(sources), "fetched", res.Fetched)
	}
	return res
}

func (c *Coordinator) fetch(ctx context.Context, src string) ([]models.Item, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.adapter.Fetch(ctx, src)
}
