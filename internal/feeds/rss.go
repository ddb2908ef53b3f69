package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hoanghai1803/threadscout/internal/models"
)

const redditFeedURL = "https://www.reddit.com/r/%s/new/.rss"

// RSSAdapter reads any RSS or Atom feed.
type RSSAdapter struct {
	client       *http.Client
	lookback     time.Duration
	snippetChars int
	enricher     *Enricher
	now          func() time.Time
}

// NewRSSAdapter creates an RSSAdapter. A zero lookback keeps every item.
func NewRSSAdapter(client *http.Client, lookback time.Duration, snippetChars int, enricher *Enricher) *RSSAdapter {
	if snippetChars <= 0 {
		snippetChars = 500
	}
	return &RSSAdapter{
		client:       client,
		lookback:     lookback,
		snippetChars: snippetChars,
		enricher:     enricher,
		now:          time.Now,
	}
}

// Fetch parses the feed at feedURL.
func (a *RSSAdapter) Fetch(ctx context.Context, feedURL string) ([]models.Item, error) {
	return a.fetch(ctx, feedURL, feedTag(feedURL))
}

func (a *RSSAdapter) fetch(ctx context.Context, feedURL, tag string) ([]models.Item, error) {
	fp := gofeed.NewParser()
	fp.Client = a.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", feedURL, err)
	}
	if len(feed.Items) == 0 {
		return nil, ErrEmptyPayload
	}

	var cutoff time.Time
	if a.lookback > 0 {
		cutoff = a.now().Add(-a.lookback)
	}
	items := parseFeedItems(tag, feed, cutoff, a.snippetChars)

	if a.enricher != nil {
		for i := range items {
			if items[i].Body == "" && items[i].Link != "" {
				a.enricher.Fill(ctx, &items[i], items[i].Link, a.snippetChars)
			}
		}
	}

	slog.Debug("feed fetched", "url", feedURL, "items", len(items))
	return items, nil
}

// RedditAdapter reads a subreddit's public "new" RSS feed.
type RedditAdapter struct {
	rss *RSSAdapter
}

// NewRedditAdapter wraps an RSSAdapter for subreddit names.
func NewRedditAdapter(rss *RSSAdapter) *RedditAdapter {
	return &RedditAdapter{rss: rss}
}

// Fetch returns the newest posts in subreddit.
func (a *RedditAdapter) Fetch(ctx context.Context, subreddit string) ([]models.Item, error) {
	sub := subredditPrefix.ReplaceAllString(subreddit, "")
	if sub == "" {
		return nil, fmt.Errorf("empty subreddit")
	}
	// Self posts have their body inline, so no enrichment.
	plain := *a.rss
	plain.enricher = nil
	return plain.fetch(ctx, fmt.Sprintf(redditFeedURL, url.PathEscape(sub)), sub)
}

// feedTag returns the host of feedURL, used as a short source tag.
func feedTag(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	return u.Hostname()
}
