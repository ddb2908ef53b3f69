package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

const pullPushURL = "https://api.pullpush.io/reddit/search/submission/"

// PullPushMinDelay is the spacing that keeps PullPush under its soft limit
// of 15 requests per minute (hard limit 30).
const PullPushMinDelay = 2 * time.Second

// maxPullPushBytes bounds one search response. A full page of 100 posts
// with long selftext stays well under it.
const maxPullPushBytes = 8 << 20

var subredditPrefix = regexp.MustCompile(`^/r/|^/`)

// PullPushAdapter reads recent subreddit submissions from the PullPush
// archive API.
type PullPushAdapter struct {
	client       *http.Client
	baseURL      string
	pageSize     int
	lookback     time.Duration
	snippetChars int
	enricher     *Enricher
	maxBytes     int64
	now          func() time.Time
}

// PullPushOptions configures a PullPushAdapter.
type PullPushOptions struct {
	BaseURL      string
	PageSize     int
	Lookback     time.Duration
	SnippetChars int
	Enricher     *Enricher
}

// NewPullPushAdapter creates a PullPushAdapter. Zero options fall back to
// 25 items per page, a 6 hour lookback and 500 character snippets.
func NewPullPushAdapter(client *http.Client, opts PullPushOptions) *PullPushAdapter {
	if opts.BaseURL == "" {
		opts.BaseURL = pullPushURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 6 * time.Hour
	}
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = 500
	}
	return &PullPushAdapter{
		client:       client,
		baseURL:      opts.BaseURL,
		pageSize:     opts.PageSize,
		lookback:     opts.Lookback,
		snippetChars: opts.SnippetChars,
		enricher:     opts.Enricher,
		maxBytes:     maxPullPushBytes,
		now:          time.Now,
	}
}

type pullPushResponse struct {
	Data []pullPushPost `json:"data"`
}

type pullPushPost struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Permalink  string   `json:"permalink"`
	URL        string   `json:"url"`
	Selftext   string   `json:"selftext"`
	CreatedUTC *float64 `json:"created_utc"`
	IsSelf     bool     `json:"is_self"`
}

// Fetch returns submissions to subreddit created within the lookback window.
func (a *PullPushAdapter) Fetch(ctx context.Context, subreddit string) ([]models.Item, error) {
	sub := subredditPrefix.ReplaceAllString(subreddit, "")
	if sub == "" {
		return nil, fmt.Errorf("empty subreddit")
	}

	q := url.Values{}
	q.Set("subreddit", sub)
	q.Set("size", strconv.Itoa(a.pageSize))
	q.Set("sort", "desc")
	q.Set("sort_type", "created_utc")
	q.Set("after", strconv.FormatInt(a.now().Add(-a.lookback).Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > a.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", a.maxBytes)
	}

	var payload pullPushResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, ErrEmptyPayload
	}

	items := make([]models.Item, 0, len(payload.Data))
	for _, p := range payload.Data {
		item := a.toItem(sub, p)
		if item.Body == "" && !p.IsSelf && p.URL != "" && a.enricher != nil {
			a.enricher.Fill(ctx, &item, p.URL, a.snippetChars)
		}
		items = append(items, item)
	}

	slog.Debug("pullpush fetched", "subreddit", sub, "items", len(items))
	return items, nil
}

func (a *PullPushAdapter) toItem(sub string, p pullPushPost) models.Item {
	body := p.Selftext
	if body == "[removed]" || body == "[deleted]" {
		body = ""
	}
	item := models.Item{
		ID:          p.ID,
		SourceTag:   sub,
		Title:       p.Title,
		Author:      p.Author,
		Body:        body,
		BodySnippet: models.Snippet(body, a.snippetChars),
	}
	if item.ID == "" {
		item.ID = p.Permalink
	}
	if p.Permalink != "" {
		item.Link = "https://www.reddit.com" + p.Permalink
	} else {
		item.Link = p.URL
	}
	if p.CreatedUTC != nil {
		t := time.UnixMilli(int64(*p.CreatedUTC * 1000)).UTC()
		item.PublishedAt = &t
	}
	item.EnsureID()
	return item
}
