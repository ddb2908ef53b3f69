// Package supabase stores classified items in a Supabase table through its
// PostgREST endpoint.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// DefaultTable is the table items are written to when none is configured.
const DefaultTable = "reddit_feeds"

// Sink upserts items into a Supabase table keyed by item_id.
type Sink struct {
	endpoint string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

// NewSink creates a Sink for the project at baseURL. A nil client gets a
// 15-second timeout client.
func NewSink(baseURL, apiKey, table string, client *http.Client) (*Sink, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("supabase url and api key are required")
	}
	if table == "" {
		table = DefaultTable
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	endpoint, err := url.JoinPath(strings.TrimRight(baseURL, "/"), "rest", "v1", table)
	if err != nil {
		return nil, fmt.Errorf("building supabase endpoint: %w", err)
	}

	return &Sink{
		endpoint: endpoint + "?on_conflict=item_id",
		apiKey:   apiKey,
		client:   client,
		now:      time.Now,
	}, nil
}

// Name identifies the sink in dispatch reports.
func (s *Sink) Name() string { return "supabase" }

// row mirrors the reddit_feeds table columns.
type row struct {
	FeedURL        string  `json:"feed_url"`
	FeedTitle      string  `json:"feed_title"`
	ItemID         string  `json:"item_id"`
	Title          string  `json:"title"`
	Link           string  `json:"link"`
	Author         *string `json:"author"`
	PubDate        *string `json:"pub_date"`
	Content        *string `json:"content"`
	ContentSnippet *string `json:"content_snippet"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	LLMViable      bool    `json:"llm_viable"`
	LLMReason      string  `json:"llm_reason"`
	LLMTechStack   *string `json:"llm_tech_stack"`
	LLMComplexity  *string `json:"llm_complexity"`
	LLMRawResponse *string `json:"llm_raw_response"`
	Status         string  `json:"status"`
}

// Upsert posts batch in one request. Rows whose item_id already exists are
// ignored by the server, so re-sending is safe.
func (s *Sink) Upsert(ctx context.Context, batch []models.Classified) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	rows := make([]row, 0, len(batch))
	for _, c := range batch {
		r, err := toRow(c, now)
		if err != nil {
			return 0, err
		}
		rows = append(rows, r)
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("marshaling rows: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=ignore-duplicates,return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	slog.Debug("stored items in supabase", "count", len(rows))
	return len(rows), nil
}

func toRow(c models.Classified, now string) (row, error) {
	r := row{
		FeedURL:        c.Item.SourceTag,
		FeedTitle:      c.Item.SourceTag,
		ItemID:         c.Item.ID,
		Title:          c.Item.Title,
		Link:           c.Item.Link,
		Author:         optional(c.Item.Author),
		Content:        optional(c.Item.Body),
		ContentSnippet: optional(c.Item.BodySnippet),
		CreatedAt:      now,
		UpdatedAt:      now,
		LLMViable:      c.Result.Accepted,
		LLMReason:      c.Result.Reason,
		LLMComplexity:  optional(c.Result.ExtraString("complexity")),
		LLMRawResponse: c.Result.RawResponse,
		Status:         string(models.StatusNew),
	}
	if c.Item.PublishedAt != nil {
		v := c.Item.PublishedAt.UTC().Format(time.RFC3339)
		r.PubDate = &v
	}
	if ideas := c.Result.ExtraStrings("tech_stack_ideas"); ideas != nil {
		b, err := json.Marshal(ideas)
		if err != nil {
			return row{}, fmt.Errorf("encoding tech stack for %q: %w", c.Item.ID, err)
		}
		v := string(b)
		r.LLMTechStack = &v
	}
	return r, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
