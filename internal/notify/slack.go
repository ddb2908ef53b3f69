// Package notify announces accepted items on chat services.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

const slackSnippetChars = 300

// Slack posts a Block Kit message to an incoming webhook per item.
type Slack struct {
	webhookURL string
	client     *http.Client
}

// NewSlack creates a Slack notifier. A nil client gets a 10-second timeout
// client.
func NewSlack(webhookURL string, client *http.Client) (*Slack, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Slack{webhookURL: webhookURL, client: client}, nil
}

// Name identifies the sink in dispatch reports.
func (s *Slack) Name() string { return "slack" }

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackElement struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url,omitempty"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// Notify sends one item. Any non-2xx reply is an error.
func (s *Slack) Notify(ctx context.Context, c models.Classified) error {
	body, err := json.Marshal(slackMessageFor(c))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func slackMessageFor(c models.Classified) slackMessage {
	source := c.Item.SourceTag
	if source == "" {
		source = "Unknown"
	}
	title := c.Item.Title
	if title == "" {
		title = "No title"
	}

	mrkdwn := func(text string) slackBlock {
		return slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}}
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "r/" + source, Emoji: true}},
		mrkdwn(fmt.Sprintf("*<%s|%s>*", c.Item.Link, title)),
	}
	if snippet := snippetOf(c.Item, slackSnippetChars); snippet != "" {
		blocks = append(blocks, mrkdwn("> "+strings.ReplaceAll(snippet, "\n", "\n> ")))
	}
	if angle := c.Result.ExtraString("suggested_angle"); angle != "" {
		blocks = append(blocks, mrkdwn("*Suggested angle:* "+angle))
	}
	blocks = append(blocks, mrkdwn("*Why:* "+c.Result.Reason))
	if c.Item.Link != "" {
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []slackElement{{
				Type: "button",
				Text: slackText{Type: "plain_text", Text: "Open thread"},
				URL:  c.Item.Link,
			}},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackMessage{Text: title, Blocks: blocks}
}

func snippetOf(item models.Item, n int) string {
	s := item.BodySnippet
	if s == "" {
		s = item.Body
	}
	return models.Snippet(strings.TrimSpace(s), n)
}
