package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

const telegramAPIURL = "https://api.telegram.org"

// Telegram sends a Markdown message per item through the Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegram registers bot token and chat identifier. An empty baseURL
// uses the public Bot API.
func NewTelegram(botToken, chatID, baseURL string, client *http.Client) (*Telegram, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram bot token and chat id are required")
	}
	if baseURL == "" {
		baseURL = telegramAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
	}, nil
}

// Name identifies the sink in dispatch reports.
func (t *Telegram) Name() string { return "telegram" }

// Notify posts one item to the chat.
func (t *Telegram) Notify(ctx context.Context, c models.Classified) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", telegramText(c))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func telegramText(c models.Classified) string {
	var b strings.Builder
	if c.Item.SourceTag != "" {
		fmt.Fprintf(&b, "*r/%s*\n", markdownEscaper.Replace(c.Item.SourceTag))
	}
	if c.Item.Link != "" {
		fmt.Fprintf(&b, "[%s](%s)\n", markdownEscaper.Replace(c.Item.Title), c.Item.Link)
	} else {
		b.WriteString(markdownEscaper.Replace(c.Item.Title) + "\n")
	}
	if angle := c.Result.ExtraString("suggested_angle"); angle != "" {
		fmt.Fprintf(&b, "\n*Suggested angle:* %s", markdownEscaper.Replace(angle))
	}
	fmt.Fprintf(&b, "\n*Why:* %s", markdownEscaper.Replace(c.Result.Reason))
	return b.String()
}
