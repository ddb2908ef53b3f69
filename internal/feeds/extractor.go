package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/hoanghai1803/threadscout/internal/models"
)

const (
	maxWords     = 5000
	maxPageBytes = 5 << 20
)

// browserHeaders sets browser-like request headers so sites that check
// Accept or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; threadscout/1.0; +https://github.com/hoanghai1803/threadscout)")
}

// TextExtractor returns the readable text of a web page.
type TextExtractor func(ctx context.Context, pageURL string, timeout time.Duration) (string, error)

// Enricher fills empty item bodies with the readable text of the page the
// item links to.
type Enricher struct {
	extract TextExtractor
	timeout time.Duration
}

// NewEnricher creates an Enricher backed by go-readability.
func NewEnricher(timeout time.Duration) *Enricher {
	return &Enricher{extract: extractFullText, timeout: timeout}
}

// Fill sets item's body and snippet from pageURL. Failures are logged and
// leave the item unchanged.
func (e *Enricher) Fill(ctx context.Context, item *models.Item, pageURL string, snippetChars int) {
	if err := ctx.Err(); err != nil {
		return
	}
	text, err := e.extract(ctx, pageURL, e.timeout)
	if err != nil {
		slog.Debug("enrichment failed", "item", item.ID, "url", pageURL, "error", err)
		return
	}
	text = truncateWords(strings.TrimSpace(text), maxWords)
	if text == "" {
		return
	}
	item.Body = text
	item.BodySnippet = models.Snippet(text, snippetChars)
}

// extractFullText downloads pageURL and returns its main readable text.
func extractFullText(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	browserHeaders(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("not an HTML page: %s", ct)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}
	return article.TextContent, nil
}

// truncateWords keeps the first maxWords words of s, joined by single
// spaces. Shorter input is returned as is.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ")
}
