package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// Item is one normalized unit of ingested content.
type Item struct {
	ID          string     `json:"id"`
	SourceTag   string     `json:"source_tag"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Body        string     `json:"body,omitempty"`
	BodySnippet string     `json:"body_snippet,omitempty"`
}

// EnsureID fills an empty ID with the item's link, or with a content hash
// when there is no link either. The result is deterministic for the same
// upstream record.
func (i *Item) EnsureID() {
	if i.ID != "" {
		return
	}
	if i.Link != "" {
		i.ID = i.Link
		return
	}
	sum := sha256.Sum256([]byte(i.SourceTag + "\x00" + i.Title + "\x00" + i.Body))
	i.ID = "sha256:" + hex.EncodeToString(sum[:16])
}

// Snippet returns the first n runes of s.
func Snippet(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
