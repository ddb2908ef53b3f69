package feeds

import (
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// parseFeedItems converts gofeed items into Items, dropping anything
// published before cutoff. Items with nil PublishedParsed are always
// included. Items with an empty title are skipped.
func parseFeedItems(sourceTag string, feed *gofeed.Feed, cutoff time.Time, snippetChars int) []models.Item {
	var items []models.Item
	for _, fi := range feed.Items {
		if fi.Title == "" {
			continue
		}

		// Filter by publication date when available.
		published := fi.PublishedParsed
		if published == nil {
			published = fi.UpdatedParsed
		}
		if published != nil && published.Before(cutoff) {
			continue
		}

		var publishedAt *time.Time
		if published != nil {
			t := published.UTC()
			publishedAt = &t
		}

		raw := fi.Content
		if raw == "" {
			raw = fi.Description
		}
		body := htmlToText(raw)

		item := models.Item{
			ID:          fi.GUID,
			SourceTag:   sourceTag,
			Title:       fi.Title,
			Link:        fi.Link,
			Author:      authorOf(fi),
			PublishedAt: publishedAt,
			Body:        body,
			BodySnippet: models.Snippet(body, snippetChars),
		}
		item.EnsureID()
		items = append(items, item)
	}

	return items
}

func authorOf(fi *gofeed.Item) string {
	if fi.Author != nil && fi.Author.Name != "" {
		return fi.Author.Name
	}
	for _, a := range fi.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
