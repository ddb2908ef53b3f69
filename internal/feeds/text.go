package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlToText returns the visible text of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func htmlToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()

	// Keep block boundaries as spaces so words don't run together.
	doc.Find("p, br, li, div, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})

	// Reddit's RSS bodies end with a "submitted by ... [link] [comments]" footer.
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		switch strings.TrimSpace(sel.Text()) {
		case "[link]", "[comments]":
			sel.Remove()
		}
	})

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if i := strings.LastIndex(text, "submitted by /u/"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return text
}
