// Package langdetect screens items by language before they reach the
// classification backend.
package langdetect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// Detector reports the ISO 639-1 code of text. ok is false when the
// language cannot be told with confidence.
type Detector interface {
	Detect(text string) (iso string, ok bool)
}

// linguaDetector builds its model on first use; loading all languages
// takes a while and most runs never enable the filter.
type linguaDetector struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// NewDetector returns a Detector backed by lingua over all languages.
func NewDetector() Detector {
	return &linguaDetector{}
}

func (l *linguaDetector) Detect(text string) (string, bool) {
	l.once.Do(func() {
		l.detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			WithMinimumRelativeDistance(0.1).
			Build()
	})

	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Filter rejects items whose detected language is outside an allowlist.
// Items with undetectable language pass.
type Filter struct {
	allowed  map[string]bool
	detector Detector
}

// NewFilter creates a Filter for the given ISO 639-1 codes. It returns nil
// when languages is empty, which disables screening.
func NewFilter(languages []string, detector Detector) *Filter {
	allowed := make(map[string]bool, len(languages))
	for _, l := range languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			allowed[l] = true
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	if detector == nil {
		detector = NewDetector()
	}
	return &Filter{allowed: allowed, detector: detector}
}

// Allow returns false and a reason when item is confidently in a language
// outside the allowlist.
func (f *Filter) Allow(item models.Item) (string, bool) {
	text := strings.TrimSpace(item.Title + "\n" + sampleText(item))
	if text == "" {
		return "", true
	}

	iso, ok := f.detector.Detect(text)
	if !ok || f.allowed[iso] {
		return "", true
	}
	return fmt.Sprintf("language %s not in allowlist", iso), false
}

func sampleText(item models.Item) string {
	if item.BodySnippet != "" {
		return item.BodySnippet
	}
	return models.Snippet(item.Body, 500)
}
