package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// fakeAdapter serves canned items per source and records call times.
type fakeAdapter struct {
	clock  *fakeClock
	items  map[string][]models.Item
	errs   map[string]error
	calls  []string
	starts []time.Time
}

func (a *fakeAdapter) Fetch(ctx context.Context, sourceID string) ([]models.Item, error) {
	a.calls = append(a.calls, sourceID)
	if a.clock != nil {
		a.starts = append(a.starts, a.clock.Now())
		a.clock.Advance(50 * time.Millisecond)
	}
	if err := a.errs[sourceID]; err != nil {
		return nil, err
	}
	items, ok := a.items[sourceID]
	if !ok {
		return nil, errors.New("empty payload")
	}
	return items, nil
}

// fakeBackend returns replies keyed by item title.
type fakeBackend struct {
	mu      sync.Mutex
	clock   *fakeClock
	replies map[string]string
	errs    map[string]error
	panics  map[string]bool
	calls   []string
	starts  []time.Time
}

func (b *fakeBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	title := titleOf(userPrompt)
	b.calls = append(b.calls, title)
	if b.clock != nil {
		b.starts = append(b.starts, b.clock.Now())
		b.clock.Advance(200 * time.Millisecond)
	}
	if b.panics[title] {
		panic("backend exploded")
	}
	if err := b.errs[title]; err != nil {
		return "", err
	}
	if reply, ok := b.replies[title]; ok {
		return reply, nil
	}
	return `{"viable": false, "reason": "default"}`, nil
}

func titleOf(prompt string) string {
	const marker = "Title: "
	start := strings.Index(prompt, marker)
	if start < 0 {
		return ""
	}
	rest := prompt[start+len(marker):]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		return rest[:end]
	}
	return rest
}

// fakeSink records deliveries and fails for listed item ids.
type fakeSink struct {
	name      string
	failFor   map[string]bool
	delivered []string
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Deliver(ctx context.Context, c models.Classified) error {
	if s.failFor[c.Item.ID] || s.failFor["*"] {
		return errors.New("sink unavailable")
	}
	s.delivered = append(s.delivered, c.Item.ID)
	return nil
}

type memorySeen struct{ ids map[string]bool }

func newMemorySeen(ids ...string) *memorySeen {
	s := &memorySeen{ids: map[string]bool{}}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *memorySeen) IsNew(id string) bool { return !s.ids[id] }
func (s *memorySeen) MarkSeen(id string)   { s.ids[id] = true }

// blockingAdapter, blockingBackend and blockingSink wait for their context
// to end, so only a timeout gets them to return.
type blockingAdapter struct{}

func (blockingAdapter) Fetch(ctx context.Context, _ string) ([]models.Item, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type blockingBackend struct{}

func (blockingBackend) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type blockingSink struct{ name string }

func (s blockingSink) Name() string { return s.name }

func (s blockingSink) Deliver(ctx context.Context, _ models.Classified) error {
	<-ctx.Done()
	return ctx.Err()
}
