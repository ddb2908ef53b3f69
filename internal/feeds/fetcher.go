// Package feeds turns upstream sources into normalized items. Each source
// id has the form "kind:target"; a bare id uses the router's default kind.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// ErrUnknownAdapter is returned for a source id whose kind has no adapter.
var ErrUnknownAdapter = errors.New("unknown source kind")

// ErrEmptyPayload marks a response that parsed but carried no items.
var ErrEmptyPayload = errors.New("empty payload")

const defaultHTTPTimeout = 30 * time.Second

// Adapter fetches one kind of source. target is the part of the source id
// after "kind:".
type Adapter interface {
	Fetch(ctx context.Context, target string) ([]models.Item, error)
}

// Router dispatches a source id to the adapter registered for its kind.
type Router struct {
	adapters    map[string]Adapter
	defaultKind string
}

// NewRouter creates a Router whose bare ids go to defaultKind.
func NewRouter(defaultKind string) *Router {
	return &Router{adapters: make(map[string]Adapter), defaultKind: defaultKind}
}

// Register adds an adapter for kind, replacing any existing one.
func (r *Router) Register(kind string, a Adapter) *Router {
	r.adapters[kind] = a
	return r
}

// Kinds returns the registered kinds.
func (r *Router) Kinds() []string {
	kinds := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	return kinds
}

// Fetch resolves sourceID and calls the matching adapter. Returned items
// carry sourceID's target as their source tag unless the adapter set one.
func (r *Router) Fetch(ctx context.Context, sourceID string) ([]models.Item, error) {
	kind, target := r.Resolve(sourceID)
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, kind)
	}
	items, err := a.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, target, err)
	}
	for i := range items {
		if items[i].SourceTag == "" {
			items[i].SourceTag = target
		}
	}
	return items, nil
}

// Resolve splits a source id into kind and target.
func (r *Router) Resolve(sourceID string) (kind, target string) {
	if strings.HasPrefix(sourceID, "http://") || strings.HasPrefix(sourceID, "https://") {
		return "rss", sourceID
	}
	if k, t, found := strings.Cut(sourceID, ":"); found && k != "" {
		return k, t
	}
	return r.defaultKind, sourceID
}

// NewHTTPClient returns a client with the given timeout that identifies
// itself on every request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base: http.DefaultTransport,
		},
	}
}

// userAgentTransport wraps an http.RoundTripper to inject a custom User-Agent
// header on every request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	// Reddit rejects default Go user agents.
	req.Header.Set("User-Agent", "threadscout/1.0 (+https://github.com/hoanghai1803/threadscout)")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, application/rss+xml, application/atom+xml;q=0.9, */*;q=0.8")
	}
	return t.base.RoundTrip(req)
}
