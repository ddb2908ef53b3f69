package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hoanghai1803/threadscout/internal/ai"
	"github.com/hoanghai1803/threadscout/internal/models"
)

// ReasonParseFailure is the reason recorded when a reply cannot be decoded.
const ReasonParseFailure = "failed to parse classification response"

// Prefilter can reject an item before it reaches the backend. It returns
// a reason and false to reject.
type Prefilter interface {
	Allow(item models.Item) (reason string, ok bool)
}

// Classifier asks a backend about one item at a time and turns its reply
// into a ClassificationResult. It never returns an error.
type Classifier struct {
	backend   ai.Backend
	profile   ai.Profile
	throttle  *Throttle
	timeout   time.Duration
	prefilter Prefilter
	logger    *slog.Logger
}

// NewClassifier creates a Classifier. timeout bounds each backend call.
func NewClassifier(backend ai.Backend, profile ai.Profile, throttle *Throttle, timeout time.Duration, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		backend:  backend,
		profile:  profile,
		throttle: throttle,
		timeout:  timeout,
		logger:   logger,
	}
}

// WithPrefilter installs an optional pre-backend filter.
func (c *Classifier) WithPrefilter(p Prefilter) *Classifier {
	c.prefilter = p
	return c
}

// Classify returns a result for item. Backend and parse failures are
// encoded as rejected results.
func (c *Classifier) Classify(ctx context.Context, item models.Item) models.ClassificationResult {
	if res, skip := c.screen(item); skip {
		return res
	}
	return c.call(ctx, item)
}

// ClassifyAll classifies items strictly one at a time in input order, with
// the throttle's spacing between backend calls.
func (c *Classifier) ClassifyAll(ctx context.Context, items []models.Item) []models.Classified {
	out := make([]models.Classified, 0, len(items))
	for _, item := range items {
		if res, skip := c.screen(item); skip {
			out = append(out, models.Classified{Item: item, Result: res})
			continue
		}
		if err := c.throttle.Wait(ctx); err != nil {
			out = append(out, models.Classified{Item: item, Result: backendFailure(err)})
			continue
		}
		out = append(out, models.Classified{Item: item, Result: c.call(ctx, item)})
	}
	return out
}

func (c *Classifier) screen(item models.Item) (models.ClassificationResult, bool) {
	if c.prefilter == nil {
		return models.ClassificationResult{}, false
	}
	reason, ok := c.prefilter.Allow(item)
	if ok {
		return models.ClassificationResult{}, false
	}
	c.logger.Debug("item filtered before classification", "item", item.ID, "reason", reason)
	return models.ClassificationResult{Accepted: false, Reason: reason, Extra: c.defaults()}, true
}

func (c *Classifier) call(ctx context.Context, item models.Item) (res models.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classification panicked", "item", item.ID, "panic", r)
			res = backendFailure(fmt.Errorf("panic: %v", r))
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.backend.Complete(ctx, c.profile.SystemPrompt, c.profile.UserPrompt(item))
	if err != nil {
		c.logger.Warn("classification backend failed", "item", item.ID, "source", item.SourceTag, "error", err)
		return backendFailure(err)
	}

	res, err = c.decode(raw)
	if err != nil {
		c.logger.Warn("classification response unparseable", "item", item.ID, "error", err)
	}
	return res
}

// decode maps a reply onto a result. The raw text is kept in every case.
func (c *Classifier) decode(raw string) (models.ClassificationResult, error) {
	failed := models.ClassificationResult{
		Accepted:    false,
		Reason:      ReasonParseFailure,
		Extra:       c.defaults(),
		RawResponse: &raw,
	}

	obj, ok := ai.ExtractJSONObject(raw)
	if !ok {
		return failed, fmt.Errorf("no JSON object in response")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return failed, fmt.Errorf("decoding JSON: %w", err)
	}

	accepted, ok := fields[c.profile.AcceptField].(bool)
	if !ok {
		return failed, fmt.Errorf("field %q missing or not a boolean", c.profile.AcceptField)
	}

	reason, _ := fields["reason"].(string)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultReason
	}

	extra := c.defaults()
	for k, v := range fields {
		if k == c.profile.AcceptField || k == "reason" || v == nil {
			continue
		}
		extra[k] = v
	}

	return models.ClassificationResult{
		Accepted:    accepted,
		Reason:      reason,
		Extra:       extra,
		RawResponse: &raw,
	}, nil
}

func (c *Classifier) defaults() map[string]any {
	extra := make(map[string]any, len(c.profile.Defaults))
	for k := range c.profile.Defaults {
		v, _ := c.profile.DefaultFor(k)
		extra[k] = v
	}
	return extra
}

func backendFailure(err error) models.ClassificationResult {
	return models.ClassificationResult{
		Accepted: false,
		Reason:   "backend error: " + err.Error(),
	}
}
