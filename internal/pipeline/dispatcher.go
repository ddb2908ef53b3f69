package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// Sink receives one accepted item.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, c models.Classified) error
}

// PersistenceSink stores classified items. Upsert must be idempotent on the
// item id: storing an id twice is a success, not a duplicate record.
type PersistenceSink interface {
	Name() string
	Upsert(ctx context.Context, batch []models.Classified) (int, error)
}

// NotificationSink announces one item. Delivery is best effort.
type NotificationSink interface {
	Name() string
	Notify(ctx context.Context, c models.Classified) error
}

// Persist adapts a PersistenceSink to Sink with batches of one.
func Persist(p PersistenceSink) Sink { return persistSink{p} }

// Notify adapts a NotificationSink to Sink.
func Notify(n NotificationSink) Sink { return notifySink{n} }

type persistSink struct{ p PersistenceSink }

func (s persistSink) Name() string { return s.p.Name() }

func (s persistSink) Deliver(ctx context.Context, c models.Classified) error {
	n, err := s.p.Upsert(ctx, []models.Classified{c})
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("upsert stored %d of 1 items", n)
	}
	return nil
}

type notifySink struct{ n NotificationSink }

func (s notifySink) Name() string { return s.n.Name() }

func (s notifySink) Deliver(ctx context.Context, c models.Classified) error {
	return s.n.Notify(ctx, c)
}

// DispatchOutcome maps sink name to delivery success for one item.
type DispatchOutcome map[string]bool

// Dispatcher fans accepted items out to every configured sink. A failing
// sink never stops delivery to the other sinks or to later items.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. timeout bounds each delivery.
func NewDispatcher(sinks []Sink, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, logger: logger}
}

// Sinks returns the configured sink names.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch delivers each accepted item to every sink, in input order.
// Items that are not accepted are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, items []models.Classified) models.DispatchReport {
	report := make(models.DispatchReport, len(d.sinks))
	for _, s := range d.sinks {
		report[s.Name()] = models.SinkCount{}
	}

	for _, c := range items {
		if !c.Result.Accepted {
			continue
		}
		outcome := make(DispatchOutcome, len(d.sinks))
		for _, s := range d.sinks {
			ok := d.deliver(ctx, s, c)
			outcome[s.Name()] = ok

			count := report[s.Name()]
			count.Attempted++
			if ok {
				count.Succeeded++
			}
			report[s.Name()] = count
		}
		d.logger.Debug("dispatched item", "item", c.Item.ID, "outcome", outcome)
	}
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, c models.Classified) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("sink panicked", "sink", s.Name(), "item", c.Item.ID, "panic", r)
			ok = false
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := s.Deliver(ctx, c); err != nil {
		d.logger.Warn("sink delivery failed",
			"sink", s.Name(),
			"item", c.Item.ID,
			"source", c.Item.SourceTag,
			"title", c.Item.Title,
			"link", c.Item.Link,
			"error", err,
		)
		return false
	}
	return true
}
