package storage

import (
	"context"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// Sink stores accepted items for one pipeline.
type Sink struct {
	store    *Store
	pipeline string
}

// NewSink creates a Sink writing to store under the pipeline name.
func NewSink(store *Store, pipeline string) *Sink {
	return &Sink{store: store, pipeline: pipeline}
}

// Name identifies the sink in dispatch reports.
func (s *Sink) Name() string { return "sqlite" }

// Upsert stores batch. Re-storing a known id is a no-op success.
func (s *Sink) Upsert(ctx context.Context, batch []models.Classified) (int, error) {
	return s.store.UpsertItems(ctx, s.pipeline, batch)
}
