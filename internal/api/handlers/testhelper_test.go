package handlers

import (
	"context"
	"testing"

	"github.com/hoanghai1803/threadscout/internal/models"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied. It
// registers a cleanup function to close the database when the test completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// seedItem stores an accepted item under pipeline.
func seedItem(t *testing.T, store *storage.Store, pipeline, id string) {
	t.Helper()
	c := models.Classified{
		Item:   models.Item{ID: id, SourceTag: "SaaS", Title: "Post " + id, Link: "https://example.com/" + id},
		Result: models.ClassificationResult{Accepted: true, Reason: "fits"},
	}
	if _, err := store.UpsertItems(context.Background(), pipeline, []models.Classified{c}); err != nil {
		t.Fatalf("seeding item: %v", err)
	}
}
