package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hoanghai1803/threadscout/internal/models"
	"github.com/hoanghai1803/threadscout/internal/scheduler"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

type busyTrigger struct{ busy bool }

func (b *busyTrigger) Trigger() error {
	if b.busy {
		return scheduler.ErrCycleInProgress
	}
	b.busy = true
	return nil
}

func newRouterStore(t *testing.T) *storage.Store {
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

func TestRouter_Routes(t *testing.T) {
	store := newRouterStore(t)
	c := models.Classified{
		Item:   models.Item{ID: "x1", Title: "Need a tool", Link: "https://example.com/x1"},
		Result: models.ClassificationResult{Accepted: true, Reason: "fits"},
	}
	if _, err := store.UpsertItems(context.Background(), "ideas", []models.Classified{c}); err != nil {
		t.Fatalf("UpsertItems() error: %v", err)
	}

	logger, _ := newBufferLogger()
	router := NewRouter(store, &busyTrigger{}, logger)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/items", "", http.StatusOK},
		{http.MethodGet, "/api/items/x1", "", http.StatusOK},
		{http.MethodGet, "/api/items/none", "", http.StatusNotFound},
		{http.MethodPatch, "/api/items/x1/status", `{"status":"in_progress"}`, http.StatusOK},
		{http.MethodGet, "/api/cycles", "", http.StatusOK},
		{http.MethodPost, "/api/cycles", "", http.StatusAccepted},
		{http.MethodPost, "/api/cycles", "", http.StatusConflict},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != tt.want {
			t.Errorf("%s %s: got status %d, want %d; body: %s", tt.method, tt.path, w.Code, tt.want, w.Body.String())
		}
	}

	item, err := store.GetItem(context.Background(), "x1")
	if err != nil {
		t.Fatalf("GetItem() error: %v", err)
	}
	if item.Status != models.StatusInProgress {
		t.Errorf("Status = %q, want %q", item.Status, models.StatusInProgress)
	}
}

func TestRouter_ItemWithURLID(t *testing.T) {
	store := newRouterStore(t)
	const id = "https://blog.example.com/posts/42"
	c := models.Classified{
		Item:   models.Item{ID: id, Title: "Feed entry", Link: id},
		Result: models.ClassificationResult{Accepted: true, Reason: "fits"},
	}
	if _, err := store.UpsertItems(context.Background(), "ideas", []models.Classified{c}); err != nil {
		t.Fatalf("UpsertItems() error: %v", err)
	}

	logger, _ := newBufferLogger()
	router := NewRouter(store, &busyTrigger{}, logger)
	path := "/api/items/" + url.PathEscape(id)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: got status %d; body: %s", path, w.Code, w.Body.String())
	}
	var got models.StoredItem
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.ItemID != id {
		t.Errorf("ItemID = %q, want %q", got.ItemID, id)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, path+"/status", bytes.NewBufferString(`{"status":"reviewed"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH %s/status: got status %d; body: %s", path, w.Code, w.Body.String())
	}

	item, err := store.GetItem(context.Background(), id)
	if err != nil {
		t.Fatalf("GetItem() error: %v", err)
	}
	if item.Status != models.StatusReviewed {
		t.Errorf("Status = %q, want %q", item.Status, models.StatusReviewed)
	}
}

func TestRouter_ErrorBodyIsJSON(t *testing.T) {
	logger, _ := newBufferLogger()
	router := NewRouter(newRouterStore(t), &busyTrigger{busy: true}, logger)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cycles", nil))

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] != scheduler.ErrCycleInProgress.Error() {
		t.Errorf("error = %q, want %q", body["error"], scheduler.ErrCycleInProgress.Error())
	}
}
