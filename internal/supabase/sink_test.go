package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hoanghai1803/threadscout/internal/models"
)

func TestNewSink_RequiresCredentials(t *testing.T) {
	if _, err := NewSink("", "key", "", nil); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewSink("https://x.supabase.co", "", "", nil); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestSinkUpsert(t *testing.T) {
	var (
		gotPath   string
		gotQuery  string
		gotHeader http.Header
		gotRows   []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotRows); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink, err := NewSink(srv.URL+"/", "anon-key", "", srv.Client())
	if err != nil {
		t.Fatalf("NewSink() error: %v", err)
	}
	sink.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }

	raw := `{"viable":true}`
	published := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	batch := []models.Classified{{
		Item: models.Item{
			ID: "abc", SourceTag: "SaaS", Title: "Need a CRM",
			Link: "https://www.reddit.com/r/SaaS/comments/abc", PublishedAt: &published,
			Body: "body text",
		},
		Result: models.ClassificationResult{
			Accepted: true, Reason: "clear pain",
			Extra:       map[string]any{"complexity": "simple", "tech_stack_ideas": []string{"Go"}},
			RawResponse: &raw,
		},
	}}

	n, err := sink.Upsert(context.Background(), batch)
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Upsert() = %d, want 1", n)
	}

	if gotPath != "/rest/v1/reddit_feeds" {
		t.Errorf("path = %q, want /rest/v1/reddit_feeds", gotPath)
	}
	if gotQuery != "on_conflict=item_id" {
		t.Errorf("query = %q, want on_conflict=item_id", gotQuery)
	}
	if gotHeader.Get("apikey") != "anon-key" {
		t.Errorf("apikey header = %q", gotHeader.Get("apikey"))
	}
	if gotHeader.Get("Authorization") != "Bearer anon-key" {
		t.Errorf("Authorization header = %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get("Prefer") != "resolution=ignore-duplicates,return=minimal" {
		t.Errorf("Prefer header = %q", gotHeader.Get("Prefer"))
	}

	if len(gotRows) != 1 {
		t.Fatalf("got %d rows, want 1", len(gotRows))
	}
	r := gotRows[0]
	checks := map[string]any{
		"item_id":          "abc",
		"feed_title":       "SaaS",
		"title":            "Need a CRM",
		"pub_date":         "2026-01-31T08:00:00Z",
		"content":          "body text",
		"llm_viable":       true,
		"llm_reason":       "clear pain",
		"llm_complexity":   "simple",
		"llm_tech_stack":   `["Go"]`,
		"llm_raw_response": raw,
		"status":           "new",
		"created_at":       "2026-02-01T12:00:00Z",
	}
	for k, want := range checks {
		if r[k] != want {
			t.Errorf("row[%q] = %v, want %v", k, r[k], want)
		}
	}
	if r["author"] != nil {
		t.Errorf("row[author] = %v, want null", r["author"])
	}
}

func TestSinkUpsert_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sink, err := NewSink(srv.URL, "bad", "leads", srv.Client())
	if err != nil {
		t.Fatalf("NewSink() error: %v", err)
	}

	_, err = sink.Upsert(context.Background(), []models.Classified{{Item: models.Item{ID: "x"}}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSinkUpsert_EmptyBatch(t *testing.T) {
	sink, err := NewSink("http://127.0.0.1:1", "key", "", nil)
	if err != nil {
		t.Fatalf("NewSink() error: %v", err)
	}
	n, err := sink.Upsert(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("Upsert(nil) = %d, %v; want 0, nil", n, err)
	}
}
