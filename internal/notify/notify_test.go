package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hoanghai1803/threadscout/internal/models"
)

func outreachMatch() models.Classified {
	return models.Classified{
		Item: models.Item{
			ID:          "t3_abc",
			SourceTag:   "productivity",
			Title:       "How do you keep track of ideas?",
			Link:        "https://www.reddit.com/r/productivity/comments/abc",
			BodySnippet: "line one\nline two",
		},
		Result: models.ClassificationResult{
			Accepted: true,
			Reason:   "asks for a tool",
			Extra:    map[string]any{"suggested_angle": "share your notes workflow"},
		},
	}
}

func TestSlackNotify(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s, err := NewSlack(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewSlack() error: %v", err)
	}
	if err := s.Notify(context.Background(), outreachMatch()); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatalf("blocks missing: %v", got)
	}
	var types []string
	var texts []string
	for _, b := range blocks {
		m := b.(map[string]any)
		types = append(types, m["type"].(string))
		if txt, ok := m["text"].(map[string]any); ok {
			texts = append(texts, txt["text"].(string))
		}
	}

	wantTypes := []string{"header", "section", "section", "section", "section", "actions", "divider"}
	if strings.Join(types, ",") != strings.Join(wantTypes, ",") {
		t.Errorf("block types = %v, want %v", types, wantTypes)
	}
	wantTexts := []string{
		"r/productivity",
		"*<https://www.reddit.com/r/productivity/comments/abc|How do you keep track of ideas?>*",
		"> line one\n> line two",
		"*Suggested angle:* share your notes workflow",
		"*Why:* asks for a tool",
	}
	for i, want := range wantTexts {
		if i >= len(texts) || texts[i] != want {
			t.Errorf("texts = %q, want %q", texts, wantTexts)
			break
		}
	}
}

func TestSlackMessage_SnippetTruncatedAndAngleOptional(t *testing.T) {
	c := outreachMatch()
	c.Item.BodySnippet = ""
	c.Item.Body = strings.Repeat("x", 400)
	c.Result.Extra = nil

	msg := slackMessageFor(c)
	for _, b := range msg.Blocks {
		if b.Text == nil {
			continue
		}
		if strings.HasPrefix(b.Text.Text, "*Suggested angle:*") {
			t.Error("unexpected suggested angle block")
		}
		if strings.HasPrefix(b.Text.Text, "> ") && len(b.Text.Text) != 2+slackSnippetChars {
			t.Errorf("snippet length = %d, want %d", len(b.Text.Text)-2, slackSnippetChars)
		}
	}
}

func TestSlackNotify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	s, err := NewSlack(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewSlack() error: %v", err)
	}
	if err := s.Notify(context.Background(), outreachMatch()); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestNewSlack_RequiresURL(t *testing.T) {
	if _, err := NewSlack("", nil); err == nil {
		t.Error("expected error for empty webhook url")
	}
}

func TestTelegramNotify(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error: %v", err)
		}
		gotForm = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram("123:abc", "-100", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewTelegram() error: %v", err)
	}
	if err := tg.Notify(context.Background(), outreachMatch()); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotForm["chat_id"] != "-100" {
		t.Errorf("chat_id = %q, want -100", gotForm["chat_id"])
	}
	if gotForm["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %q, want Markdown", gotForm["parse_mode"])
	}
	for _, want := range []string{"*r/productivity*", "[How do you keep track of ideas?](https://www.reddit.com/r/productivity/comments/abc)", "*Why:* asks for a tool"} {
		if !strings.Contains(gotForm["text"], want) {
			t.Errorf("text %q missing %q", gotForm["text"], want)
		}
	}
}

func TestTelegramNotify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tg, err := NewTelegram("tok", "chat", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewTelegram() error: %v", err)
	}
	if err := tg.Notify(context.Background(), outreachMatch()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestTelegramText_EscapesMarkdown(t *testing.T) {
	c := outreachMatch()
	c.Item.SourceTag = "side_project"
	c.Result.Reason = "uses *bold* claims"

	text := telegramText(c)
	if !strings.Contains(text, `r/side\_project`) {
		t.Errorf("text %q does not escape underscore", text)
	}
	if !strings.Contains(text, `uses \*bold\* claims`) {
		t.Errorf("text %q does not escape asterisks", text)
	}
}
