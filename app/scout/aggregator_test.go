package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avoronov/xscout/app/profile"
	"github.com/avoronov/xscout/app/sources"
)

func TestDedupe(t *testing.T) {
	hashA := sources.NewContentHash("reddit", "https://example.com/a", "A")
	hashB := sources.NewContentHash("hackernews", "https://example.com/b", "B")

	posts := []sources.Post{
		{Source: "reddit", URL: "https://example.com/a", ContentHash: hashA},
		{Source: "hackernews", URL: "https://example.com/b", ContentHash: hashB},
		{Source: "reddit", URL: "https://example.com/a", ContentHash: hashA},
	}

	deduped := dedupe(posts)
	if len(deduped) != 2 {
		t.Fatalf("Expected 2 posts after dedupe, got %d", len(deduped))
	}

	// First occurrence wins, order preserved
	if deduped[0].ContentHash != hashA || deduped[1].ContentHash != hashB {
		t.Error("Expected original order preserved")
	}
}

func TestDedupeKeepsHashlessPosts(t *testing.T) {
	posts := []sources.Post{
		{Source: "a", URL: "https://example.com/1"},
		{Source: "b", URL: "https://example.com/2"},
	}

	if got := dedupe(posts); len(got) != 2 {
		t.Errorf("Expected posts without hashes kept, got %d", len(got))
	}
}

func TestPayloadJSON(t *testing.T) {
	payload := &Payload{
		PulledAt:      time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		LookbackHours: 24,
		Topic:         "local llm",
		SourceCounts:  map[string]int{"reddit": 1},
		Posts: []sources.Post{
			{
				Source:      "reddit",
				Author:      "u/someone",
				Text:        "hello",
				URL:         "https://example.com",
				Timestamp:   time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC),
				Score:       5,
				ContentHash: "hash-round-trip",
			},
		},
	}

	rendered, err := payload.JSON()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(rendered, `"topic": "local llm"`) {
		t.Error("Expected topic in rendered JSON")
	}
	if !strings.Contains(rendered, `"content_hash": "hash-round-trip"`) {
		t.Error("Expected content hash in rendered JSON")
	}

	var decoded Payload
	if err := json.Unmarshal([]byte(rendered), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Topic != payload.Topic || len(decoded.Posts) != 1 {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
	// Saved payloads must keep post identity for replayed runs.
	if decoded.Posts[0].ContentHash != "hash-round-trip" {
		t.Errorf("Expected content hash to survive the round trip, got '%s'", decoded.Posts[0].ContentHash)
	}
}

func TestLoadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")

	content := `{
		"pulled_at": "2026-08-28T12:00:00Z",
		"lookback_hours": 24,
		"topic": "local llm",
		"source_counts": {"hackernews": 1},
		"posts": [
			{"source": "hackernews", "author": "pg", "text": "story",
			 "url": "https://news.ycombinator.com/item?id=1",
			 "timestamp": "2026-08-28T11:00:00Z", "score": 10}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	payload, err := LoadPayload(path)
	if err != nil {
		t.Fatal(err)
	}

	if payload.Topic != "local llm" {
		t.Errorf("Expected topic 'local llm', got '%s'", payload.Topic)
	}
	if len(payload.Posts) != 1 || payload.Posts[0].Author != "pg" {
		t.Errorf("Unexpected posts: %+v", payload.Posts)
	}
	if payload.SourceCounts["hackernews"] != 1 {
		t.Errorf("Unexpected source counts: %v", payload.SourceCounts)
	}
}

func TestLoadPayloadMissingFile(t *testing.T) {
	if _, err := LoadPayload(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadPayloadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPayload(path); err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
}

type stubAdapter struct {
	name  string
	posts []sources.Post
	err   error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, query sources.Query) ([]sources.Post, error) {
	return s.posts, s.err
}

func newStubAggregator(stubs map[string]*stubAdapter) *Aggregator {
	agg := NewAggregator(nil, "test")
	agg.newAdapter = func(name string, _ *http.Client, _ string) (sources.Adapter, error) {
		stub, ok := stubs[name]
		if !ok {
			return nil, fmt.Errorf("unknown source '%s'", name)
		}
		return stub, nil
	}
	return agg
}

func testProfile(enabled []string) *profile.Profile {
	return &profile.Profile{
		Topic:   "local llm",
		Sources: profile.Sources{Enabled: enabled},
		Settings: profile.Settings{
			LookbackHours: 24,
			MaxResults:    20,
			MaxTotal:      150,
		},
	}
}

func TestAggregatorRun(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sharedHash := sources.NewContentHash("reddit", "https://example.com/story", "Story")

	stubs := map[string]*stubAdapter{
		"reddit": {name: "reddit", posts: []sources.Post{
			{Source: "reddit", URL: "https://example.com/story", Timestamp: base.Add(-2 * time.Hour), ContentHash: sharedHash},
			{Source: "reddit", URL: "https://example.com/old", Timestamp: base.Add(-5 * time.Hour),
				ContentHash: sources.NewContentHash("reddit", "https://example.com/old", "Old")},
		}},
		"hackernews": {name: "hackernews", posts: []sources.Post{
			{Source: "hackernews", URL: "https://example.com/fresh", Timestamp: base.Add(-1 * time.Hour),
				ContentHash: sources.NewContentHash("hackernews", "https://example.com/fresh", "Fresh")},
			{Source: "hackernews", URL: "https://example.com/story", Timestamp: base.Add(-3 * time.Hour), ContentHash: sharedHash},
		}},
		"lobsters": {name: "lobsters", err: fmt.Errorf("service unavailable")},
	}

	agg := newStubAggregator(stubs)
	payload, err := agg.Run(context.Background(), testProfile([]string{"reddit", "hackernews", "lobsters"}), nil)
	if err != nil {
		t.Fatal(err)
	}

	if payload.Topic != "local llm" {
		t.Errorf("Expected topic 'local llm', got '%s'", payload.Topic)
	}
	if payload.LookbackHours != 24 {
		t.Errorf("Expected lookback 24, got %d", payload.LookbackHours)
	}

	// Counts are per source as fetched; a failing source contributes none.
	if payload.SourceCounts["reddit"] != 2 || payload.SourceCounts["hackernews"] != 2 {
		t.Errorf("Unexpected source counts: %v", payload.SourceCounts)
	}
	if _, ok := payload.SourceCounts["lobsters"]; ok {
		t.Error("Expected failing source absent from counts")
	}

	// The shared story appears once, and posts come back newest first.
	if len(payload.Posts) != 3 {
		t.Fatalf("Expected 3 posts after dedupe, got %d", len(payload.Posts))
	}
	expected := []string{
		"https://example.com/fresh",
		"https://example.com/story",
		"https://example.com/old",
	}
	for i, url := range expected {
		if payload.Posts[i].URL != url {
			t.Errorf("Expected '%s' at position %d, got '%s'", url, i, payload.Posts[i].URL)
		}
	}
}

func TestAggregatorRunCapsTotal(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	var posts []sources.Post
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://example.com/%d", i)
		posts = append(posts, sources.Post{
			Source:      "hackernews",
			URL:         url,
			Timestamp:   base.Add(-time.Duration(i) * time.Hour),
			ContentHash: sources.NewContentHash("hackernews", url, ""),
		})
	}

	agg := newStubAggregator(map[string]*stubAdapter{
		"hackernews": {name: "hackernews", posts: posts},
	})

	prof := testProfile([]string{"hackernews"})
	prof.Settings.MaxTotal = 3

	payload, err := agg.Run(context.Background(), prof, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(payload.Posts) != 3 {
		t.Fatalf("Expected payload capped at 3 posts, got %d", len(payload.Posts))
	}
	// Newest posts survive the cap.
	if payload.Posts[0].URL != "https://example.com/0" || payload.Posts[2].URL != "https://example.com/2" {
		t.Errorf("Expected newest posts kept, got %v", payload.Posts)
	}
}

func TestAggregatorRunUnknownSource(t *testing.T) {
	agg := NewAggregator(nil, "test")
	if _, err := agg.Run(context.Background(), testProfile([]string{"nope"}), nil); err == nil {
		t.Fatal("Expected error for unknown source")
	}
}

func TestAggregatorRunSourceOverride(t *testing.T) {
	stubs := map[string]*stubAdapter{
		"arxiv": {name: "arxiv", posts: []sources.Post{
			{Source: "arxiv", URL: "https://arxiv.org/abs/2608.00001",
				Timestamp: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)},
		}},
	}

	agg := newStubAggregator(stubs)
	payload, err := agg.Run(context.Background(), testProfile([]string{"reddit"}), []string{"arxiv"})
	if err != nil {
		t.Fatal(err)
	}

	if payload.SourceCounts["arxiv"] != 1 {
		t.Errorf("Expected override source fetched, got %v", payload.SourceCounts)
	}
	if _, ok := payload.SourceCounts["reddit"]; ok {
		t.Error("Expected profile sources skipped when overridden")
	}
}
