package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHackerNewsFetch(t *testing.T) {
	now := time.Now().Unix()

	storyJSON := fmt.Sprintf(`{"hits": [
		{"objectID": "100", "title": "Show HN: Fast local inference", "url": "https://example.com/infer",
		 "author": "pg", "points": 250, "num_comments": 80, "created_at_i": %d}
	]}`, now)
	commentJSON := fmt.Sprintf(`{"hits": [
		{"objectID": "200", "comment_text": "We switched to GGUF and never looked back.",
		 "author": "tptacek", "points": 0, "created_at_i": %d, "story_id": 100,
		 "story_title": "Show HN: Fast local inference"}
	]}`, now)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tags") == "comment" {
			w.Write([]byte(commentJSON))
			return
		}
		w.Write([]byte(storyJSON))
	}))
	defer server.Close()

	adapter := NewHackerNewsAdapter(server.Client(), "test")
	adapter.baseURL = server.URL

	posts, err := adapter.Fetch(context.Background(), Query{
		Topic:      "local inference",
		Lookback:   24 * time.Hour,
		MaxResults: 20,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The story appears in both search and search_by_date but is
	// deduplicated; the comment is kept separately
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	story := posts[0]
	if story.URL != "https://news.ycombinator.com/item?id=100" {
		t.Errorf("Unexpected story URL: %s", story.URL)
	}
	if story.Author != "pg" {
		t.Errorf("Expected author 'pg', got '%s'", story.Author)
	}
	if story.Score != 250 {
		t.Errorf("Expected score 250, got %d", story.Score)
	}
	if !strings.Contains(story.Text, "https://example.com/infer") {
		t.Errorf("Expected story URL in text, got '%s'", story.Text)
	}
	if story.Metadata["story_url"] != "https://example.com/infer" {
		t.Errorf("Expected story_url metadata, got %v", story.Metadata["story_url"])
	}

	comment := posts[1]
	if comment.Metadata["type"] != "comment" {
		t.Errorf("Expected comment type metadata, got %v", comment.Metadata["type"])
	}
	if !strings.Contains(comment.Text, "[Comment on: Show HN: Fast local inference]") {
		t.Errorf("Expected story title prefix in comment text, got '%s'", comment.Text)
	}
	if comment.Metadata["story_id"] != "100" {
		t.Errorf("Expected story_id '100', got %v", comment.Metadata["story_id"])
	}
}

func TestHackerNewsMaxResults(t *testing.T) {
	now := time.Now().Unix()
	var hits []string
	for i := 0; i < 10; i++ {
		hits = append(hits, fmt.Sprintf(
			`{"objectID": "%d", "title": "Story %d", "author": "a", "created_at_i": %d}`, i, i, now))
	}
	response := `{"hits": [` + strings.Join(hits, ",") + `]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tags") == "comment" {
			w.Write([]byte(`{"hits": []}`))
			return
		}
		w.Write([]byte(response))
	}))
	defer server.Close()

	adapter := NewHackerNewsAdapter(server.Client(), "test")
	adapter.baseURL = server.URL

	posts, err := adapter.Fetch(context.Background(), Query{
		Topic:      "test",
		Lookback:   24 * time.Hour,
		MaxResults: 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(posts) != 5 {
		t.Errorf("Expected posts capped at 5, got %d", len(posts))
	}
}
