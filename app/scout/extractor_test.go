package scout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avoronov/xscout/app/sources"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Quantization in Practice</title></head>
<body>
<article>
<h1>Quantization in Practice</h1>
<p>Quantization reduces the precision of model weights so that large language
models fit into the memory of consumer hardware. The most common schemes store
weights in four or eight bits instead of sixteen, trading a small amount of
accuracy for a large reduction in footprint.</p>
<p>In this article we walk through the practical steps of quantizing a seven
billion parameter model, measuring perplexity at each stage, and comparing the
output quality of the resulting variants on a set of reasoning benchmarks.</p>
<p>The results show that careful calibration matters far more than the raw bit
width. A well calibrated four bit model routinely outperforms a naively
converted eight bit one across every benchmark in our suite.</p>
</article>
</body>
</html>`

func TestExtractorRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	posts := []sources.Post{
		{
			Source:   "hackernews",
			Text:     "Quantization in Practice",
			URL:      "https://news.ycombinator.com/item?id=1",
			Metadata: map[string]any{"story_url": server.URL + "/article"},
		},
		{
			Source:   "reddit",
			Text:     "Self post without a link",
			URL:      "https://www.reddit.com/r/test/comments/1/",
			Metadata: map[string]any{"is_self": true},
		},
	}

	extractor := NewExtractor(server.Client(), "test")
	extractor.Run(context.Background(), posts)

	content, ok := posts[0].Metadata["extracted_content"].(string)
	if !ok || content == "" {
		t.Fatal("Expected extracted content on the link post")
	}
	if !strings.Contains(content, "Quantization reduces the precision") {
		t.Errorf("Expected article body in extracted content, got: %s", content)
	}
	if len(content) > extractedSnippetMaxChars+3 {
		t.Errorf("Expected content capped at %d chars, got %d", extractedSnippetMaxChars, len(content))
	}

	if _, ok := posts[1].Metadata["extracted_content"]; ok {
		t.Error("Expected no extraction for posts without a link URL")
	}
}

func TestExtractorSkipsFailedFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	posts := []sources.Post{
		{
			Source:   "lobsters",
			URL:      "https://lobste.rs/s/abc",
			Metadata: map[string]any{"story_url": server.URL + "/gone"},
		},
	}

	extractor := NewExtractor(server.Client(), "test")
	extractor.Run(context.Background(), posts)

	if _, ok := posts[0].Metadata["extracted_content"]; ok {
		t.Error("Expected no content for a 404 page")
	}
}

func TestLinkURL(t *testing.T) {
	tests := []struct {
		name     string
		post     sources.Post
		expected string
	}{
		{"story url", sources.Post{Metadata: map[string]any{"story_url": "https://example.com/a"}}, "https://example.com/a"},
		{"link url", sources.Post{Metadata: map[string]any{"link_url": "http://example.com/b"}}, "http://example.com/b"},
		{"non-http value", sources.Post{Metadata: map[string]any{"story_url": "ftp://example.com"}}, ""},
		{"no metadata", sources.Post{}, ""},
		{"wrong type", sources.Post{Metadata: map[string]any{"story_url": 42}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := linkURL(tt.post); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
