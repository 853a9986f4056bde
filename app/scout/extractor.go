package scout

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"

	"github.com/avoronov/xscout/app/sources"
)

// Cap on extracted article text attached to a post.
const extractedSnippetMaxChars = 1500

// Cap on outbound article fetches per run; extraction is enrichment, not
// a crawl.
const maxExtractionsPerRun = 10

// Extractor enriches link posts with readable article text. Posts whose
// metadata carries a story URL (HackerNews, Lobsters, Reddit link posts)
// get the extracted body attached so the model sees more than a headline.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{httpClient: httpClient, userAgent: userAgent}
}

// Run extracts article content in place for the first link posts in the
// slice; callers pass posts newest first, so the most recent links get
// enriched. Failures are logged per post and never abort the run.
func (e *Extractor) Run(ctx context.Context, posts []sources.Post) {
	extracted := 0
	for i := range posts {
		if extracted >= maxExtractionsPerRun {
			return
		}

		storyURL := linkURL(posts[i])
		if storyURL == "" {
			continue
		}

		content, err := e.extract(ctx, storyURL)
		if err != nil {
			slog.Debug("Content extraction failed", "url", storyURL, "error", err)
			continue
		}

		posts[i].Metadata["extracted_content"] = content
		extracted++
	}
}

func (e *Extractor) extract(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("no content extracted from page")
	}

	if len(text) > extractedSnippetMaxChars {
		if idx := strings.LastIndex(text[:extractedSnippetMaxChars], " "); idx > 0 {
			text = text[:idx]
		} else {
			text = text[:extractedSnippetMaxChars]
		}
		text += "..."
	}

	return text, nil
}

// linkURL returns the outbound article URL a post points at, if any.
func linkURL(post sources.Post) string {
	if post.Metadata == nil {
		return ""
	}
	for _, key := range []string{"story_url", "link_url"} {
		if raw, ok := post.Metadata[key].(string); ok && strings.HasPrefix(raw, "http") {
			return raw
		}
	}
	return ""
}
