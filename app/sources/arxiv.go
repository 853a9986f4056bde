package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const arxivBaseURL = "http://export.arxiv.org/api/query"

// Max abstract snippet length in the post text.
const arxivAbstractMaxChars = 500

// ArxivAdapter searches recent papers via the public arXiv API. The API
// returns an Atom feed, parsed with gofeed.
type ArxivAdapter struct {
	client  *Client
	baseURL string
	parser  *gofeed.Parser
}

func NewArxivAdapter(httpClient *http.Client, userAgent string) *ArxivAdapter {
	return &ArxivAdapter{
		client:  NewClient(httpClient, userAgent, time.Second),
		baseURL: arxivBaseURL,
		parser:  gofeed.NewParser(),
	}
}

func (a *ArxivAdapter) Name() string {
	return "arxiv"
}

func (a *ArxivAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := query.SearchTerms()

	var posts []Post
	seen := make(map[string]bool)

	for i, term := range terms {
		slog.Debug("Searching arXiv", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		for _, post := range a.search(ctx, term, min(query.MaxResults, 20)) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	slog.Info("Source fetch completed", "source", "arxiv", "posts", len(posts))
	return posts, nil
}

func (a *ArxivAdapter) search(ctx context.Context, term string, maxResults int) []Post {
	searchURL := fmt.Sprintf(
		"%s?search_query=all:%s&sortBy=submittedDate&sortOrder=descending&max_results=%d",
		a.baseURL, url.QueryEscape(term), maxResults)

	data, err := a.client.Get(ctx, searchURL)
	if err != nil {
		slog.Warn("arXiv request failed", "query", term, "error", err)
		return nil
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Warn("arXiv feed parse failed", "error", err)
		return nil
	}

	return a.normalize(feed)
}

func (a *ArxivAdapter) normalize(feed *gofeed.Feed) []Post {
	var posts []Post
	for _, item := range feed.Items {
		// arXiv titles and abstracts span multiple lines in the feed.
		title := strings.Join(strings.Fields(item.Title), " ")
		abstract := strings.Join(strings.Fields(item.Description), " ")

		snippet := abstract
		if len(abstract) > arxivAbstractMaxChars {
			snippet = abstract[:arxivAbstractMaxChars] + "..."
		}

		// Prefer the abstract page link over the PDF.
		postURL := ""
		for _, link := range item.Links {
			if strings.Contains(link, "/abs/") {
				postURL = link
				break
			}
			if postURL == "" {
				postURL = link
			}
		}
		if postURL == "" {
			postURL = item.GUID
		}

		timestamp := time.Now().UTC()
		if item.PublishedParsed != nil {
			timestamp = item.PublishedParsed.UTC()
		}

		authors := make([]string, 0, len(item.Authors))
		for _, author := range item.Authors {
			if author != nil && author.Name != "" {
				authors = append(authors, author.Name)
			}
		}
		authorStr := "Unknown"
		if len(authors) > 0 {
			authorStr = strings.Join(authors, ", ")
		}

		posts = append(posts, Post{
			Source:    "arxiv",
			Author:    authorStr,
			Text:      title + "\n\n" + snippet,
			URL:       postURL,
			Timestamp: timestamp,
			Score:     0,
			Metadata: map[string]any{
				"arxiv_id":   item.GUID,
				"categories": item.Categories,
				"title":      title,
				"abstract":   abstract,
			},
			ContentHash: NewContentHash("arxiv", postURL, title),
		})
	}
	return posts
}
