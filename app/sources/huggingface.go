package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const hfBaseURL = "https://huggingface.co"

// Tags too generic to be informative in the post text.
var hfNoiseTags = map[string]bool{
	"transformers": true,
	"safetensors":  true,
	"pytorch":      true,
}

// HuggingFaceAdapter searches HuggingFace models, papers, and the daily
// papers listing via the public API.
type HuggingFaceAdapter struct {
	client  *Client
	baseURL string
}

func NewHuggingFaceAdapter(httpClient *http.Client, userAgent string) *HuggingFaceAdapter {
	return &HuggingFaceAdapter{
		client:  NewClient(httpClient, userAgent, time.Second),
		baseURL: hfBaseURL,
	}
}

func (a *HuggingFaceAdapter) Name() string {
	return "huggingface"
}

type hfModel struct {
	ID            string   `json:"id"`
	PipelineTag   string   `json:"pipeline_tag"`
	Tags          []string `json:"tags"`
	Downloads     int      `json:"downloads"`
	Likes         int      `json:"likes"`
	TrendingScore float64  `json:"trendingScore"`
	CreatedAt     string   `json:"createdAt"`
}

type hfPaperEntry struct {
	Title       string  `json:"title"`
	PublishedAt string  `json:"publishedAt"`
	NumComments int     `json:"numComments"`
	Paper       hfPaper `json:"paper"`
}

type hfPaper struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	AISummary   string `json:"ai_summary"`
	PublishedAt string `json:"publishedAt"`
	Upvotes     int    `json:"upvotes"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (a *HuggingFaceAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := hfSearchTerms(query)
	cutoff := query.Cutoff()

	var posts []Post
	seen := make(map[string]bool)
	add := func(batch []Post) {
		for _, post := range batch {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	for i, term := range terms {
		slog.Debug("Searching HuggingFace models", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		add(a.searchModels(ctx, term, query.MaxResults))
	}

	for i, term := range terms {
		slog.Debug("Searching HuggingFace papers", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		add(a.searchPapers(ctx, term, cutoff))
	}

	slog.Debug("Fetching HuggingFace daily papers")
	add(a.fetchDailyPapers(ctx, query.MaxResults, cutoff))

	slog.Info("Source fetch completed", "source", "huggingface", "posts", len(posts))
	return posts, nil
}

// hfSearchTerms splits multi-word terms into individual words; the HF
// search endpoints match better on single tokens.
func hfSearchTerms(query Query) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, segment := range query.SearchTerms() {
		words := strings.Fields(segment)
		if len(words) <= 1 {
			words = []string{segment}
		}
		for _, word := range words {
			if !seen[word] {
				seen[word] = true
				terms = append(terms, word)
			}
		}
	}
	return terms
}

func (a *HuggingFaceAdapter) searchModels(ctx context.Context, term string, limit int) []Post {
	params := url.Values{
		"search":    {term},
		"sort":      {"trendingScore"},
		"direction": {"-1"},
		"limit":     {fmt.Sprintf("%d", min(limit, 50))},
	}
	data, err := a.client.Get(ctx, fmt.Sprintf("%s/api/models?%s", a.baseURL, params.Encode()))
	if err != nil {
		slog.Warn("HuggingFace model search failed", "query", term, "error", err)
		return nil
	}

	var models []hfModel
	if err := json.Unmarshal(data, &models); err != nil {
		slog.Warn("HuggingFace response parse failed", "error", err)
		return nil
	}

	var posts []Post
	for _, item := range models {
		// No cutoff filtering here: trendingScore sort handles recency,
		// and a model created years ago can still be trending today.
		parts := []string{item.ID}
		if item.PipelineTag != "" {
			parts = append(parts, fmt.Sprintf("[%s]", item.PipelineTag))
		}
		var tags []string
		for _, t := range item.Tags {
			if !hfNoiseTags[t] {
				tags = append(tags, t)
			}
			if len(tags) == 5 {
				break
			}
		}
		if len(tags) > 0 {
			parts = append(parts, fmt.Sprintf("(%s)", strings.Join(tags, ", ")))
		}

		author := item.ID
		if idx := strings.Index(item.ID, "/"); idx > 0 {
			author = item.ID[:idx]
		}

		timestamp := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
			timestamp = ts.UTC()
		}

		modelURL := fmt.Sprintf("https://huggingface.co/%s", item.ID)

		posts = append(posts, Post{
			Source:    "huggingface",
			Author:    author,
			Text:      strings.Join(parts, " "),
			URL:       modelURL,
			Timestamp: timestamp,
			Score:     item.Downloads + item.Likes,
			Metadata: map[string]any{
				"type":           "model",
				"pipeline_tag":   item.PipelineTag,
				"downloads":      item.Downloads,
				"likes":          item.Likes,
				"trending_score": item.TrendingScore,
			},
			ContentHash: NewContentHash("huggingface", modelURL, ""),
		})
	}
	return posts
}

func (a *HuggingFaceAdapter) searchPapers(ctx context.Context, term string, cutoff time.Time) []Post {
	data, err := a.client.Get(ctx, fmt.Sprintf("%s/api/papers/search?q=%s", a.baseURL, url.QueryEscape(term)))
	if err != nil {
		slog.Warn("HuggingFace paper search failed", "query", term, "error", err)
		return nil
	}
	return a.parsePapers(data, cutoff, "paper")
}

func (a *HuggingFaceAdapter) fetchDailyPapers(ctx context.Context, limit int, cutoff time.Time) []Post {
	data, err := a.client.Get(ctx, fmt.Sprintf("%s/api/daily_papers?limit=%d", a.baseURL, min(limit, 50)))
	if err != nil {
		slog.Warn("HuggingFace daily papers fetch failed", "error", err)
		return nil
	}
	return a.parsePapers(data, cutoff, "daily_paper")
}

func (a *HuggingFaceAdapter) parsePapers(data []byte, cutoff time.Time, postType string) []Post {
	var entries []hfPaperEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("HuggingFace papers parse failed", "error", err)
		return nil
	}

	var posts []Post
	for _, entry := range entries {
		published := entry.Paper.PublishedAt
		if published == "" {
			published = entry.PublishedAt
		}

		timestamp := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, published); err == nil {
			timestamp = ts.UTC()
			if timestamp.Before(cutoff) {
				continue
			}
		}

		title := entry.Title
		if title == "" {
			title = entry.Paper.Title
		}

		summary := entry.Paper.AISummary
		if summary == "" {
			summary = entry.Paper.Summary
		}
		summary = truncateAtWord(strings.Join(strings.Fields(summary), " "), 500)

		text := title
		if summary != "" {
			text = title + "\n\n" + summary
		}

		author := "unknown"
		if len(entry.Paper.Authors) > 0 && entry.Paper.Authors[0].Name != "" {
			author = entry.Paper.Authors[0].Name
		}

		paperURL := fmt.Sprintf("https://huggingface.co/papers/%s", entry.Paper.ID)

		posts = append(posts, Post{
			Source:    "huggingface",
			Author:    author,
			Text:      text,
			URL:       paperURL,
			Timestamp: timestamp,
			Score:     entry.Paper.Upvotes,
			Metadata: map[string]any{
				"type":         postType,
				"paper_id":     entry.Paper.ID,
				"upvotes":      entry.Paper.Upvotes,
				"num_comments": entry.NumComments,
			},
			ContentHash: NewContentHash("huggingface", paperURL, title),
		})
	}
	return posts
}
