package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const hnBaseURL = "https://hn.algolia.com/api/v1"

// HackerNewsAdapter searches the free Algolia HN Search API. No auth
// required.
type HackerNewsAdapter struct {
	client  *Client
	baseURL string
}

func NewHackerNewsAdapter(httpClient *http.Client, userAgent string) *HackerNewsAdapter {
	return &HackerNewsAdapter{
		client:  NewClient(httpClient, userAgent, 0),
		baseURL: hnBaseURL,
	}
}

func (a *HackerNewsAdapter) Name() string {
	return "hackernews"
}

type hnSearchResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
	StoryID     int64  `json:"story_id"`
	StoryTitle  string `json:"story_title"`
}

func (a *HackerNewsAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	cutoff := query.Cutoff().Unix()
	terms := query.SearchTerms()

	seen := make(map[string]bool)
	var posts []Post

	for i, term := range terms {
		slog.Debug("Searching HackerNews", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)

		// Relevance-sorted stories, date-sorted stories (catches very
		// recent submissions the relevance index lags on), and comments.
		storyHits := a.search(ctx, "search", term, "story", cutoff, 20)
		recentHits := a.search(ctx, "search_by_date", term, "story", cutoff, 20)
		commentHits := a.search(ctx, "search", term, "comment", cutoff, 50)

		for _, hit := range append(storyHits, recentHits...) {
			if hit.ObjectID == "" || seen[hit.ObjectID] {
				continue
			}
			seen[hit.ObjectID] = true
			posts = append(posts, a.storyToPost(hit))
		}

		for _, hit := range commentHits {
			id := "comment-" + hit.ObjectID
			if hit.ObjectID == "" || seen[id] {
				continue
			}
			seen[id] = true
			posts = append(posts, a.commentToPost(hit))
		}
	}

	if query.MaxResults > 0 && len(posts) > query.MaxResults {
		posts = posts[:query.MaxResults]
	}

	slog.Info("Source fetch completed", "source", "hackernews", "posts", len(posts))
	return posts, nil
}

func (a *HackerNewsAdapter) search(ctx context.Context, endpoint, term, tags string, cutoff int64, hitsPerPage int) []hnHit {
	params := url.Values{
		"query":          {term},
		"tags":           {tags},
		"numericFilters": {fmt.Sprintf("created_at_i>%d", cutoff)},
		"hitsPerPage":    {fmt.Sprintf("%d", hitsPerPage)},
	}
	searchURL := fmt.Sprintf("%s/%s?%s", a.baseURL, endpoint, params.Encode())

	data, err := a.client.Get(ctx, searchURL)
	if err != nil {
		slog.Warn("HackerNews request failed", "endpoint", endpoint, "error", err)
		return nil
	}

	var resp hnSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("HackerNews response parse failed", "error", err)
		return nil
	}
	return resp.Hits
}

func (a *HackerNewsAdapter) storyToPost(hit hnHit) Post {
	body := hit.StoryText
	if body == "" {
		body = hit.URL
	}

	text := hit.Title
	if body != "" {
		text = hit.Title + "\n" + body
	}

	itemURL := fmt.Sprintf("https://news.ycombinator.com/item?id=%s", hit.ObjectID)

	return Post{
		Source:    "hackernews",
		Author:    hit.Author,
		Text:      text,
		URL:       itemURL,
		Timestamp: time.Unix(hit.CreatedAtI, 0).UTC(),
		Score:     hit.Points,
		Metadata: map[string]any{
			"title":        hit.Title,
			"num_comments": hit.NumComments,
			"story_url":    hit.URL,
		},
		ContentHash: NewContentHash("hackernews", itemURL, hit.Title),
	}
}

func (a *HackerNewsAdapter) commentToPost(hit hnHit) Post {
	text := hit.CommentText
	if hit.StoryTitle != "" {
		text = fmt.Sprintf("[Comment on: %s]\n%s", hit.StoryTitle, hit.CommentText)
	}

	itemURL := fmt.Sprintf("https://news.ycombinator.com/item?id=%s", hit.ObjectID)

	storyID := ""
	if hit.StoryID != 0 {
		storyID = fmt.Sprintf("%d", hit.StoryID)
	}

	return Post{
		Source:    "hackernews",
		Author:    hit.Author,
		Text:      text,
		URL:       itemURL,
		Timestamp: time.Unix(hit.CreatedAtI, 0).UTC(),
		Score:     hit.Points,
		Metadata: map[string]any{
			"type":        "comment",
			"story_id":    storyID,
			"story_title": hit.StoryTitle,
		},
		ContentHash: NewContentHash("hackernews", itemURL, ""),
	}
}
