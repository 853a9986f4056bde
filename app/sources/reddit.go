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

const redditBaseURL = "https://www.reddit.com"

// Unauthenticated requests get roughly 10/min before Reddit starts
// returning 429s.
const redditMinInterval = 6500 * time.Millisecond

// defaultSubreddits are searched in addition to r/all when the query
// does not carry its own subreddit list.
var defaultSubreddits = []string{
	"StableDiffusion",
	"LocalLLaMA",
	"comfyui",
	"sdforall",
}

// RedditAdapter searches Reddit's public JSON API. No auth required.
type RedditAdapter struct {
	client  *Client
	baseURL string
}

func NewRedditAdapter(httpClient *http.Client, userAgent string) *RedditAdapter {
	return &RedditAdapter{
		client:  NewClient(httpClient, userAgent, redditMinInterval),
		baseURL: redditBaseURL,
	}
}

func (a *RedditAdapter) Name() string {
	return "reddit"
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	Subreddit   string  `json:"subreddit"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	IsSelf      bool    `json:"is_self"`
}

func (a *RedditAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := query.SearchTerms()
	timeFilter := redditTimeFilter(query.Lookback)
	subreddits := query.Subreddits
	if len(subreddits) == 0 {
		subreddits = defaultSubreddits
	}

	var posts []Post
	seen := make(map[string]bool)

	// Search across all of Reddit first, then the configured subreddits
	// with the primary term.
	for i, term := range terms {
		slog.Debug("Searching Reddit", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "scope", "r/all", "query", term)
		for _, post := range a.search(ctx, "", term, timeFilter, query.MaxResults) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	if len(terms) > 0 {
		for _, sub := range subreddits {
			slog.Debug("Searching Reddit", "scope", "r/"+sub, "query", terms[0])
			for _, post := range a.search(ctx, sub, terms[0], timeFilter, query.MaxResults) {
				if !seen[post.URL] {
					seen[post.URL] = true
					posts = append(posts, post)
				}
			}
		}
	}

	slog.Info("Source fetch completed", "source", "reddit", "posts", len(posts))
	return posts, nil
}

func (a *RedditAdapter) search(ctx context.Context, subreddit, term, timeFilter string, limit int) []Post {
	params := url.Values{
		"q":     {term},
		"sort":  {"new"},
		"t":     {timeFilter},
		"limit": {fmt.Sprintf("%d", min(limit, 100))},
	}

	var searchURL string
	if subreddit == "" {
		searchURL = fmt.Sprintf("%s/search.json?%s", a.baseURL, params.Encode())
	} else {
		params.Set("restrict_sr", "on")
		searchURL = fmt.Sprintf("%s/r/%s/search.json?%s", a.baseURL, subreddit, params.Encode())
	}

	data, err := a.client.Get(ctx, searchURL)
	if err != nil {
		slog.Warn("Reddit request failed", "url", searchURL, "error", err)
		return nil
	}

	var listing redditListing
	if err := json.Unmarshal(data, &listing); err != nil {
		slog.Warn("Reddit response parse failed", "error", err)
		return nil
	}

	return a.normalize(listing)
}

func (a *RedditAdapter) normalize(listing redditListing) []Post {
	var posts []Post
	for _, child := range listing.Data.Children {
		item := child.Data
		if item.Title == "" && item.Selftext == "" {
			continue
		}

		text := item.Title
		if item.Selftext != "" {
			text = item.Title + "\n\n" + item.Selftext
		}

		author := item.Author
		if author == "" {
			author = "[deleted]"
		}

		postURL := ""
		if item.Permalink != "" {
			postURL = redditBaseURL + item.Permalink
		}

		posts = append(posts, Post{
			Source:    "reddit",
			Author:    "u/" + author,
			Text:      text,
			URL:       postURL,
			Timestamp: time.Unix(int64(item.CreatedUTC), 0).UTC(),
			Score:     item.Score,
			Metadata: map[string]any{
				"subreddit":    item.Subreddit,
				"num_comments": item.NumComments,
				"upvote_ratio": item.UpvoteRatio,
				"is_self":      item.IsSelf,
				"link_url":     item.URL,
			},
			ContentHash: NewContentHash("reddit", postURL, item.Title),
		})
	}
	return posts
}

// redditTimeFilter maps a lookback window to Reddit's t= parameter.
func redditTimeFilter(lookback time.Duration) string {
	switch {
	case lookback <= 24*time.Hour:
		return "day"
	case lookback <= 168*time.Hour:
		return "week"
	default:
		return "month"
	}
}
