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

	"golang.org/x/text/language"
)

const bskyBaseURL = "https://public.api.bsky.app"

// BlueskyAdapter searches Bluesky's public search endpoint. No auth
// required.
type BlueskyAdapter struct {
	client  *Client
	baseURL string
}

func NewBlueskyAdapter(httpClient *http.Client, userAgent string) *BlueskyAdapter {
	return &BlueskyAdapter{
		client:  NewClient(httpClient, userAgent, time.Second),
		baseURL: bskyBaseURL,
	}
}

func (a *BlueskyAdapter) Name() string {
	return "bluesky"
}

type bskySearchResponse struct {
	Posts []bskyPost `json:"posts"`
}

type bskyPost struct {
	URI    string `json:"uri"`
	Author struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Record struct {
		Text      string   `json:"text"`
		CreatedAt string   `json:"createdAt"`
		Langs     []string `json:"langs"`
	} `json:"record"`
	LikeCount   int `json:"likeCount"`
	RepostCount int `json:"repostCount"`
	ReplyCount  int `json:"replyCount"`
}

func (a *BlueskyAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := query.SearchTerms()
	since := query.Cutoff().Format("2006-01-02T15:04:05Z")
	matcher := newLangMatcher(query.Languages)

	var posts []Post
	seen := make(map[string]bool)

	for i, term := range terms {
		slog.Debug("Searching Bluesky", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		for _, post := range a.search(ctx, term, since, query.MaxResults, matcher) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	slog.Info("Source fetch completed", "source", "bluesky", "posts", len(posts))
	return posts, nil
}

func (a *BlueskyAdapter) search(ctx context.Context, term, since string, limit int, matcher *langMatcher) []Post {
	params := url.Values{
		"q":     {term},
		"limit": {fmt.Sprintf("%d", min(limit, 100))},
		"since": {since},
		"sort":  {"latest"},
	}
	searchURL := fmt.Sprintf("%s/xrpc/app.bsky.feed.searchPosts?%s", a.baseURL, params.Encode())

	data, err := a.client.Get(ctx, searchURL, "Accept", "application/json")
	if err != nil {
		slog.Warn("Bluesky request failed", "query", term, "error", err)
		return nil
	}

	var resp bskySearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("Bluesky response parse failed", "error", err)
		return nil
	}

	return a.normalize(resp, matcher)
}

func (a *BlueskyAdapter) normalize(resp bskySearchResponse, matcher *langMatcher) []Post {
	var posts []Post
	for _, item := range resp.Posts {
		if !matcher.matches(item.Record.Langs) {
			continue
		}

		handle := item.Author.Handle
		if handle == "" {
			handle = "unknown"
		}

		// at://did/app.bsky.feed.post/rkey -> https://bsky.app/profile/handle/post/rkey
		postURL := ""
		if rkey := item.URI[strings.LastIndex(item.URI, "/")+1:]; item.URI != "" && rkey != "" {
			postURL = fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
		}

		timestamp, _ := time.Parse(time.RFC3339, item.Record.CreatedAt)

		posts = append(posts, Post{
			Source:    "bluesky",
			Author:    "@" + handle,
			Text:      item.Record.Text,
			URL:       postURL,
			Timestamp: timestamp.UTC(),
			Score:     item.LikeCount + item.RepostCount,
			Metadata: map[string]any{
				"display_name": item.Author.DisplayName,
				"likes":        item.LikeCount,
				"reposts":      item.RepostCount,
				"replies":      item.ReplyCount,
				"langs":        item.Record.Langs,
			},
			ContentHash: NewContentHash("bluesky", postURL, ""),
		})
	}
	return posts
}

// langMatcher filters posts by the language tags Bluesky records carry.
type langMatcher struct {
	matcher language.Matcher
}

func newLangMatcher(langs []string) *langMatcher {
	if len(langs) == 0 {
		return &langMatcher{}
	}

	var tags []language.Tag
	for _, l := range langs {
		tag, err := language.Parse(l)
		if err != nil {
			slog.Warn("Ignoring invalid language tag", "tag", l, "error", err)
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return &langMatcher{}
	}

	return &langMatcher{matcher: language.NewMatcher(tags)}
}

// matches reports whether any of the post's language tags is acceptably
// close to a configured language. Posts without language tags pass.
func (m *langMatcher) matches(postLangs []string) bool {
	if m.matcher == nil || len(postLangs) == 0 {
		return true
	}

	for _, l := range postLangs {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		if _, _, conf := m.matcher.Match(tag); conf >= language.High {
			return true
		}
	}
	return false
}
