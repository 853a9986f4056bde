package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
)

const lobstersBaseURL = "https://lobste.rs"

// Lobsters is a small site, keep request rate low.
const lobstersMinInterval = 2 * time.Second

var lobstersWordRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Words too generic to be useful as Lobsters tags.
var lobstersStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true,
	"about": true, "from": true, "that": true, "this": true,
}

// LobstersAdapter fetches stories from Lobsters' public JSON endpoints.
// There is no search API, so it combines tag pages with a keyword scan
// over the newest pages.
type LobstersAdapter struct {
	client  *Client
	baseURL string
}

func NewLobstersAdapter(httpClient *http.Client, userAgent string) *LobstersAdapter {
	return &LobstersAdapter{
		client:  NewClient(httpClient, userAgent, lobstersMinInterval),
		baseURL: lobstersBaseURL,
	}
}

func (a *LobstersAdapter) Name() string {
	return "lobsters"
}

type lobstersStory struct {
	ShortID          string   `json:"short_id"`
	ShortIDURL       string   `json:"short_id_url"`
	CreatedAt        string   `json:"created_at"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Score            int      `json:"score"`
	CommentCount     int      `json:"comment_count"`
	DescriptionPlain string   `json:"description_plain"`
	CommentsURL      string   `json:"comments_url"`
	SubmitterUser    string   `json:"submitter_user"`
	UserIsAuthor     bool     `json:"user_is_author"`
	Tags             []string `json:"tags"`
}

func (a *LobstersAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := query.SearchTerms()
	cutoff := query.Cutoff()

	var posts []Post
	seen := make(map[string]bool)

	// Tag pages are the most reliable way to slice Lobsters by topic.
	for _, tag := range extractTags(terms) {
		slog.Debug("Fetching Lobsters tag", "tag", tag)
		for _, post := range a.fetchByTag(ctx, tag, cutoff, query.MaxResults) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	// Newest pages filtered by keyword catch stories tagged differently.
	if keywords := extractKeywords(terms); len(keywords) > 0 {
		slog.Debug("Scanning Lobsters newest", "keywords", keywords)
		for _, post := range a.fetchNewestFiltered(ctx, keywords, cutoff, query.MaxResults, 4) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	slog.Info("Source fetch completed", "source", "lobsters", "posts", len(posts))
	return posts, nil
}

func (a *LobstersAdapter) fetchByTag(ctx context.Context, tag string, cutoff time.Time, maxResults int) []Post {
	var posts []Post
	for page := 1; page <= 3; page++ {
		pageURL := fmt.Sprintf("%s/t/%s.json", a.baseURL, tag)
		if page > 1 {
			pageURL = fmt.Sprintf("%s/t/%s/page/%d.json", a.baseURL, tag, page)
		}

		stories := a.fetchStories(ctx, pageURL)
		if len(stories) == 0 {
			break
		}

		pagePosts, hitCutoff := a.normalize(stories, cutoff)
		posts = append(posts, pagePosts...)

		if hitCutoff || len(posts) >= maxResults {
			break
		}
	}

	if maxResults > 0 && len(posts) > maxResults {
		posts = posts[:maxResults]
	}
	return posts
}

func (a *LobstersAdapter) fetchNewestFiltered(ctx context.Context, keywords []string, cutoff time.Time, maxResults, maxPages int) []Post {
	var posts []Post
	for page := 1; page <= maxPages; page++ {
		pageURL := a.baseURL + "/newest.json"
		if page > 1 {
			pageURL = fmt.Sprintf("%s/newest/page/%d.json", a.baseURL, page)
		}

		stories := a.fetchStories(ctx, pageURL)
		if len(stories) == 0 {
			break
		}

		for _, story := range stories {
			ts := parseLobstersTimestamp(story.CreatedAt)
			if ts.Before(cutoff) {
				return capPosts(posts, maxResults)
			}

			searchable := strings.ToLower(story.Title + " " + story.DescriptionPlain)
			for _, kw := range keywords {
				if strings.Contains(searchable, kw) {
					posts = append(posts, a.storyToPost(story))
					break
				}
			}
		}

		if len(posts) >= maxResults {
			break
		}
	}
	return capPosts(posts, maxResults)
}

func (a *LobstersAdapter) fetchStories(ctx context.Context, pageURL string) []lobstersStory {
	data, err := a.client.Get(ctx, pageURL)
	if err != nil {
		slog.Warn("Lobsters request failed", "url", pageURL, "error", err)
		return nil
	}

	var stories []lobstersStory
	if err := json.Unmarshal(data, &stories); err != nil {
		slog.Warn("Lobsters response parse failed", "error", err)
		return nil
	}
	return stories
}

// normalize converts stories into posts, stopping at the first story older
// than the cutoff (pages are newest-first).
func (a *LobstersAdapter) normalize(stories []lobstersStory, cutoff time.Time) ([]Post, bool) {
	var posts []Post
	for _, story := range stories {
		if parseLobstersTimestamp(story.CreatedAt).Before(cutoff) {
			return posts, true
		}
		posts = append(posts, a.storyToPost(story))
	}
	return posts, false
}

func (a *LobstersAdapter) storyToPost(story lobstersStory) Post {
	text := story.Title
	if story.DescriptionPlain != "" {
		text = story.Title + "\n\n" + story.DescriptionPlain
	}

	postURL := story.CommentsURL
	if postURL == "" {
		postURL = story.ShortIDURL
	}

	return Post{
		Source:    "lobsters",
		Author:    story.SubmitterUser,
		Text:      text,
		URL:       postURL,
		Timestamp: parseLobstersTimestamp(story.CreatedAt),
		Score:     story.CommentCount, // comment count as engagement signal
		Metadata: map[string]any{
			"tags":           story.Tags,
			"story_url":      story.URL,
			"short_id":       story.ShortID,
			"upvotes":        story.Score,
			"comment_count":  story.CommentCount,
			"user_is_author": story.UserIsAuthor,
		},
		ContentHash: NewContentHash("lobsters", postURL, story.Title),
	}
}

// parseLobstersTimestamp handles timestamps like
// "2026-02-14T13:32:17.000-06:00", normalized to UTC.
func parseLobstersTimestamp(ts string) time.Time {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// extractTags maps search terms to plausible Lobsters tags. Lobsters uses
// short lowercase tags like "rust", "ai", "ml", "security".
func extractTags(terms []string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, term := range terms {
		for _, word := range lobstersWordRe.FindAllString(strings.ToLower(term), -1) {
			if len(word) >= 2 && !lobstersStopWords[word] && !seen[word] {
				seen[word] = true
				tags = append(tags, word)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// extractKeywords extracts words of 3+ characters for title/description
// matching.
func extractKeywords(terms []string) []string {
	var keywords []string
	for _, term := range terms {
		for _, word := range lobstersWordRe.FindAllString(strings.ToLower(term), -1) {
			if len(word) >= 3 {
				keywords = append(keywords, word)
			}
		}
	}
	return keywords
}

func capPosts(posts []Post, maxResults int) []Post {
	if maxResults > 0 && len(posts) > maxResults {
		return posts[:maxResults]
	}
	return posts
}
