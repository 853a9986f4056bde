package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	xAPIBaseURL   = "https://api.twitter.com"
	xTweetFields  = "author_id,created_at,public_metrics,entities,referenced_tweets"
	xUserFields   = "username,name,verified,public_metrics"
	xExpansions   = "author_id"
	xMaxPerSearch = 100
)

// XAdapter searches the X API v2 recent search endpoint. Requires
// X_BEARER_TOKEN, or X_CONSUMER_KEY + X_API_SECRET which are exchanged
// for a bearer token via the oauth2 client credentials flow.
type XAdapter struct {
	client  *Client
	baseURL string
}

func NewXAdapter(httpClient *http.Client, userAgent string) *XAdapter {
	return &XAdapter{
		client:  NewClient(httpClient, userAgent, time.Second),
		baseURL: xAPIBaseURL,
	}
}

func (a *XAdapter) Name() string {
	return "x"
}

func (a *XAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	token, err := a.bearerToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("X API credentials not available: %w", err)
	}

	startTime := query.Cutoff().Format("2006-01-02T15:04:05Z")
	terms := query.SearchTerms()
	perQuery := min(query.MaxResults, xMaxPerSearch)

	var posts []Post
	for i, term := range terms {
		slog.Debug("Searching X", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)

		body, err := a.search(ctx, term, startTime, token, perQuery)
		if err != nil {
			slog.Warn("X search failed", "query", term, "error", err)
			continue
		}
		posts = append(posts, a.normalize(body)...)
	}

	slog.Info("Source fetch completed", "source", "x", "posts", len(posts))
	return posts, nil
}

// bearerToken returns X_BEARER_TOKEN, or exchanges consumer credentials
// for an app-only token.
func (a *XAdapter) bearerToken(ctx context.Context) (string, error) {
	if token := os.Getenv("X_BEARER_TOKEN"); token != "" {
		return token, nil
	}

	consumerKey := os.Getenv("X_CONSUMER_KEY")
	apiSecret := os.Getenv("X_API_SECRET")
	if consumerKey == "" || apiSecret == "" {
		return "", fmt.Errorf("set X_BEARER_TOKEN or X_CONSUMER_KEY + X_API_SECRET")
	}

	creds := base64.StdEncoding.EncodeToString([]byte(consumerKey + ":" + apiSecret))
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := a.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	token := gjson.GetBytes(data, "access_token").String()
	if token == "" {
		return "", fmt.Errorf("token exchange returned no access_token")
	}
	return token, nil
}

func (a *XAdapter) search(ctx context.Context, query, startTime, token string, maxResults int) ([]byte, error) {
	params := url.Values{
		"query":        {query},
		"max_results":  {fmt.Sprintf("%d", maxResults)},
		"start_time":   {startTime},
		"tweet.fields": {xTweetFields},
		"user.fields":  {xUserFields},
		"expansions":   {xExpansions},
	}
	searchURL := fmt.Sprintf("%s/2/tweets/search/recent?%s", a.baseURL, params.Encode())
	return a.client.Get(ctx, searchURL, "Authorization", "Bearer "+token)
}

// normalize maps the X API v2 search response into Post records. The
// response nests author data under includes.users keyed by author_id.
func (a *XAdapter) normalize(body []byte) []Post {
	authorMap := make(map[string]string)
	gjson.GetBytes(body, "includes.users").ForEach(func(_, user gjson.Result) bool {
		authorMap[user.Get("id").String()] = user.Get("username").String()
		return true
	})

	var posts []Post
	gjson.GetBytes(body, "data").ForEach(func(_, tweet gjson.Result) bool {
		tweetID := tweet.Get("id").String()
		username := authorMap[tweet.Get("author_id").String()]
		if username == "" {
			username = "unknown"
		}

		likes := int(tweet.Get("public_metrics.like_count").Int())
		retweets := int(tweet.Get("public_metrics.retweet_count").Int())
		replies := int(tweet.Get("public_metrics.reply_count").Int())

		postURL := fmt.Sprintf("https://x.com/%s/status/%s", username, tweetID)
		timestamp, _ := time.Parse(time.RFC3339, tweet.Get("created_at").String())

		posts = append(posts, Post{
			Source:    "x",
			Author:    "@" + username,
			Text:      tweet.Get("text").String(),
			URL:       postURL,
			Timestamp: timestamp.UTC(),
			Score:     likes + retweets,
			Metadata: map[string]any{
				"likes":    likes,
				"retweets": retweets,
				"replies":  replies,
			},
			ContentHash: NewContentHash("x", postURL, ""),
		})
		return true
	})

	return posts
}
