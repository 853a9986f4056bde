package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const githubBaseURL = "https://api.github.com"

// GitHub allows 10 search requests/min unauthenticated.
const githubMinInterval = 7 * time.Second

// GitHubAdapter searches repositories and issues via the public GitHub
// API. GITHUB_TOKEN raises the rate limit but is optional.
type GitHubAdapter struct {
	client  *Client
	baseURL string
}

func NewGitHubAdapter(httpClient *http.Client, userAgent string) *GitHubAdapter {
	return &GitHubAdapter{
		client:  NewClient(httpClient, userAgent, githubMinInterval),
		baseURL: githubBaseURL,
	}
}

func (a *GitHubAdapter) Name() string {
	return "github"
}

type githubRepoSearch struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	OpenIssues  int    `json:"open_issues_count"`
	CreatedAt   string `json:"created_at"`
	PushedAt    string `json:"pushed_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	Topics []string `json:"topics"`
}

type githubIssueSearch struct {
	Items []githubIssue `json:"items"`
}

type githubIssue struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	HTMLURL       string `json:"html_url"`
	State         string `json:"state"`
	Comments      int    `json:"comments"`
	CreatedAt     string `json:"created_at"`
	RepositoryURL string `json:"repository_url"`
	User          struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Reactions struct {
		TotalCount int `json:"total_count"`
	} `json:"reactions"`
}

func (a *GitHubAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := query.SearchTerms()
	cutoffDate := query.Cutoff().Format("2006-01-02")

	var posts []Post
	seen := make(map[string]bool)

	for i, term := range terms {
		slog.Debug("Searching GitHub repositories", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		for _, post := range a.searchRepos(ctx, term, cutoffDate, query.MaxResults) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	for i, term := range terms {
		slog.Debug("Searching GitHub issues", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		for _, post := range a.searchIssues(ctx, term, cutoffDate, query.MaxResults) {
			if !seen[post.URL] {
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	slog.Info("Source fetch completed", "source", "github", "posts", len(posts))
	return posts, nil
}

func (a *GitHubAdapter) get(ctx context.Context, rawURL string) ([]byte, error) {
	headers := []string{"Accept", "application/vnd.github.v3+json"}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		headers = append(headers, "Authorization", "token "+token)
	}
	return a.client.Get(ctx, rawURL, headers...)
}

func (a *GitHubAdapter) searchRepos(ctx context.Context, term, cutoffDate string, limit int) []Post {
	params := url.Values{
		"q":        {fmt.Sprintf("%s pushed:>%s", term, cutoffDate)},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {fmt.Sprintf("%d", min(limit, 30))},
	}
	data, err := a.get(ctx, fmt.Sprintf("%s/search/repositories?%s", a.baseURL, params.Encode()))
	if err != nil {
		slog.Warn("GitHub repository search failed", "query", term, "error", err)
		return nil
	}

	var resp githubRepoSearch
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("GitHub response parse failed", "error", err)
		return nil
	}

	var posts []Post
	for _, repo := range resp.Items {
		parts := []string{repo.FullName}
		if repo.Language != "" {
			parts = append(parts, fmt.Sprintf("[%s]", repo.Language))
		}
		if repo.Description != "" {
			parts = append(parts, "— "+repo.Description)
		}
		if len(repo.Topics) > 0 {
			topics := repo.Topics
			if len(topics) > 5 {
				topics = topics[:5]
			}
			parts = append(parts, fmt.Sprintf("(topics: %s)", strings.Join(topics, ", ")))
		}

		timestamp := parseGitHubTime(repo.PushedAt, repo.CreatedAt)

		posts = append(posts, Post{
			Source:    "github",
			Author:    repo.Owner.Login,
			Text:      strings.Join(parts, " "),
			URL:       repo.HTMLURL,
			Timestamp: timestamp,
			Score:     repo.Stars,
			Metadata: map[string]any{
				"type":        "repository",
				"full_name":   repo.FullName,
				"stars":       repo.Stars,
				"forks":       repo.Forks,
				"language":    repo.Language,
				"topics":      repo.Topics,
				"open_issues": repo.OpenIssues,
			},
			ContentHash: NewContentHash("github", repo.HTMLURL, repo.FullName),
		})
	}
	return posts
}

func (a *GitHubAdapter) searchIssues(ctx context.Context, term, cutoffDate string, limit int) []Post {
	params := url.Values{
		"q":        {fmt.Sprintf("%s is:issue created:>%s", term, cutoffDate)},
		"sort":     {"created"},
		"order":    {"desc"},
		"per_page": {fmt.Sprintf("%d", min(limit, 30))},
	}
	data, err := a.get(ctx, fmt.Sprintf("%s/search/issues?%s", a.baseURL, params.Encode()))
	if err != nil {
		slog.Warn("GitHub issue search failed", "query", term, "error", err)
		return nil
	}

	var resp githubIssueSearch
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("GitHub response parse failed", "error", err)
		return nil
	}

	var posts []Post
	for _, issue := range resp.Items {
		body := issue.Body
		if len(body) > 500 {
			body = truncateAtWord(body, 500)
		}

		text := issue.Title
		if body != "" {
			text = issue.Title + "\n\n" + body
		}

		repoName := ""
		if parts := strings.Split(issue.RepositoryURL, "/"); len(parts) >= 2 {
			repoName = strings.Join(parts[len(parts)-2:], "/")
		}

		labels := make([]string, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			labels = append(labels, l.Name)
		}

		author := issue.User.Login
		if author == "" {
			author = "unknown"
		}

		posts = append(posts, Post{
			Source:    "github",
			Author:    author,
			Text:      text,
			URL:       issue.HTMLURL,
			Timestamp: parseGitHubTime(issue.CreatedAt),
			Score:     issue.Reactions.TotalCount + issue.Comments,
			Metadata: map[string]any{
				"type":      "issue",
				"repo":      repoName,
				"state":     issue.State,
				"labels":    labels,
				"comments":  issue.Comments,
				"reactions": issue.Reactions.TotalCount,
			},
			ContentHash: NewContentHash("github", issue.HTMLURL, issue.Title),
		})
	}
	return posts
}

// parseGitHubTime returns the first parseable RFC 3339 timestamp, falling
// back to the current time.
func parseGitHubTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}

// truncateAtWord cuts text at the last word boundary before maxLen and
// appends an ellipsis.
func truncateAtWord(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
