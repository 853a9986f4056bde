package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const civitaiBaseURL = "https://civitai.com"

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Topic keywords mapped to CivitAI model type filters. Ordered so the
// first match wins deterministically.
var civitaiTypeKeywords = []struct {
	keyword   string
	modelType string
}{
	{"lora", "LORA"},
	{"checkpoint", "Checkpoint"},
	{"textual inversion", "TextualInversion"},
	{"embedding", "TextualInversion"},
	{"hypernetwork", "Hypernetwork"},
	{"controlnet", "Controlnet"},
	{"upscaler", "Upscaler"},
}

// Topic keywords mapped to CivitAI base model filters.
var civitaiBaseModelKeywords = []struct {
	keyword   string
	baseModel string
}{
	{"sdxl", "SDXL 1.0"},
	{"sd 1.5", "SD 1.5"},
	{"sd1.5", "SD 1.5"},
	{"sd15", "SD 1.5"},
	{"pony", "Pony"},
	{"ponyxl", "Pony"},
	{"ponydiffusion", "Pony"},
	{"illustrious", "Illustrious"},
	{"flux", "Flux.1 D"},
	{"chroma", "Chroma"},
}

// CivitAIAdapter searches the CivitAI public models API. Results are model
// listings rather than discussions; the prompt instructs the model to treat
// them as release signals.
type CivitAIAdapter struct {
	client  *Client
	baseURL string
}

func NewCivitAIAdapter(httpClient *http.Client, userAgent string) *CivitAIAdapter {
	return &CivitAIAdapter{
		client:  NewClient(httpClient, userAgent, time.Second),
		baseURL: civitaiBaseURL,
	}
}

func (a *CivitAIAdapter) Name() string {
	return "civitai"
}

type civitaiModelList struct {
	Items []civitaiModel `json:"items"`
}

type civitaiModel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	CreatedAt   string `json:"createdAt"`
	Creator     struct {
		Username string `json:"username"`
	} `json:"creator"`
	Stats struct {
		DownloadCount int     `json:"downloadCount"`
		ThumbsUpCount int     `json:"thumbsUpCount"`
		Rating        float64 `json:"rating"`
	} `json:"stats"`
	ModelVersions []struct {
		BaseModel string `json:"baseModel"`
	} `json:"modelVersions"`
}

func (a *CivitAIAdapter) Fetch(ctx context.Context, query Query) ([]Post, error) {
	terms := query.SearchTerms()
	period := civitaiPeriod(query.Lookback)
	typeFilter := detectTypeFilter(query.Topic)
	baseModels := detectBaseModels(query.Topic)

	var posts []Post
	seen := make(map[int]bool)

	for i, term := range terms {
		slog.Debug("Searching CivitAI", "progress", fmt.Sprintf("%d/%d", i+1, len(terms)), "query", term)
		for _, post := range a.searchModels(ctx, term, period, query.MaxResults, typeFilter, "") {
			id, _ := post.Metadata["model_id"].(int)
			if !seen[id] {
				seen[id] = true
				posts = append(posts, post)
			}
		}
	}

	// Base model hints in the topic get their own filtered searches.
	primary := query.Topic
	if len(terms) > 0 {
		primary = terms[0]
	}
	for _, baseModel := range baseModels {
		slog.Debug("Searching CivitAI by base model", "base_model", baseModel)
		for _, post := range a.searchModels(ctx, primary, period, query.MaxResults, typeFilter, baseModel) {
			id, _ := post.Metadata["model_id"].(int)
			if !seen[id] {
				seen[id] = true
				posts = append(posts, post)
			}
		}
	}

	slog.Info("Source fetch completed", "source", "civitai", "posts", len(posts))
	return posts, nil
}

func (a *CivitAIAdapter) searchModels(ctx context.Context, term, period string, limit int, typeFilter, baseModel string) []Post {
	params := url.Values{
		"query":  {term},
		"sort":   {"Newest"},
		"limit":  {fmt.Sprintf("%d", min(limit, 20))},
		"period": {period},
		"nsfw":   {"false"},
	}
	if typeFilter != "" {
		params.Set("types", typeFilter)
	}
	if baseModel != "" {
		params.Set("baseModels", baseModel)
	}

	data, err := a.client.Get(ctx, fmt.Sprintf("%s/api/v1/models?%s", a.baseURL, params.Encode()))
	if err != nil {
		slog.Warn("CivitAI request failed", "query", term, "error", err)
		return nil
	}

	var resp civitaiModelList
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("CivitAI response parse failed", "error", err)
		return nil
	}

	return a.normalize(resp)
}

func (a *CivitAIAdapter) normalize(resp civitaiModelList) []Post {
	var posts []Post
	for _, item := range resp.Items {
		username := item.Creator.Username
		if username == "" {
			username = "unknown"
		}

		baseModel := ""
		if len(item.ModelVersions) > 0 {
			baseModel = item.ModelVersions[0].BaseModel
		}

		description := stripHTML(item.Description, 500)

		parts := []string{item.Name}
		if item.Type != "" {
			parts = append(parts, fmt.Sprintf("[%s]", item.Type))
		}
		if baseModel != "" {
			parts = append(parts, fmt.Sprintf("(%s)", baseModel))
		}
		if description != "" {
			parts = append(parts, "— "+description)
		}

		timestamp := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
			timestamp = ts.UTC()
		}

		modelURL := fmt.Sprintf("https://civitai.com/models/%d", item.ID)

		posts = append(posts, Post{
			Source:    "civitai",
			Author:    username,
			Text:      strings.Join(parts, " "),
			URL:       modelURL,
			Timestamp: timestamp,
			Score:     item.Stats.DownloadCount + item.Stats.ThumbsUpCount,
			Metadata: map[string]any{
				"model_id":   item.ID,
				"type":       item.Type,
				"base_model": baseModel,
				"downloads":  item.Stats.DownloadCount,
				"thumbs_up":  item.Stats.ThumbsUpCount,
				"rating":     item.Stats.Rating,
			},
			ContentHash: NewContentHash("civitai", modelURL, item.Name),
		})
	}
	return posts
}

// stripHTML removes markup from CivitAI descriptions and truncates at a
// word boundary.
func stripHTML(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	return truncateAtWord(text, maxLen)
}

// civitaiPeriod maps a lookback window to CivitAI's period parameter.
func civitaiPeriod(lookback time.Duration) string {
	switch {
	case lookback <= 24*time.Hour:
		return "Day"
	case lookback <= 168*time.Hour:
		return "Week"
	default:
		return "Month"
	}
}

func detectTypeFilter(topic string) string {
	topicLower := strings.ToLower(topic)
	for _, entry := range civitaiTypeKeywords {
		if strings.Contains(topicLower, entry.keyword) {
			return entry.modelType
		}
	}
	return ""
}

func detectBaseModels(topic string) []string {
	topicLower := strings.ToLower(topic)
	seen := make(map[string]bool)
	var found []string
	for _, entry := range civitaiBaseModelKeywords {
		if strings.Contains(topicLower, entry.keyword) && !seen[entry.baseModel] {
			seen[entry.baseModel] = true
			found = append(found, entry.baseModel)
		}
	}
	return found
}
