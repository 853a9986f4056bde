package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Post is the normalized record every adapter produces, regardless of
// which platform it came from.
type Post struct {
	Source    string         `json:"source"`
	Author    string         `json:"author"`
	Text      string         `json:"text"`
	URL       string         `json:"url"`
	Timestamp time.Time      `json:"timestamp"`
	Score     int            `json:"score"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// ContentHash travels with saved payloads so replayed runs keep
	// their dedupe identity.
	ContentHash string `json:"content_hash,omitempty"`
}

// Query describes what an adapter should fetch.
type Query struct {
	Topic      string
	Terms      []string // search terms; adapters fall back to splitting Topic
	Lookback   time.Duration
	MaxResults int

	Subreddits []string // reddit: subreddits searched in addition to r/all
	Languages  []string // bluesky: BCP 47 tags to keep; empty keeps all
}

// SearchTerms returns the configured terms, or the topic split on commas
// when none are configured.
func (q Query) SearchTerms() []string {
	if len(q.Terms) > 0 {
		return q.Terms
	}
	return SplitTopic(q.Topic)
}

// Cutoff returns the earliest timestamp the query is interested in.
func (q Query) Cutoff() time.Time {
	return time.Now().UTC().Add(-q.Lookback)
}

// Adapter fetches posts about a topic from one external platform.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, query Query) ([]Post, error)
}

// NewContentHash generates a hash used for cross-source deduplication.
// Only stable identity fields participate, so re-fetching the same post
// with a changed score does not produce a new identity.
func NewContentHash(source, url, title string) string {
	content := fmt.Sprintf("%s|%s|%s", source, url, title)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// SplitTopic splits a comma-separated topic string into trimmed search terms.
func SplitTopic(topic string) []string {
	var terms []string
	for _, part := range strings.Split(topic, ",") {
		if term := strings.TrimSpace(part); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
