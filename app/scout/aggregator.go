package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/avoronov/xscout/app/profile"
	"github.com/avoronov/xscout/app/sources"
)

// Payload is the aggregate sent to the LLM, and the shape written by
// --save-posts / read by --from-file.
type Payload struct {
	PulledAt      time.Time      `json:"pulled_at"`
	LookbackHours int            `json:"lookback_hours"`
	Topic         string         `json:"topic"`
	SourceCounts  map[string]int `json:"source_counts"`
	Posts         []sources.Post `json:"posts"`
}

// Aggregator runs the enabled source adapters sequentially and merges
// their results into one payload.
type Aggregator struct {
	httpClient *http.Client
	userAgent  string
	extractor  *Extractor

	newAdapter func(name string, httpClient *http.Client, userAgent string) (sources.Adapter, error)
}

func NewAggregator(httpClient *http.Client, userAgent string) *Aggregator {
	return &Aggregator{
		httpClient: httpClient,
		userAgent:  userAgent,
		extractor:  NewExtractor(httpClient, userAgent),
		newAdapter: sources.New,
	}
}

// Run fetches posts for the profile from every enabled source. A source
// that errors contributes nothing; the run only fails when no source
// could be built at all.
func (a *Aggregator) Run(ctx context.Context, prof *profile.Profile, sourceNames []string) (*Payload, error) {
	if len(sourceNames) == 0 {
		sourceNames = prof.Sources.Enabled
	}

	payload := &Payload{
		PulledAt:      time.Now().UTC(),
		LookbackHours: prof.Settings.LookbackHours,
		Topic:         prof.Topic,
		SourceCounts:  make(map[string]int),
	}

	built := 0
	for _, name := range sourceNames {
		adapter, err := a.newAdapter(name, a.httpClient, a.userAgent)
		if err != nil {
			return nil, err
		}
		built++

		query := sources.Query{
			Topic:      prof.Topic,
			Terms:      prof.QueriesFor(name),
			Lookback:   prof.Settings.GetLookback(),
			MaxResults: prof.Settings.MaxResults,
			Subreddits: prof.Sources.Subreddits,
			Languages:  prof.Sources.Languages,
		}

		slog.Info("Fetching source", "source", name, "topic", prof.Topic)
		posts, err := adapter.Fetch(ctx, query)
		if err != nil {
			slog.Warn("Source fetch failed", "source", name, "error", err)
			continue
		}

		payload.SourceCounts[name] = len(posts)
		payload.Posts = append(payload.Posts, posts...)
	}

	if built == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	payload.Posts = dedupe(payload.Posts)

	// Newest first; stable so same-timestamp posts keep source order.
	sort.SliceStable(payload.Posts, func(i, j int) bool {
		return payload.Posts[i].Timestamp.After(payload.Posts[j].Timestamp)
	})

	// The payload feeds a bounded completion context; keep the newest
	// posts when the sources collectively overshoot.
	if limit := prof.Settings.MaxTotal; limit > 0 && len(payload.Posts) > limit {
		payload.Posts = payload.Posts[:limit]
	}

	if prof.Settings.ExtractContent {
		a.extractor.Run(ctx, payload.Posts)
	}

	slog.Info("Aggregation completed", "sources", len(payload.SourceCounts), "posts", len(payload.Posts))
	return payload, nil
}

// LoadPayload reads a previously saved posts JSON, so a brief can be
// regenerated without touching the platform APIs.
func LoadPayload(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read posts file: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse posts file: %w", err)
	}
	return &payload, nil
}

// JSON renders the payload as indented JSON for the LLM and for
// --save-posts.
func (p *Payload) JSON() (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}

// dedupe drops posts whose content hash was already seen, preserving
// order. Adapters dedupe within themselves; this catches the same URL
// surfacing from two searches of the same source.
func dedupe(posts []sources.Post) []sources.Post {
	seen := make(map[string]bool, len(posts))
	deduped := posts[:0]
	for _, post := range posts {
		if post.ContentHash != "" && seen[post.ContentHash] {
			continue
		}
		seen[post.ContentHash] = true
		deduped = append(deduped, post)
	}
	return deduped
}
