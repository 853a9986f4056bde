package sources

import (
	"fmt"
	"net/http"
	"sort"
)

// Factory builds an adapter backed by the given HTTP client.
type Factory func(httpClient *http.Client, userAgent string) Adapter

var registry = map[string]Factory{
	"x":           func(c *http.Client, ua string) Adapter { return NewXAdapter(c, ua) },
	"reddit":      func(c *http.Client, ua string) Adapter { return NewRedditAdapter(c, ua) },
	"hackernews":  func(c *http.Client, ua string) Adapter { return NewHackerNewsAdapter(c, ua) },
	"lobsters":    func(c *http.Client, ua string) Adapter { return NewLobstersAdapter(c, ua) },
	"bluesky":     func(c *http.Client, ua string) Adapter { return NewBlueskyAdapter(c, ua) },
	"github":      func(c *http.Client, ua string) Adapter { return NewGitHubAdapter(c, ua) },
	"civitai":     func(c *http.Client, ua string) Adapter { return NewCivitAIAdapter(c, ua) },
	"huggingface": func(c *http.Client, ua string) Adapter { return NewHuggingFaceAdapter(c, ua) },
	"arxiv":       func(c *http.Client, ua string) Adapter { return NewArxivAdapter(c, ua) },
}

// New builds the named adapter.
func New(name string, httpClient *http.Client, userAgent string) (Adapter, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown source '%s' (available: %v)", name, Names())
	}
	return factory(httpClient, userAgent), nil
}

// Names returns all registered source names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
