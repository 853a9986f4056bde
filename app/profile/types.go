package profile

import "time"

// Profile is a topic profile loaded from a YAML file. It describes what
// to scout for and how each source should search for it.
type Profile struct {
	Name        string   `yaml:"-"` // derived from filename
	Topic       string   `yaml:"topic"`
	Description string   `yaml:"description"`
	Sources     Sources  `yaml:"sources"`
	Settings    Settings `yaml:"settings"`
}

// Sources configures which platforms are polled and how.
type Sources struct {
	Enabled    []string            `yaml:"enabled"`
	Queries    map[string][]string `yaml:"queries"`    // per-source search terms
	Subreddits []string            `yaml:"subreddits"` // reddit only
	Languages  []string            `yaml:"languages"`  // bluesky only
}

// Settings contains fetch tuning knobs.
type Settings struct {
	LookbackHours  int  `yaml:"lookback_hours"`
	MaxResults     int  `yaml:"max_results"` // per source
	MaxTotal       int  `yaml:"max_total"`   // across all sources
	ExtractContent bool `yaml:"extract_content"`
}

// GetLookback returns the lookback window as time.Duration.
func (s *Settings) GetLookback() time.Duration {
	if s.LookbackHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.LookbackHours) * time.Hour
}

// QueriesFor returns the configured search terms for a source, if any.
func (p *Profile) QueriesFor(source string) []string {
	if p.Sources.Queries == nil {
		return nil
	}
	return p.Sources.Queries[source]
}
