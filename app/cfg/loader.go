package cfg

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Scouting configuration
	Topic            string `long:"topic" env:"SCOUT_TOPIC" description:"Topic to scout for (comma-separated terms become separate searches)"`
	TopicDescription string `long:"topic-description" env:"SCOUT_TOPIC_DESCRIPTION" description:"Longer description of what falls under the topic"`
	Sources          string `long:"sources" env:"SCOUT_SOURCES" description:"Comma-separated source list (overrides profile)"`
	Profile          string `long:"profile" env:"SCOUT_PROFILE" description:"Topic profile name from the profiles directory"`
	ProfilesDir      string `long:"profiles-dir" env:"PROFILES_DIR" default:"./profiles" description:"Directory containing topic profile files"`
	LookbackHours    int    `long:"lookback-hours" env:"SCOUT_LOOKBACK_HOURS" description:"Lookback window in hours (overrides profile)"`
	MaxResults       int    `long:"max-results" env:"SCOUT_MAX_RESULTS" description:"Max results per source (overrides profile)"`

	// Output configuration
	BriefsDir string `long:"briefs-dir" env:"BRIEFS_DIR" default:"./briefs" description:"Directory briefs are written to"`
	Save      bool   `long:"save" description:"Save the brief to the briefs directory"`
	SavePosts bool   `long:"save-posts" description:"Also save the raw posts JSON"`
	FromFile  string `long:"from-file" description:"Generate the brief from a saved posts JSON instead of fetching"`

	// LLM API settings
	LLMBaseURL string `long:"llm-base-url" env:"LLM_BASE_URL" default:"https://nano-gpt.com/api/v1" description:"OpenAI-compatible API base URL"`
	LLMModel   string `long:"llm-model" env:"LLM_MODEL" default:"minimax/minimax-m2.5" description:"Model used to generate the brief"`
	LLMAPIKey  string `env:"LLM_API_KEY" description:"API key for the completion endpoint (env only)"`
	MaxTokens  int    `long:"max-tokens" env:"LLM_MAX_TOKENS" default:"4096" description:"Completion token limit"`

	// Archive / serve mode
	DBPath       string `long:"db-path" env:"DB_PATH" description:"SQLite archive path (empty disables the archive)"`
	Serve        bool   `long:"serve" description:"Serve the archive over HTTP instead of running the pipeline"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port for serve mode"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for archive listing endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"xscout/1.0 (intel-scout)" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Topic:            raw.Topic,
		TopicDescription: raw.TopicDescription,
		Sources:          splitList(raw.Sources),
		Profile:          raw.Profile,
		ProfilesDir:      raw.ProfilesDir,
		LookbackHours:    raw.LookbackHours,
		MaxResults:       raw.MaxResults,
		BriefsDir:        raw.BriefsDir,
		Save:             raw.Save,
		SavePosts:        raw.SavePosts,
		FromFile:         raw.FromFile,
		LLMBaseURL:       strings.TrimRight(raw.LLMBaseURL, "/"),
		LLMModel:         raw.LLMModel,
		LLMAPIKey:        raw.LLMAPIKey,
		MaxTokens:        raw.MaxTokens,
		DBPath:           raw.DBPath,
		Serve:            raw.Serve,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		UserAgent:        raw.UserAgent,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if cfg.Serve && cfg.DBPath == "" {
		return nil, fmt.Errorf("serve mode requires --db-path")
	}
	if cfg.LookbackHours < 0 || cfg.LookbackHours > 720 {
		return nil, fmt.Errorf("lookback-hours must be between 0 and 720")
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
