package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Default profile used when no profile file is given. Mirrors the tool's
// original focus area.
const (
	DefaultTopic       = "local AI / local LLMs"
	DefaultDescription = "models that run on consumer hardware: llama.cpp, MLX, GGUF quantizations, " +
		"on-device inference, edge AI, small language models, etc. This includes new " +
		"model releases, notable quantizations, inference engine updates, and novel " +
		"local deployment techniques"
)

// Cache loads and holds topic profiles from a directory of YAML files,
// keyed by profile name (the filename without extension).
type Cache struct {
	profilesDir string
	cache       map[string]*Profile
	mu          sync.RWMutex
}

func NewCache(profilesDir string) *Cache {
	return &Cache{
		profilesDir: profilesDir,
		cache:       make(map[string]*Profile),
	}
}

// Run loads every profile file in the profiles directory. A missing
// directory is not an error; the built-in default profile still works.
func (c *Cache) Run() error {
	if _, err := os.Stat(c.profilesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.profilesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(c.profilesDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		profile, err := c.Load(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		slog.Debug("Profile loaded", "profile", name, "topic", profile.Topic, "sources", profile.Sources.Enabled)
	}

	return nil
}

// Load parses a single profile by name and stores it in the cache.
func (c *Cache) Load(name string) (*Profile, error) {
	profilePath, err := c.findFile(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(profilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	profile.Name = name
	setDefaults(&profile)

	if err := validate(&profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", profilePath, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[name] = &profile

	return &profile, nil
}

// Get returns a cached profile by name. The reserved name "default"
// returns the built-in profile.
func (c *Cache) Get(name string) (*Profile, error) {
	if name == "" || name == "default" {
		return DefaultProfile(), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	profile, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("profile with name '%s' not found", name)
	}
	return profile, nil
}

// Names returns the names of all cached profiles.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.cache))
	for name := range c.cache {
		names = append(names, name)
	}
	return names
}

func (c *Cache) findFile(name string) (string, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(c.profilesDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("profile file for '%s' not found in %s", name, c.profilesDir)
}

// DefaultProfile returns the built-in profile used when nothing is
// configured.
func DefaultProfile() *Profile {
	profile := &Profile{
		Name:        "default",
		Topic:       DefaultTopic,
		Description: DefaultDescription,
	}
	setDefaults(profile)
	return profile
}

func setDefaults(profile *Profile) {
	if profile.Description == "" {
		profile.Description = profile.Topic
	}
	if profile.Settings.LookbackHours == 0 {
		profile.Settings.LookbackHours = 24
	}
	if profile.Settings.MaxResults == 0 {
		profile.Settings.MaxResults = 20
	}
	if profile.Settings.MaxTotal == 0 {
		profile.Settings.MaxTotal = 150
	}
	if len(profile.Sources.Enabled) == 0 {
		profile.Sources.Enabled = []string{"x", "reddit"}
	}
}

func validate(profile *Profile) error {
	if profile.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if profile.Settings.LookbackHours < 0 {
		return fmt.Errorf("lookback_hours must be positive")
	}
	if profile.Settings.LookbackHours > 720 {
		return fmt.Errorf("lookback_hours must not exceed 720 (30 days)")
	}
	return nil
}
