// Package config loads and saves the per-project .tracking/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/marcus/proj/internal/workdir"
)

const configFile = "config.json"

// Driver names accepted in Config.Driver
const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// Config is the project metadata and feature flags, read once per invocation
type Config struct {
	Name           string       `json:"name"`
	ProjectType    string       `json:"project_type"`
	Description    string       `json:"description,omitempty"`
	SchemaVersion  int          `json:"schema_version"`
	AutoBackup     bool         `json:"auto_backup"`
	AutoSession    bool         `json:"auto_session"`
	AutoCommit     bool         `json:"auto_commit"`
	AutoCommitMode string       `json:"auto_commit_mode,omitempty"`
	StaleHours     float64      `json:"stale_hours,omitempty"`
	GitSyncLimit   int          `json:"git_sync_limit,omitempty"`
	Driver         string       `json:"driver,omitempty"`
	Search         SearchConfig `json:"search"`
}

// SearchConfig tunes ranked search
type SearchConfig struct {
	HalfLifeDays float64            `json:"half_life_days,omitempty"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	Limit        int                `json:"limit,omitempty"`
}

// Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{AutoBackup: true, AutoSession: true}
	cfg.applyDefaults()
	return cfg
}

// Path returns the config file location for a project root
func Path(baseDir string) string {
	return filepath.Join(baseDir, workdir.TrackingDir, configFile)
}

// Load reads the config from disk. A missing file yields defaults.
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(Path(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals JSON bytes into a validated Config
func Parse(data []byte) (*Config, error) {
	cfg := Config{AutoBackup: true, AutoSession: true}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to disk
func Save(baseDir string, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return workdir.WriteFileAtomic(Path(baseDir), append(data, '\n'), 0644)
}

// StaleAfter returns the inactivity window after which a session is auto-closed
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleHours * float64(time.Hour))
}

// DefaultWeights are the per-field lexical weights used by ranked search
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"topic":     3,
		"title":     3,
		"decision":  2,
		"content":   2,
		"message":   2,
		"rationale": 1,
		"category":  0.5,
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.StaleHours == 0 {
		c.StaleHours = 8
	}
	if c.GitSyncLimit == 0 {
		c.GitSyncLimit = 50
	}
	if c.Driver == "" {
		c.Driver = DriverModernc
	}
	if c.AutoCommitMode == "" {
		c.AutoCommitMode = "prompt"
	}
	if c.Search.HalfLifeDays == 0 {
		c.Search.HalfLifeDays = 30
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = 20
	}
	weights := DefaultWeights()
	for field, w := range c.Search.Weights {
		weights[field] = w
	}
	c.Search.Weights = weights
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	if c.StaleHours < 0 {
		return fmt.Errorf("config: stale_hours must be positive, got %v", c.StaleHours)
	}
	if c.GitSyncLimit < 0 {
		return fmt.Errorf("config: git_sync_limit must be positive, got %d", c.GitSyncLimit)
	}
	if c.ProjectType != "" && !slices.Contains(ProjectTypes, c.ProjectType) {
		return fmt.Errorf("config: project_type must be one of %s, got %q", strings.Join(ProjectTypes, ", "), c.ProjectType)
	}
	if c.Driver != DriverModernc && c.Driver != DriverCgo {
		return fmt.Errorf("config: driver must be %q or %q, got %q", DriverModernc, DriverCgo, c.Driver)
	}
	if c.AutoCommitMode != "auto" && c.AutoCommitMode != "prompt" {
		return fmt.Errorf("config: auto_commit_mode must be \"auto\" or \"prompt\", got %q", c.AutoCommitMode)
	}
	if c.Search.HalfLifeDays < 0 {
		return fmt.Errorf("config: search.half_life_days must be positive, got %v", c.Search.HalfLifeDays)
	}
	for field, w := range c.Search.Weights {
		if w < 0 {
			return fmt.Errorf("config: search.weights.%s must not be negative", field)
		}
	}
	return nil
}

// ProjectTypes are the accepted values of Config.ProjectType
var ProjectTypes = []string{"go", "rust", "python", "javascript", "web", "documentation", "other"}

// DetectProjectType guesses the project type from marker files in dir,
// falling back to "other".
func DetectProjectType(dir string) string {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}
	switch {
	case exists("go.mod"):
		return "go"
	case exists("Cargo.toml"):
		return "rust"
	case exists("pyproject.toml"), exists("setup.py"):
		return "python"
	case exists("package.json"):
		pkg, _ := os.ReadFile(filepath.Join(dir, "package.json"))
		for _, fw := range []string{"react", "vue", "svelte"} {
			if strings.Contains(string(pkg), fw) {
				return "web"
			}
		}
		return "javascript"
	case exists("index.html"):
		return "web"
	case exists("README.md"), exists("docs"):
		return "documentation"
	}
	return "other"
}
