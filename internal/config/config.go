package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Source     Source     `yaml:"source"`
	Enrichment Enrichment `yaml:"enrichment"`
	Cache      Cache      `yaml:"cache"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
}

type Source struct {
	URL            string `yaml:"url"`
	Format         string `yaml:"format"`
	Currency       string `yaml:"currency"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

type Enrichment struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Cache struct {
	Path       string `yaml:"path"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for newsradar.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsradar")
}

// DataDir returns the XDG data directory for newsradar.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsradar")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsradar/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsradar init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Source: Source{
			URL:            "https://www.forexfactory.com/calendar?currency=USD",
			Format:         "auto",
			Currency:       "USD",
			TimeoutSeconds: 15,
			Retries:        1,
		},
		Enrichment: Enrichment{
			Provider:       "auto",
			Model:          "claude-3-5-haiku-latest",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			MaxTokens:      600,
			TimeoutSeconds: 30,
		},
		Cache: Cache{
			TTLMinutes: 15,
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// CachePath returns the effective snapshot path from config or the
// data-dir default.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.GetDataDir(), "news.json")
}

// ArchivePath returns the run-history database path under the data dir.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.GetDataDir(), "archive.db")
}

// SourceTimeout returns the fetch timeout as a duration.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// EnrichmentTimeout returns the per-call annotation timeout as a duration.
func (c *Config) EnrichmentTimeout() time.Duration {
	return time.Duration(c.Enrichment.TimeoutSeconds) * time.Second
}

// CacheTTL returns the snapshot freshness window as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
