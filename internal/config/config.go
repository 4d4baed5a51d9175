// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the rivalmap configuration.
type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Search  SearchConfig  `toml:"search"`
	Scraper ScraperConfig `toml:"scraper"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider     string  `toml:"provider"`
	Model        string  `toml:"model"`
	APIKeyEnv    string  `toml:"api_key_env"`
	MaxTokens    int     `toml:"max_tokens"`
	Temperature  float64 `toml:"temperature"`
	BaseURL      string  `toml:"base_url"` // Custom API endpoint (OpenRouter, LiteLLM, Ollama)
	Thinking     string  `toml:"thinking"` // Thinking level: auto|off|low|medium|high
	MaxRetries   int     `toml:"max_retries"`
	RetryBackoff string  `toml:"retry_backoff"`
}

// SearchConfig contains search collaborator settings.
type SearchConfig struct {
	APIKeyEnv  string `toml:"api_key_env"`
	BaseURL    string `toml:"base_url"`
	MaxResults int    `toml:"max_results"`
	Depth      string `toml:"depth"` // basic or advanced
}

// ScraperConfig contains web scraper settings.
type ScraperConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	ChunkSize      int    `toml:"chunk_size"`
	ChunkOverlap   int    `toml:"chunk_overlap"`
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path    string `toml:"path"`    // Base directory for checkpoint and memory databases
	Persist bool   `toml:"persist"` // true = SQLite on disk, false = in-memory only
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			MaxTokens:   4096,
			Temperature: 0.3,
		},
		Search: SearchConfig{
			APIKeyEnv:  "TAVILY_API_KEY",
			BaseURL:    "https://api.tavily.com",
			MaxResults: 10,
			Depth:      "basic",
		},
		Scraper: ScraperConfig{
			TimeoutSeconds: 30,
			UserAgent:      "rivalmap/1.0",
			ChunkSize:      15000,
			ChunkOverlap:   2000,
		},
		Storage: StorageConfig{
			Path:    "~/.local/rivalmap",
			Persist: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from rivalmap.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return LoadFile(filepath.Join(cwd, "rivalmap.toml"))
}

// GetAPIKey returns the LLM API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (c *Config) GetAPIKey() string {
	envVar := c.LLM.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(c.LLM.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// GetSearchAPIKey returns the search API key from the configured environment variable.
func (c *Config) GetSearchAPIKey() string {
	if c.Search.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Search.APIKeyEnv)
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// StoragePath expands the configured storage path, resolving a leading "~".
func (c *Config) StoragePath() string {
	p := c.Storage.Path
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
