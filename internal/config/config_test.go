package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	if cfg.Scraper.ChunkSize != 15000 || cfg.Scraper.ChunkOverlap != 2000 {
		t.Errorf("unexpected chunk defaults: %d/%d", cfg.Scraper.ChunkSize, cfg.Scraper.ChunkOverlap)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("LLM.MaxTokens = %d, want 4096", cfg.LLM.MaxTokens)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rivalmap.toml")
	content := `
[llm]
provider = "anthropic"
model = "claude-sonnet-4-20250514"
max_tokens = 2048

[search]
api_key_env = "MY_SEARCH_KEY"

[storage]
path = "/tmp/rivalmap-test"
persist = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens != 2048 {
		t.Errorf("LLM.MaxTokens = %d, want 2048", cfg.LLM.MaxTokens)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Scraper.ChunkSize != 15000 {
		t.Errorf("Scraper.ChunkSize = %d, want default 15000", cfg.Scraper.ChunkSize)
	}
	if cfg.Storage.Persist {
		t.Errorf("Storage.Persist = true, want false")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Errorf("expected error for missing config file")
	}
}

func TestGetAPIKeyIndirection(t *testing.T) {
	cfg := New()
	cfg.LLM.APIKeyEnv = "RIVALMAP_TEST_KEY"
	t.Setenv("RIVALMAP_TEST_KEY", "sk-test")
	if got := cfg.GetAPIKey(); got != "sk-test" {
		t.Errorf("GetAPIKey() = %q", got)
	}

	cfg.LLM.APIKeyEnv = ""
	cfg.LLM.Provider = "anthropic"
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	if got := cfg.GetAPIKey(); got != "sk-ant" {
		t.Errorf("GetAPIKey() with provider default = %q", got)
	}
}

func TestDefaultAPIKeyEnv(t *testing.T) {
	if got := DefaultAPIKeyEnv("openai"); got != "OPENAI_API_KEY" {
		t.Errorf("DefaultAPIKeyEnv(openai) = %q", got)
	}
	if got := DefaultAPIKeyEnv("unknown"); got != "" {
		t.Errorf("DefaultAPIKeyEnv(unknown) = %q, want empty", got)
	}
}
