package main

import (
	"path/filepath"
	"testing"

	"github.com/rivalmap/rivalmap/internal/config"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Scraper.ChunkSize != 15000 {
		t.Errorf("defaults not applied: %+v", cfg.Scraper)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Errorf("explicit config path must fail when absent")
	}
}

func TestBuildStoresInMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Persist = false

	memStore, cpStore, err := buildStores(cfg)
	if err != nil {
		t.Fatalf("buildStores: %v", err)
	}
	defer memStore.Close()
	defer cpStore.Close()
}

func TestBuildStoresSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Persist = true
	cfg.Storage.Path = filepath.Join(t.TempDir(), "rivalmap")

	memStore, cpStore, err := buildStores(cfg)
	if err != nil {
		t.Fatalf("buildStores: %v", err)
	}
	defer memStore.Close()
	defer cpStore.Close()

	if err := memStore.Put("users", "u1", map[string]interface{}{"seen": true}); err != nil {
		t.Errorf("sqlite memory store not usable: %v", err)
	}
}
