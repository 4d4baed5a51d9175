package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rivalmap/rivalmap/internal/checkpoint"
	"github.com/rivalmap/rivalmap/internal/config"
	"github.com/rivalmap/rivalmap/internal/llm"
	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/memory"
	"github.com/rivalmap/rivalmap/internal/pipeline"
	"github.com/rivalmap/rivalmap/internal/planner"
	"github.com/rivalmap/rivalmap/internal/researcher"
	"github.com/rivalmap/rivalmap/internal/strategist"
	"github.com/rivalmap/rivalmap/internal/tools"
)

// runtime holds the wired application for one command invocation.
type runtime struct {
	cfg        *config.Config
	log        *logging.Logger
	controller *pipeline.Controller

	memStore memory.Store
	cpStore  checkpoint.Store
}

// newRuntime loads configuration and wires the pipeline. Storage and config
// failures are fatal; a missing LLM or search key degrades the session to
// placeholder output instead.
func newRuntime(g *Globals) (*runtime, error) {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return nil, err
	}

	log := logging.New()
	if g.Verbose {
		log.SetLevel(logging.LevelDebug)
	}

	gen := buildGenerator(cfg, log)
	search := tools.NewSearchClient(cfg.GetSearchAPIKey(), cfg.Search.BaseURL)
	if !search.IsConfigured() {
		log.Warn("search not configured, competitor discovery will be skipped",
			map[string]interface{}{"env": cfg.Search.APIKeyEnv})
	}
	scraper := tools.NewScraper(time.Duration(cfg.Scraper.TimeoutSeconds)*time.Second, cfg.Scraper.UserAgent)

	memStore, cpStore, err := buildStores(cfg)
	if err != nil {
		return nil, err
	}
	mem := memory.New(memStore)

	controller := pipeline.New(
		planner.New(gen, mem, log),
		researcher.New(search, scraper, mem, log, researcher.Options{
			ChunkSize:    cfg.Scraper.ChunkSize,
			ChunkOverlap: cfg.Scraper.ChunkOverlap,
			MaxResults:   cfg.Search.MaxResults,
		}),
		strategist.New(gen, mem, log),
		cpStore,
		log,
	)

	return &runtime{
		cfg:        cfg,
		log:        log,
		controller: controller,
		memStore:   memStore,
		cpStore:    cpStore,
	}, nil
}

// Close releases the backing stores.
func (rt *runtime) Close() {
	if rt.memStore != nil {
		rt.memStore.Close()
	}
	if rt.cpStore != nil {
		rt.cpStore.Close()
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadDefault()
	if err != nil {
		// No config file is fine, the defaults cover local use.
		return config.Default(), nil
	}
	return cfg, nil
}

// buildGenerator constructs the LLM generator, or an unconfigured one when no
// model or key is available.
func buildGenerator(cfg *config.Config, log *logging.Logger) *llm.Generator {
	if cfg.LLM.Model == "" {
		log.Warn("no llm model configured, analysis degrades to placeholders")
		return llm.NewGenerator(nil)
	}
	provider, err := llm.NewProvider(cfg.LLM, cfg.GetAPIKey())
	if err != nil {
		log.Warn("llm provider unavailable, analysis degrades to placeholders",
			map[string]interface{}{"error": err.Error()})
		return llm.NewGenerator(nil)
	}
	return llm.NewGenerator(provider)
}

func buildStores(cfg *config.Config) (memory.Store, checkpoint.Store, error) {
	if !cfg.Storage.Persist {
		return memory.NewInMemoryStore(), checkpoint.NewInMemoryStore(), nil
	}

	dir := cfg.StoragePath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating storage directory %s: %w", dir, err)
	}
	memStore, err := memory.NewSQLiteStore(filepath.Join(dir, "memory.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening memory store: %w", err)
	}
	cpStore, err := checkpoint.NewSQLiteStore(filepath.Join(dir, "checkpoints.db"))
	if err != nil {
		memStore.Close()
		return nil, nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	return memStore, cpStore, nil
}
