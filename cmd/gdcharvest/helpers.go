package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nishad/gdcharvest/internal/catalog"
	"github.com/nishad/gdcharvest/internal/config"
	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/paths"
)

// loadConfig resolves and loads the configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newGDCClient builds an API client from the configuration. The auth
// token comes from the configured environment variable.
func newGDCClient(cfg *config.Config) *gdc.Client {
	token := os.Getenv(cfg.API.TokenEnv)
	if token != "" {
		log.Printf("Using token from env var %s", cfg.API.TokenEnv)
	} else if !quiet {
		log.Printf("No %s in environment; only open-access files can be downloaded", cfg.API.TokenEnv)
	}
	return gdc.NewClient(cfg.API.BaseURL, token)
}

// openCatalog opens the run catalog, creating parent directories as
// needed. Catalog failures are reported but never block a harvest.
func openCatalog(cfg *config.Config, datasets []string) *catalog.Catalog {
	if err := paths.EnsureDirectories(); err != nil {
		log.Printf("Warning: failed to create state directories: %v", err)
		return nil
	}
	cat, err := catalog.Open(cfg.Catalog.Path, datasets)
	if err != nil {
		log.Printf("Warning: run catalog unavailable: %v", err)
		return nil
	}
	return cat
}
