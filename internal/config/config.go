package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nishad/gdcharvest/internal/paths"
	"gopkg.in/yaml.v3"
)

// Config represents the gdcharvest configuration
type Config struct {
	OutputDir string          `yaml:"output_dir"`
	API       APIConfig       `yaml:"api"`      // GDC endpoint settings
	Download  DownloadConfig  `yaml:"download"` // Per-file download behavior
	Catalog   CatalogConfig   `yaml:"catalog"`  // Run-catalog database
	Search    SearchConfig    `yaml:"search"`   // Optional metadata search
	Split     SplitConfig     `yaml:"split"`    // Train/test split defaults
	Filetypes []string        `yaml:"filetypes"`
}

// APIConfig contains GDC API settings
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
	TokenEnv string `yaml:"token_env"` // env var holding the auth token
}

// DownloadConfig contains per-file download behavior
type DownloadConfig struct {
	RetryAttempts int     `yaml:"retry_attempts"`
	BackoffBase   float64 `yaml:"backoff_base_seconds"`
	TarArchives   bool    `yaml:"tar_archives"`  // bundle N files per request instead of per-file
	ManifestAlso  bool    `yaml:"manifest_also"` // also write a gdc-client manifest
	GdcClientPath string  `yaml:"gdc_client_path"`
}

// CatalogConfig contains run-catalog database settings
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains metadata search settings
type SearchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	IndexPath string `yaml:"index_path"`
}

// SplitConfig contains stratified split defaults
type SplitConfig struct {
	TrainRatio float64 `yaml:"train_ratio"`
	Seed       int64   `yaml:"seed"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDir: paths.GetOutputPath(),
		API: APIConfig{
			BaseURL:  "https://api.gdc.cancer.gov",
			PageSize: 5000,
			TokenEnv: "GDC_TOKEN",
		},
		Download: DownloadConfig{
			RetryAttempts: 5,
			BackoffBase:   2.0,
			TarArchives:   false,
			ManifestAlso:  true,
		},
		Catalog: CatalogConfig{
			Path: paths.GetCatalogPath(),
		},
		Search: SearchConfig{
			Enabled:   false,
			IndexPath: paths.GetIndexPath(),
		},
		Split: SplitConfig{
			TrainRatio: 0.8,
			Seed:       42,
		},
		Filetypes: []string{".svs"},
	}
}

// Load loads configuration from a file, starting from defaults. A
// missing file returns the defaults without error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.OutputDir = expandPath(config.OutputDir)
	config.Catalog.Path = expandPath(config.Catalog.Path)
	config.Search.IndexPath = expandPath(config.Search.IndexPath)
	config.Download.GdcClientPath = expandPath(config.Download.GdcClientPath)

	return config, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("GDCHARVEST_CONFIG"); path != "" {
		return path
	}

	// Check current directory
	if _, err := os.Stat("gdcharvest.yaml"); err == nil {
		return "gdcharvest.yaml"
	}

	// Use default location
	p := paths.GetPaths()
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}

	return path
}
