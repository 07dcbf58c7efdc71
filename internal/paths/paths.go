// Package paths resolves the base directories used by gdcharvest,
// honoring tool-specific and XDG environment overrides.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

type Paths struct {
	ConfigDir string
	DataDir   string
	CacheDir  string
	StateDir  string
}

// GetPaths returns all base paths respecting environment variables
func GetPaths() Paths {
	return Paths{
		ConfigDir: getDir("GDCHARVEST_CONFIG_HOME", "XDG_CONFIG_HOME", ".config", "gdcharvest"),
		DataDir:   getDir("GDCHARVEST_DATA_HOME", "XDG_DATA_HOME", ".local/share", "gdcharvest"),
		CacheDir:  getDir("GDCHARVEST_CACHE_HOME", "XDG_CACHE_HOME", ".cache", "gdcharvest"),
		StateDir:  getDir("GDCHARVEST_STATE_HOME", "XDG_STATE_HOME", ".local/state", "gdcharvest"),
	}
}

func getDir(toolEnv, xdgEnv, defaultBase, appName string) string {
	// 1. Check tool-specific env
	if dir := os.Getenv(toolEnv); dir != "" {
		return dir
	}

	// 2. Check XDG env
	if xdgBase := os.Getenv(xdgEnv); xdgBase != "" {
		return filepath.Join(xdgBase, appName)
	}

	// 3. Use default
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// GetCatalogPath returns the path to the run-catalog database
func GetCatalogPath() string {
	if path := os.Getenv("GDCHARVEST_CATALOG_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().StateDir, "catalog.db")
}

// GetIndexPath returns the path to the metadata search index.
// Default: adjacent to the catalog for easy backup/migration
func GetIndexPath() string {
	if path := os.Getenv("GDCHARVEST_INDEX_PATH"); path != "" {
		return path
	}

	catalogPath := GetCatalogPath()
	dir := filepath.Dir(catalogPath)
	name := filepath.Base(catalogPath)
	nameNoExt := name[:len(name)-len(filepath.Ext(name))]
	return filepath.Join(dir, nameNoExt+".bleve")
}

// GetOutputPath returns the default dataset output directory
func GetOutputPath() string {
	if path := os.Getenv("GDCHARVEST_OUTPUT_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().DataDir, "datasets")
}

// GetToolsPath returns the directory for external tool binaries
// (gdc-client installs land here)
func GetToolsPath() string {
	return filepath.Join(GetPaths().DataDir, "tools")
}

// EnsureDirectories creates all necessary directories
func EnsureDirectories() error {
	paths := GetPaths()
	dirs := []string{
		paths.ConfigDir,
		paths.DataDir,
		filepath.Join(paths.DataDir, "datasets"),
		filepath.Join(paths.DataDir, "tools"),
		paths.CacheDir,
		paths.StateDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
