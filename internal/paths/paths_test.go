package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetPaths(t *testing.T) {
	p := GetPaths()

	if p.ConfigDir == "" {
		t.Error("ConfigDir should not be empty")
	}
	if p.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if p.CacheDir == "" {
		t.Error("CacheDir should not be empty")
	}
	if p.StateDir == "" {
		t.Error("StateDir should not be empty")
	}

	for name, dir := range map[string]string{
		"ConfigDir": p.ConfigDir,
		"DataDir":   p.DataDir,
		"CacheDir":  p.CacheDir,
		"StateDir":  p.StateDir,
	} {
		if !strings.Contains(dir, "gdcharvest") {
			t.Errorf("%s should contain 'gdcharvest', got %q", name, dir)
		}
	}
}

func TestToolSpecificOverride(t *testing.T) {
	t.Setenv("GDCHARVEST_CONFIG_HOME", "/tmp/custom-config")

	p := GetPaths()
	if p.ConfigDir != "/tmp/custom-config" {
		t.Errorf("expected /tmp/custom-config, got %q", p.ConfigDir)
	}
}

func TestXDGFallback(t *testing.T) {
	t.Setenv("GDCHARVEST_DATA_HOME", "")
	os.Unsetenv("GDCHARVEST_DATA_HOME")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	p := GetPaths()
	want := filepath.Join("/tmp/xdg-data", "gdcharvest")
	if p.DataDir != want {
		t.Errorf("expected %q, got %q", want, p.DataDir)
	}
}

func TestToolEnvBeatsXDG(t *testing.T) {
	t.Setenv("GDCHARVEST_CACHE_HOME", "/tmp/tool-cache")
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	p := GetPaths()
	if p.CacheDir != "/tmp/tool-cache" {
		t.Errorf("tool-specific env should win, got %q", p.CacheDir)
	}
}

func TestGetCatalogPath(t *testing.T) {
	t.Setenv("GDCHARVEST_CATALOG_PATH", "/tmp/my-catalog.db")
	if got := GetCatalogPath(); got != "/tmp/my-catalog.db" {
		t.Errorf("expected override, got %q", got)
	}

	os.Unsetenv("GDCHARVEST_CATALOG_PATH")
	if got := GetCatalogPath(); !strings.HasSuffix(got, "catalog.db") {
		t.Errorf("default catalog path should end in catalog.db, got %q", got)
	}
}

func TestGetIndexPathDerivedFromCatalog(t *testing.T) {
	os.Unsetenv("GDCHARVEST_INDEX_PATH")
	t.Setenv("GDCHARVEST_CATALOG_PATH", "/tmp/state/catalog.db")

	want := filepath.Join("/tmp/state", "catalog.bleve")
	if got := GetIndexPath(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	t.Setenv("GDCHARVEST_INDEX_PATH", "/tmp/elsewhere.bleve")
	if got := GetIndexPath(); got != "/tmp/elsewhere.bleve" {
		t.Errorf("expected override, got %q", got)
	}
}

func TestGetOutputPath(t *testing.T) {
	t.Setenv("GDCHARVEST_OUTPUT_PATH", "/tmp/datasets")
	if got := GetOutputPath(); got != "/tmp/datasets" {
		t.Errorf("expected override, got %q", got)
	}

	os.Unsetenv("GDCHARVEST_OUTPUT_PATH")
	if got := GetOutputPath(); !strings.HasSuffix(got, "datasets") {
		t.Errorf("default output path should end in datasets, got %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	t.Setenv("GDCHARVEST_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("GDCHARVEST_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("GDCHARVEST_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("GDCHARVEST_STATE_HOME", filepath.Join(base, "state"))

	if err := EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{
		filepath.Join(base, "config"),
		filepath.Join(base, "data", "datasets"),
		filepath.Join(base, "data", "tools"),
		filepath.Join(base, "cache"),
		filepath.Join(base, "state"),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}
