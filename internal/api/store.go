package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactStore reads produced artifacts from the harvest output
// directory. Each dataset is a subdirectory; its artifacts are the
// CSV, TSV and JSON files inside it.
type ArtifactStore struct {
	root string
}

// ArtifactInfo describes one artifact file.
type ArtifactInfo struct {
	Name    string `json:"name"`
	Dataset string `json:"dataset"`
	Size    int64  `json:"size"`
	Path    string `json:"path"`
}

var artifactExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".json": true,
	".txt":  true,
}

// NewArtifactStore opens a store rooted at the output directory.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("output directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output path %s is not a directory", root)
	}
	return &ArtifactStore{root: root}, nil
}

// Health verifies the output directory is still readable.
func (st *ArtifactStore) Health() error {
	_, err := os.Stat(st.root)
	return err
}

// Datasets lists dataset directories under the root, sorted.
func (st *ArtifactStore) Datasets() ([]string, error) {
	entries, err := os.ReadDir(st.root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// HasDataset reports whether a dataset directory exists.
func (st *ArtifactStore) HasDataset(dataset string) bool {
	if !validName(dataset) {
		return false
	}
	info, err := os.Stat(filepath.Join(st.root, dataset))
	return err == nil && info.IsDir()
}

// Artifacts lists the artifact files of one dataset.
func (st *ArtifactStore) Artifacts(dataset string) ([]ArtifactInfo, error) {
	if !validName(dataset) {
		return nil, fmt.Errorf("invalid dataset name %q", dataset)
	}
	dir := filepath.Join(st.root, dataset)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []ArtifactInfo
	for _, e := range entries {
		if e.IsDir() || !artifactExtensions[filepath.Ext(e.Name())] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ArtifactInfo{
			Name:    e.Name(),
			Dataset: dataset,
			Size:    info.Size(),
			Path:    filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// OpenArtifact resolves one artifact file by name.
func (st *ArtifactStore) OpenArtifact(dataset, name string) (string, error) {
	if !validName(dataset) || !validName(name) {
		return "", fmt.Errorf("invalid artifact path %q/%q", dataset, name)
	}
	if !artifactExtensions[filepath.Ext(name)] {
		return "", fmt.Errorf("unsupported artifact type %q", name)
	}
	path := filepath.Join(st.root, dataset, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// RunLog reads the run log of a dataset, if one was written.
func (st *ArtifactStore) RunLog(dataset string) (map[string]interface{}, error) {
	path, err := st.OpenArtifact(dataset, "run_log.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("malformed run log %s: %w", path, err)
	}
	return out, nil
}

// Stats reads the stats file of a dataset, if one was written.
func (st *ArtifactStore) Stats(dataset string) (map[string]interface{}, error) {
	path, err := st.OpenArtifact(dataset, "stats.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("malformed stats file %s: %w", path, err)
	}
	return out, nil
}

// validName rejects path components that could escape the root.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
