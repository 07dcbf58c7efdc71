// Package gdctool invokes the external gdc-client transfer tool for
// manifest-driven bulk downloads. The tool is an operator-managed
// dependency: a missing executable is a fatal configuration error, not
// something recovered at runtime.
package gdctool

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecutableName is what the transfer tool is called on PATH.
const ExecutableName = "gdc-client"

// Tool wraps one gdc-client executable.
type Tool struct {
	Path string
}

// Find locates the gdc-client executable. An explicit path wins;
// otherwise PATH is consulted. Returns an error when the tool cannot be
// found anywhere.
func Find(explicitPath string) (*Tool, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, fmt.Errorf("gdc-client not found at %s: %w", explicitPath, err)
		}
		return &Tool{Path: explicitPath}, nil
	}
	p, err := exec.LookPath(ExecutableName)
	if err != nil {
		return nil, fmt.Errorf("gdc-client not found on PATH; install it or pass an explicit path: %w", err)
	}
	return &Tool{Path: p}, nil
}

// DownloadWithManifest runs "gdc-client download" for a manifest file
// into dir, teeing the tool's log to logFile.
func (t *Tool) DownloadWithManifest(manifestFile, dir, logFile string) error {
	if _, err := os.Stat(manifestFile); err != nil {
		return fmt.Errorf("manifest file not found: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	log.Printf("Starting download using manifest: %s", manifestFile)
	cmd := exec.Command(t.Path, "download",
		"--dir", dir,
		"--manifest", manifestFile,
		"--log-file", logFile,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gdc-client download failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	log.Printf("Download completed; see log file: %s", logFile)
	return nil
}

// InstallFromZip extracts the gdc-client executable from a release zip
// archive to outputPath and marks it executable.
func InstallFromZip(zipPath, outputPath string) (*Tool, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open release archive: %w", err)
	}
	defer r.Close()

	var entry *zip.File
	for _, f := range r.File {
		if filepath.Base(f.Name) == ExecutableName {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("no %s executable found in %s", ExecutableName, zipPath)
	}

	src, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, err
	}
	dst, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return nil, err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return nil, err
	}
	log.Printf("gdc-client installed at: %s", outputPath)
	return &Tool{Path: outputPath}, nil
}
