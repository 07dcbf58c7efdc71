package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/gdctool"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <project>",
	Short: "Write a gdc-client download manifest for a project",
	Long: `Manifest queries the files matching a project and the configured file
types, and writes a manifest usable with the external gdc-client tool.
With --install it first extracts a gdc-client binary from a downloaded
release zip.`,
	Example: `  # Write a manifest for the default filetypes
  gdcharvest manifest TCGA-LUSC -o manifest.txt

  # Install gdc-client from a release zip, then fetch the manifest
  gdcharvest manifest TCGA-LUSC --install gdc-client_2.3_linux.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

var (
	manifestOutput    string
	manifestFiletypes []string
	manifestInstall   string
)

func init() {
	manifestCmd.Flags().StringVarP(&manifestOutput, "output", "o", "manifest.txt", "Manifest file path")
	manifestCmd.Flags().StringSliceVarP(&manifestFiletypes, "filetypes", "t", nil, "File extensions to include (default from config)")
	manifestCmd.Flags().StringVar(&manifestInstall, "install", "", "Extract gdc-client from this release zip first")
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if manifestInstall != "" {
		target := filepath.Join(filepath.Dir(manifestOutput), gdctool.ExecutableName)
		tool, err := gdctool.InstallFromZip(manifestInstall, target)
		if err != nil {
			return fmt.Errorf("failed to install gdc-client: %w", err)
		}
		log.Printf("Installed gdc-client at %s", tool.Path)
	}

	filetypes := cfg.Filetypes
	if len(manifestFiletypes) > 0 {
		filetypes = manifestFiletypes
	}

	client := newGDCClient(cfg)
	filters := gdc.FilesQueryFilters(args[0], filetypes)
	if err := client.DownloadManifest(context.Background(), filters, manifestOutput); err != nil {
		return fmt.Errorf("failed to download manifest: %w", err)
	}
	log.Printf("Wrote manifest %s", manifestOutput)
	return nil
}
