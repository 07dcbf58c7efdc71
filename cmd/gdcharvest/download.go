package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishad/gdcharvest/internal/pipeline"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <project> [<project> ...]",
	Short: "Harvest metadata, data files, and annotations for GDC projects",
	Long: `Download harvests one or more GDC projects end to end: file metadata,
case grouping, the data files themselves, and the derived annotation
and label tables. Already-downloaded files with matching sizes are
skipped, so an interrupted harvest can be resumed by re-running the
same command.`,
	Example: `  # Harvest one project with defaults (.svs slide images)
  gdcharvest download TCGA-LUSC

  # Several projects, diagnostic and tissue slides
  gdcharvest download TCGA-LUSC TCGA-LUAD --filetypes .svs,.tiff

  # One tar archive per project instead of per-file downloads
  gdcharvest download TCGA-LUSC --tar

  # Metadata and annotation tables only, no data files
  gdcharvest download TCGA-LUSC --metadata-only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

var (
	downloadOutput       string
	downloadFiletypes    []string
	downloadTar          bool
	downloadManifest     bool
	downloadMetadataOnly bool
	downloadSkipAnnot    bool
	downloadRetry        int
)

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output directory (default from config)")
	downloadCmd.Flags().StringSliceVarP(&downloadFiletypes, "filetypes", "t", nil, "File extensions to harvest (default from config)")
	downloadCmd.Flags().BoolVar(&downloadTar, "tar", false, "Download one tar archive per project")
	downloadCmd.Flags().BoolVar(&downloadManifest, "gdc-client", false, "Delegate data downloads to the external gdc-client tool")
	downloadCmd.Flags().BoolVar(&downloadMetadataOnly, "metadata-only", false, "Skip data file downloads")
	downloadCmd.Flags().BoolVar(&downloadSkipAnnot, "skip-annotations", false, "Skip annotation and label tables")
	downloadCmd.Flags().IntVar(&downloadRetry, "retry", 0, "Retry attempts per file (default from config)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := pipeline.OptionsFromConfig(cfg, args)
	if downloadOutput != "" {
		opts.OutputDir = downloadOutput
	}
	if len(downloadFiletypes) > 0 {
		opts.Filetypes = downloadFiletypes
	}
	if downloadRetry > 0 {
		opts.Policy.MaxAttempts = downloadRetry
	}
	opts.SkipAnnotations = downloadSkipAnnot

	switch {
	case downloadTar && downloadManifest:
		return fmt.Errorf("--tar and --gdc-client are mutually exclusive")
	case downloadTar:
		opts.Mode = pipeline.ModeTar
	case downloadManifest:
		opts.Mode = pipeline.ModeManifest
	case downloadMetadataOnly:
		opts.Mode = pipeline.ModeMetadataOnly
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Let Ctrl-C stop the current download cleanly; partial files keep
	// their .part suffix and are resumed on the next run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client := newGDCClient(cfg)
	cat := openCatalog(cfg, args)
	if cat != nil {
		defer cat.Close()
	}

	return pipeline.New(client, cat, opts).Run(ctx)
}
