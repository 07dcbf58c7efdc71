package main

import (
	"context"

	"github.com/nishad/gdcharvest/internal/pipeline"
	"github.com/spf13/cobra"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <project> [<project> ...]",
	Short: "Rebuild annotation and label tables without downloading data",
	Long: `Annotate re-queries metadata and rebuilds the clinical, survival,
classification, and per-slide tables for projects whose data files are
already on disk. No data files are downloaded.`,
	Example: `  # Rebuild tables after a config or label-logic change
  gdcharvest annotate TCGA-LUSC

  # Rebuild with a different split seed
  gdcharvest annotate TCGA-LUSC --seed 7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

var (
	annotateOutput string
	annotateRatio  float64
	annotateSeed   int64
)

func init() {
	annotateCmd.Flags().StringVarP(&annotateOutput, "output", "o", "", "Output directory (default from config)")
	annotateCmd.Flags().Float64Var(&annotateRatio, "train-ratio", 0, "Train fraction for splits (default from config)")
	annotateCmd.Flags().Int64Var(&annotateSeed, "seed", -1, "Split shuffle seed (default from config)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := pipeline.OptionsFromConfig(cfg, args)
	opts.Mode = pipeline.ModeMetadataOnly
	if annotateOutput != "" {
		opts.OutputDir = annotateOutput
	}
	if annotateRatio > 0 {
		opts.Split.TrainRatio = annotateRatio
	}
	if annotateSeed >= 0 {
		opts.Split.Seed = annotateSeed
	}

	client := newGDCClient(cfg)
	cat := openCatalog(cfg, args)
	if cat != nil {
		defer cat.Close()
	}

	return pipeline.New(client, cat, opts).Run(context.Background())
}
