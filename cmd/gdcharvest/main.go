package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Global flags
var (
	configPath string
	quiet      bool
	verbose    bool
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "gdcharvest",
	Short: "GDC dataset harvester",
	Long: `gdcharvest builds machine-learning-ready datasets from the NCI Genomic
Data Commons. It queries file and case metadata, downloads data files
with resume and retry, and derives survival and classification label
tables joined to whole-slide images.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Example: `  # Harvest slide images and annotations for a TCGA project
  gdcharvest download TCGA-LUSC

  # List the projects of a program
  gdcharvest datasets --program TCGA

  # Rebuild annotation tables from already-downloaded data
  gdcharvest annotate TCGA-LUSC

  # Serve harvested artifacts over HTTP
  gdcharvest server --port 8080`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: gdcharvest.yaml, then XDG config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
