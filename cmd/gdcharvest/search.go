package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/nishad/gdcharvest/internal/search"
	"github.com/nishad/gdcharvest/internal/table"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search harvested metadata",
	Long: `Search runs full-text queries over a local index of harvested file and
clinical metadata. Build or refresh the index with --reindex after a
harvest; queries then work offline.`,
	Example: `  # Index everything harvested so far
  gdcharvest search --reindex

  # Find squamous cell slides
  gdcharvest search "squamous cell carcinoma" --limit 5

  # Exact filters combine with the free-text query
  gdcharvest search carcinoma --project TCGA-LUSC --type file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var (
	searchReindex bool
	searchLimit   int
	searchFormat  string
	searchProject string
	searchType    string
)

func init() {
	searchCmd.Flags().BoolVar(&searchReindex, "reindex", false, "Rebuild the index from harvested artifacts")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "Maximum results to return")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "table", "Output format (table|json)")
	searchCmd.Flags().StringVar(&searchProject, "project", "", "Filter by project id")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by document type (file|case)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ix, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	defer ix.Close()

	if searchReindex {
		if err := reindex(ix, cfg.OutputDir); err != nil {
			return err
		}
	}

	if len(args) == 0 && searchProject == "" && searchType == "" {
		if !searchReindex {
			return fmt.Errorf("no query given (use --reindex to rebuild the index)")
		}
		return nil
	}

	queryStr := ""
	if len(args) > 0 {
		queryStr = args[0]
	}
	filters := make(map[string]string)
	if searchProject != "" {
		filters["project_id"] = searchProject
	}
	if searchType != "" {
		filters["type"] = searchType
	}

	result, err := ix.SearchWithFilters(queryStr, filters, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Printf("%d matches (%d shown)\n", result.Total, len(result.Hits))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tPROJECT\tNAME/DIAGNOSIS")
	for _, hit := range result.Hits {
		name := stringField(hit.Fields, "file_name")
		if name == "" {
			name = stringField(hit.Fields, "primary_diagnosis")
		}
		fmt.Fprintf(w, "%s\t%.3f\t%s\t%s\n",
			hit.ID, hit.Score, stringField(hit.Fields, "project_id"), name)
	}
	return w.Flush()
}

// reindex loads every dataset's files and clinical tables into the
// index.
func reindex(ix *search.Index, outputDir string) error {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	total := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(outputDir, e.Name())

		if files, err := table.ReadCSV(filepath.Join(dir, "files_metadata.csv")); err == nil {
			n, err := ix.IndexFiles(files)
			if err != nil {
				return fmt.Errorf("failed to index files for %s: %w", e.Name(), err)
			}
			total += n
		}
		if clinical, err := table.ReadCSV(filepath.Join(dir, "clinical.csv")); err == nil {
			n, err := ix.IndexCases(clinical)
			if err != nil {
				return fmt.Errorf("failed to index cases for %s: %w", e.Name(), err)
			}
			total += n
		}
	}
	log.Printf("Indexed %d documents from %s", total, outputDir)
	return nil
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
