package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List available GDC projects for a program",
	Example: `  # List TCGA projects
  gdcharvest datasets

  # List TARGET projects as JSON
  gdcharvest datasets --program TARGET --format json`,
	RunE: runDatasets,
}

var (
	datasetsProgram string
	datasetsFormat  string
)

func init() {
	datasetsCmd.Flags().StringVarP(&datasetsProgram, "program", "p", "TCGA", "Program name (TCGA, TARGET, CPTAC, ...)")
	datasetsCmd.Flags().StringVarP(&datasetsFormat, "format", "f", "table", "Output format (table|json)")
}

func runDatasets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newGDCClient(cfg)
	hits, err := client.ListProjects(context.Background(), datasetsProgram)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	rows, _ := gdc.FlattenHits(hits)
	sort.Slice(rows, func(i, j int) bool { return rows[i]["project_id"] < rows[j]["project_id"] })

	if datasetsFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tPRIMARY SITE\tCASES\tFILES")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r["project_id"], r["primary_site"], r["summary.case_count"], r["summary.file_count"])
	}
	return w.Flush()
}
