// Package pipeline orchestrates a harvest run: for each requested
// dataset it enumerates file metadata, writes the per-dataset tables,
// downloads data files, and derives the annotation and label tables.
// Datasets are processed independently; a failing dataset is logged
// and the run moves on to the next one.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nishad/gdcharvest/internal/annotations"
	"github.com/nishad/gdcharvest/internal/catalog"
	"github.com/nishad/gdcharvest/internal/config"
	"github.com/nishad/gdcharvest/internal/downloader"
	"github.com/nishad/gdcharvest/internal/errors"
	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/gdctool"
	"github.com/nishad/gdcharvest/internal/grouping"
	"github.com/nishad/gdcharvest/internal/join"
	"github.com/nishad/gdcharvest/internal/slides"
	"github.com/nishad/gdcharvest/internal/table"
	"github.com/nishad/gdcharvest/internal/ui"
)

// DownloadMode selects how data files are fetched.
type DownloadMode string

const (
	// ModeFiles downloads each file individually with retry and resume.
	ModeFiles DownloadMode = "files"
	// ModeTar downloads one tar archive per dataset.
	ModeTar DownloadMode = "tar"
	// ModeManifest writes a manifest and delegates to gdc-client.
	ModeManifest DownloadMode = "manifest"
	// ModeMetadataOnly skips data downloads entirely.
	ModeMetadataOnly DownloadMode = "metadata-only"
)

// Options controls a harvest run.
type Options struct {
	Datasets  []string
	Filetypes []string
	OutputDir string
	Mode      DownloadMode

	// SkipAnnotations stops after metadata and downloads.
	SkipAnnotations bool

	Split  join.SplitConfig
	Policy downloader.Policy

	// GdcClientPath locates the external gdc-client binary for
	// manifest mode; empty means search PATH.
	GdcClientPath string
}

// OptionsFromConfig derives run options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, datasets []string) Options {
	return Options{
		Datasets:  datasets,
		Filetypes: cfg.Filetypes,
		OutputDir: cfg.OutputDir,
		Mode:      ModeFiles,
		Split: join.SplitConfig{
			TrainRatio: cfg.Split.TrainRatio,
			Seed:       cfg.Split.Seed,
		},
		Policy: downloader.Policy{
			MaxAttempts: cfg.Download.RetryAttempts,
			BaseDelay:   time.Duration(cfg.Download.BackoffBase * float64(time.Second)),
		},
		GdcClientPath: cfg.Download.GdcClientPath,
	}
}

// Pipeline runs harvests against one GDC client.
type Pipeline struct {
	client  *gdc.Client
	catalog *catalog.Catalog
	opts    Options

	// loggedQueries marks how much of the client query log earlier
	// datasets already consumed.
	loggedQueries int
}

// New creates a pipeline. The catalog is optional; pass nil to skip
// run bookkeeping.
func New(client *gdc.Client, cat *catalog.Catalog, opts Options) *Pipeline {
	if opts.Mode == "" {
		opts.Mode = ModeFiles
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = downloader.DefaultPolicy
	}
	return &Pipeline{client: client, catalog: cat, opts: opts}
}

// Run harvests every requested dataset and writes the aggregated
// tables and run log. A dataset failure is recorded and skipped; Run
// returns an error only if every dataset failed.
func (p *Pipeline) Run(ctx context.Context) error {
	const op errors.Op = "pipeline.Run"

	if err := os.MkdirAll(p.opts.OutputDir, 0755); err != nil {
		return errors.E(op, errors.KindIO, err)
	}

	allFiles := table.New()
	allGroups := table.New()
	failed := 0

	for _, dataset := range p.opts.Datasets {
		log.Printf("Harvesting dataset %s", dataset)
		files, groups, err := p.harvestDataset(ctx, dataset)
		if err != nil {
			failed++
			log.Printf("Warning: dataset %s failed: %v", dataset, err)
			continue
		}
		allFiles.Concat(files)
		allGroups.Concat(groups)
	}

	if len(p.opts.Datasets) > 1 {
		if err := allFiles.WriteCSV(filepath.Join(p.opts.OutputDir, "files_metadata.all.csv")); err != nil {
			log.Printf("Warning: aggregated files table: %v", err)
		}
		if err := allGroups.WriteCSV(filepath.Join(p.opts.OutputDir, "groups.all.csv")); err != nil {
			log.Printf("Warning: aggregated groups table: %v", err)
		}
	}

	if p.catalog != nil {
		if err := p.catalog.CompleteRun(); err != nil {
			log.Printf("Warning: failed to complete catalog run: %v", err)
		}
	}

	if failed == len(p.opts.Datasets) {
		return errors.E(op, fmt.Errorf("all %d datasets failed", failed))
	}
	return nil
}

// harvestDataset runs the full per-dataset flow and returns the files
// and groups tables for aggregation.
func (p *Pipeline) harvestDataset(ctx context.Context, dataset string) (*table.Table, *table.Table, error) {
	const op errors.Op = "pipeline.harvestDataset"

	dir := filepath.Join(p.opts.OutputDir, dataset)
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, errors.E(op, errors.KindIO, err)
	}

	// A failed dataset never writes its run log, so its queries would
	// otherwise leak into the next dataset's. Start the log window here.
	p.loggedQueries = len(p.client.QueryLog())

	// 1. Enumerate file metadata.
	filters := gdc.FilesQueryFilters(dataset, p.opts.Filetypes)
	hits, err := p.client.PagedQuery(ctx, "files", filters, gdc.DefaultFileFields, gdc.DefaultPageSize)
	if err != nil {
		return nil, nil, errors.E(op, errors.KindNetwork, err)
	}
	files := gdc.HitsToTable(hits)
	log.Printf("Dataset %s: %d files matched", dataset, files.Len())

	if err := p.writeArtifact(dataset, "files_metadata", files, filepath.Join(dir, "files_metadata.csv")); err != nil {
		return nil, nil, err
	}

	// 2. Case grouping.
	groups := grouping.BuildGroups(files)
	if err := p.writeArtifact(dataset, "groups", groups, filepath.Join(dir, "groups.csv")); err != nil {
		return nil, nil, err
	}

	// 3. Data downloads.
	if err := p.downloadData(ctx, dataset, files, dataDir); err != nil {
		return nil, nil, err
	}

	// 4. Optional WSI property enrichment.
	files = p.enrichWSI(files, dataDir, dir, dataset)

	if !p.opts.SkipAnnotations {
		if err := p.annotate(ctx, dataset, files, dir, dataDir); err != nil {
			return nil, nil, err
		}
	}

	// Run log last so it reflects every query this dataset issued.
	if err := p.writeRunLog(dir, dataset); err != nil {
		log.Printf("Warning: run log for %s: %v", dataset, err)
	}
	if err := p.writeStats(dir, dataset, files, groups); err != nil {
		log.Printf("Warning: stats for %s: %v", dataset, err)
	}

	return files, groups, nil
}

// downloadData fetches the dataset's data files per the selected mode.
func (p *Pipeline) downloadData(ctx context.Context, dataset string, files *table.Table, dataDir string) error {
	const op errors.Op = "pipeline.downloadData"

	switch p.opts.Mode {
	case ModeMetadataOnly:
		return nil

	case ModeTar:
		target := filepath.Join(dataDir, dataset+".tar.gz")
		ids := files.Distinct("file_id")
		if len(ids) == 0 {
			return nil
		}
		if err := p.client.DownloadTar(ctx, ids, target, false); err != nil {
			return errors.E(op, errors.KindNetwork, err)
		}
		return nil

	case ModeManifest:
		manifestPath := filepath.Join(dataDir, "manifest.txt")
		filters := gdc.FilesQueryFilters(dataset, p.opts.Filetypes)
		if err := p.client.DownloadManifest(ctx, filters, manifestPath); err != nil {
			return errors.E(op, errors.KindNetwork, err)
		}
		tool, err := gdctool.Find(p.opts.GdcClientPath)
		if err != nil {
			return errors.E(op, errors.KindConfig, err)
		}
		logFile := filepath.Join(dataDir, "gdc-client.log")
		if err := tool.DownloadWithManifest(manifestPath, dataDir, logFile); err != nil {
			return errors.E(op, err)
		}
		return nil

	default: // ModeFiles
		items := downloadItems(files, dataDir)
		if len(items) == 0 {
			return nil
		}
		dl := downloader.New(downloader.SourceFunc(func(ctx context.Context, id string) (io.ReadCloser, error) {
			return p.client.Fetch(ctx, "data/"+id)
		}), p.opts.Policy)

		progress := ui.NewProgress("Downloading "+dataset, len(items))
		report := dl.DownloadBatch(ctx, items, func(done, total int, r downloader.Result) {
			switch {
			case r.Err != nil:
				log.Printf("Warning: %s failed after %d attempts: %v", r.ID, r.Attempts, r.Err)
			case r.Skipped:
				progress.Step(r.ID + " (skipped)")
			default:
				progress.Step(r.ID)
			}
			if p.catalog != nil {
				if err := p.catalog.RecordDownload(r.ID, r.Path, r.Size, r.Attempts, r.Skipped, r.Err); err != nil {
					log.Printf("Warning: catalog record for %s: %v", r.ID, err)
				}
			}
		})
		progress.Finish(fmt.Sprintf("Dataset %s: %d downloaded, %d skipped, %d failed",
			dataset, report.Downloaded, report.Skipped, len(report.Failed)))
		return nil
	}
}

// downloadItems builds the per-file download list from a files table.
// Each file lands under its own id directory, matching the layout
// gdc-client produces.
func downloadItems(files *table.Table, dataDir string) []downloader.Item {
	var items []downloader.Item
	for _, row := range files.Rows {
		id := row["file_id"]
		name := row["file_name"]
		if id == "" || name == "" {
			continue
		}
		var size int64
		if s := row["file_size"]; s != "" {
			size, _ = strconv.ParseInt(s, 10, 64)
		}
		items = append(items, downloader.Item{
			ID:           id,
			TargetPath:   filepath.Join(dataDir, id, name),
			ExpectedSize: size,
		})
	}
	return items
}

// enrichWSI merges slide properties into the files table when the
// openslide tool is available. Failure to enrich never fails the
// dataset.
func (p *Pipeline) enrichWSI(files *table.Table, dataDir, dir, dataset string) *table.Table {
	if !slides.HasPropertiesTool() {
		return files
	}

	var paths []string
	filepath.WalkDir(dataDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && slides.IsSlideFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if len(paths) == 0 {
		return files
	}

	meta := slides.CollectWSIMetadata(paths)
	if meta.Empty() {
		return files
	}

	enriched := files.InnerJoin(meta, "file_name", "file_name")
	if enriched.Len() != files.Len() {
		// Keep the full file list; enrichment is best effort.
		log.Printf("Warning: WSI properties found for %d of %d files; keeping unenriched table", enriched.Len(), files.Len())
		return files
	}
	if err := p.writeArtifact(dataset, "files_metadata", enriched, filepath.Join(dir, "files_metadata.csv")); err != nil {
		log.Printf("Warning: enriched files table: %v", err)
		return files
	}
	return enriched
}

// annotate builds the clinical, label and per-slide tables.
func (p *Pipeline) annotate(ctx context.Context, dataset string, files *table.Table, dir, dataDir string) error {
	const op errors.Op = "pipeline.annotate"

	caseIDs := files.Distinct(gdc.ColCaseID)
	if len(caseIDs) == 0 {
		log.Printf("Warning: dataset %s has no linked cases; skipping annotations", dataset)
		return nil
	}

	clinical, err := annotations.BuildClinical(ctx, p.client, caseIDs)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	if err := p.writeArtifact(dataset, "clinical", clinical, filepath.Join(dir, "clinical.csv")); err != nil {
		return err
	}

	diagnosis, err := annotations.BuildDiagnosis(ctx, p.client, caseIDs)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	if err := p.writeArtifact(dataset, "diagnosis", diagnosis, filepath.Join(dir, "diagnosis.csv")); err != nil {
		return err
	}

	molecular, err := annotations.BuildMolecularIndex(ctx, p.client, dataset, caseIDs)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	if err := p.writeArtifact(dataset, "molecular_index", molecular, filepath.Join(dir, "molecular_index.csv")); err != nil {
		return err
	}

	reports, err := annotations.BuildReportsIndex(ctx, p.client, dataset, caseIDs)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	if err := p.writeArtifact(dataset, "reports_index", reports, filepath.Join(dir, "reports_index.csv")); err != nil {
		return err
	}

	// Label derivation.
	survival := annotations.DeriveSurvival(clinical)
	annotations.AddMonths(survival)
	annotations.AddQuartiles(survival)
	if err := p.writeArtifact(dataset, "survival", survival, filepath.Join(dir, "survival.csv")); err != nil {
		return err
	}

	categories := annotations.DeriveCategories(clinical)
	if err := p.writeArtifact(dataset, "classification", categories, filepath.Join(dir, "classification.csv")); err != nil {
		return err
	}

	stages := annotations.DeriveStages(clinical)
	if stages != nil {
		if err := p.writeArtifact(dataset, "stage_classification", stages, filepath.Join(dir, "stage_classification.csv")); err != nil {
			return err
		}
	}

	// Per-slide tables need downloaded slides on disk.
	slideMap, err := slides.MapSlides(dataDir)
	if err != nil {
		return errors.E(op, errors.KindIO, err)
	}
	if slideMap.Empty() {
		log.Printf("Dataset %s: no slide files present; skipping per-slide tables", dataset)
		return nil
	}
	if err := p.writeArtifact(dataset, "slide_mapping", slideMap, filepath.Join(dir, "slide_mapping.csv")); err != nil {
		return err
	}

	caseCol := "case_id"
	if survival.HasColumn("case_submitter_id") {
		caseCol = "case_submitter_id"
	}

	slideSurvival := join.JoinSurvival(slideMap, survival, caseCol)
	if err := p.writeArtifact(dataset, "dataset_survival", slideSurvival, filepath.Join(dir, "dataset_survival.csv")); err != nil {
		return err
	}
	split, flagged := join.Split(slideSurvival, []string{"time_quartile", "event"}, join.SurvivalStratum, p.opts.Split)
	if err := p.writeArtifact(dataset, "dataset_survival_split", split, filepath.Join(dir, "dataset_survival_split.csv")); err != nil {
		return err
	}
	if !flagged.Empty() {
		if err := p.writeArtifact(dataset, "dataset_survival_flagged", flagged, filepath.Join(dir, "dataset_survival_flagged.csv")); err != nil {
			return err
		}
	}

	slideClass := join.JoinClassification(slideMap, categories, caseCol)
	if err := p.writeArtifact(dataset, "dataset_classification", slideClass, filepath.Join(dir, "dataset_classification.csv")); err != nil {
		return err
	}
	classSplit, classFlagged := join.Split(slideClass, []string{"category"}, join.CategoryStratum, p.opts.Split)
	if err := p.writeArtifact(dataset, "dataset_classification_split", classSplit, filepath.Join(dir, "dataset_classification_split.csv")); err != nil {
		return err
	}
	if !classFlagged.Empty() {
		if err := p.writeArtifact(dataset, "dataset_classification_flagged", classFlagged, filepath.Join(dir, "dataset_classification_flagged.csv")); err != nil {
			return err
		}
	}

	if stages != nil && !stages.Empty() {
		slideStage := join.JoinStages(slideMap, stages, caseCol)
		if err := p.writeArtifact(dataset, "dataset_classification_stage", slideStage, filepath.Join(dir, "dataset_classification_stage.csv")); err != nil {
			return err
		}
		stageSplit, stageFlagged := join.Split(slideStage, []string{"stage"}, join.StageStratum, p.opts.Split)
		if err := p.writeArtifact(dataset, "dataset_classification_stage_split", stageSplit, filepath.Join(dir, "dataset_classification_stage_split.csv")); err != nil {
			return err
		}
		if !stageFlagged.Empty() {
			if err := p.writeArtifact(dataset, "dataset_classification_stage_flagged", stageFlagged, filepath.Join(dir, "dataset_classification_stage_flagged.csv")); err != nil {
				return err
			}
		}
	}

	return nil
}

// writeArtifact writes one table and records it in the catalog.
func (p *Pipeline) writeArtifact(dataset, kind string, t *table.Table, path string) error {
	const op errors.Op = "pipeline.writeArtifact"

	if err := t.WriteCSV(path); err != nil {
		return errors.E(op, errors.KindIO, err)
	}
	if p.catalog != nil {
		if err := p.catalog.RecordArtifact(dataset, kind, path, t.Len()); err != nil {
			log.Printf("Warning: catalog record for %s: %v", path, err)
		}
	}
	return nil
}
