// Package catalog persists run history in SQLite: issued metadata
// queries, per-file download outcomes, and produced artifacts. The
// catalog complements the JSON run log with a queryable record of what
// each run did.
package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog wraps the run-catalog database.
type Catalog struct {
	db    *sql.DB
	runID int64
}

// Open opens (or creates) the catalog database and starts a new run.
func Open(path string, datasets []string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog tables: %w", err)
	}

	res, err := db.Exec(
		`INSERT INTO runs (started_at, datasets) VALUES (?, ?)`,
		time.Now().UTC(), strings.Join(datasets, ","),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	c.runID, _ = res.LastInsertId()
	return c, nil
}

// createTables creates the necessary database tables
func (c *Catalog) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP,
			datasets TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			endpoint TEXT NOT NULL,
			filters TEXT,
			returned_count INTEGER DEFAULT 0,
			issued_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,

		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			file_id TEXT NOT NULL,
			target_path TEXT,
			size INTEGER DEFAULT 0,
			attempts INTEGER DEFAULT 0,
			skipped INTEGER DEFAULT 0,
			error TEXT,
			finished_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,

		`CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			dataset TEXT NOT NULL,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			rows INTEGER DEFAULT 0,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_queries_run ON queries(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_dataset ON artifacts(dataset)`,
	}

	for _, q := range queries {
		if _, err := c.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// RecordQuery stores one issued metadata query.
func (c *Catalog) RecordQuery(endpoint, filters string, returnedCount int) error {
	_, err := c.db.Exec(
		`INSERT INTO queries (run_id, endpoint, filters, returned_count) VALUES (?, ?, ?, ?)`,
		c.runID, endpoint, filters, returnedCount,
	)
	return err
}

// RecordDownload stores one per-file download outcome.
func (c *Catalog) RecordDownload(fileID, targetPath string, size int64, attempts int, skipped bool, dlErr error) error {
	errText := ""
	if dlErr != nil {
		errText = dlErr.Error()
	}
	_, err := c.db.Exec(
		`INSERT INTO downloads (run_id, file_id, target_path, size, attempts, skipped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.runID, fileID, targetPath, size, attempts, boolInt(skipped), errText,
	)
	return err
}

// RecordArtifact stores one produced artifact.
func (c *Catalog) RecordArtifact(dataset, kind, path string, rows int) error {
	_, err := c.db.Exec(
		`INSERT INTO artifacts (run_id, dataset, kind, path, rows) VALUES (?, ?, ?, ?, ?)`,
		c.runID, dataset, kind, path, rows,
	)
	return err
}

// Artifact describes one recorded artifact.
type Artifact struct {
	Dataset string `json:"dataset"`
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
}

// ArtifactsForDataset returns the most recent run's artifacts for a
// dataset.
func (c *Catalog) ArtifactsForDataset(dataset string) ([]Artifact, error) {
	rows, err := c.db.Query(
		`SELECT dataset, kind, path, rows FROM artifacts
		 WHERE dataset = ? AND run_id = (SELECT MAX(run_id) FROM artifacts WHERE dataset = ?)`,
		dataset, dataset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Dataset, &a.Kind, &a.Path, &a.Rows); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Datasets returns the distinct datasets with recorded artifacts.
func (c *Catalog) Datasets() ([]string, error) {
	rows, err := c.db.Query(`SELECT DISTINCT dataset FROM artifacts ORDER BY dataset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FailedDownloads returns the failed file ids of the current run.
func (c *Catalog) FailedDownloads() ([]string, error) {
	rows, err := c.db.Query(
		`SELECT file_id FROM downloads WHERE run_id = ? AND error != ''`, c.runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CompleteRun marks the current run finished.
func (c *Catalog) CompleteRun() error {
	_, err := c.db.Exec(`UPDATE runs SET completed_at = ? WHERE id = ?`, time.Now().UTC(), c.runID)
	return err
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
