// Package downloader implements resumable, size-verified file downloads
// with bounded retry. Files are written to a temporary sibling path and
// renamed into place on completion, so the final path never holds a
// partial file.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// ErrSizeMismatch reports a completed transfer whose byte count differs
// from the expected size. Treated as a failed (retriable) attempt.
var ErrSizeMismatch = errors.New("downloaded size does not match expected size")

// tempSuffix marks in-flight downloads next to their final path.
const tempSuffix = ".part"

// Source opens a remote file stream by identifier. The GDC client
// satisfies this; tests inject fakes.
type Source interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, id string) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	return f(ctx, id)
}

// Item is one file in a batch download.
type Item struct {
	ID           string
	TargetPath   string
	ExpectedSize int64 // <= 0 when unknown
}

// Result reports the outcome of one download.
type Result struct {
	ID       string
	Path     string
	Size     int64
	Skipped  bool
	Attempts int
	Err      error
}

// Downloader drives single and batch downloads against a Source.
type Downloader struct {
	source Source
	policy Policy
	rng    *rand.Rand

	// sleep is swappable in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// New creates a downloader with the given source and retry policy.
func New(source Source, policy Policy) *Downloader {
	return &Downloader{
		source: source,
		policy: policy,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  time.Sleep,
	}
}

// DownloadSingle fetches one file to targetPath. If the target already
// exists and either no expected size is known or the size matches, the
// download is skipped without any network request. A size-mismatched
// existing file is re-downloaded. Transient errors are retried with
// exponential backoff; fatal errors abort immediately.
func (d *Downloader) DownloadSingle(ctx context.Context, id, targetPath string, expectedSize int64) Result {
	res := Result{ID: id, Path: targetPath}

	if stat, err := os.Stat(targetPath); err == nil {
		if expectedSize <= 0 || stat.Size() == expectedSize {
			res.Skipped = true
			res.Size = stat.Size()
			return res
		}
		log.Printf("Warning: %s exists with size %d, expected %d; re-downloading", targetPath, stat.Size(), expectedSize)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		res.Err = err
		return res
	}

	m := NewMachine(d.policy)
	m.Begin()
	for {
		size, err := d.attempt(ctx, id, targetPath, expectedSize)
		res.Attempts = m.Attempt()
		// The caller's own context ending is never worth a retry, even
		// when the transport surfaced it as a retriable timeout.
		if err != nil && ctx.Err() != nil {
			res.Err = fmt.Errorf("download %s aborted after %d attempt(s): %w", id, m.Attempt(), err)
			return res
		}
		switch m.Observe(err) {
		case StateSucceeded:
			res.Size = size
			return res
		case StateFailed:
			res.Err = fmt.Errorf("download %s failed after %d attempt(s): %w", id, m.Attempt(), m.Err())
			return res
		case StateBackoff:
			delay := m.Next(d.rng)
			log.Printf("Warning: download %s attempt %d failed (%v); retrying in %s", id, m.Attempt()-1, err, delay.Round(time.Millisecond))
			d.sleep(delay)
		}
	}
}

// attempt performs one transfer into the temp sibling and renames it
// into place on success. The temp file is removed on any failure.
func (d *Downloader) attempt(ctx context.Context, id, targetPath string, expectedSize int64) (int64, error) {
	body, err := d.source.Open(ctx, id)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmpPath := targetPath + tempSuffix
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}

	n, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && expectedSize > 0 && n != expectedSize {
		copyErr = fmt.Errorf("%w: got %d, expected %d", ErrSizeMismatch, n, expectedSize)
	}
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, copyErr
	}

	// Rename, not copy: a partial file is never visible at targetPath.
	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

// BatchReport aggregates the per-file outcomes of a batch.
type BatchReport struct {
	Results    []Result
	Downloaded int
	Skipped    int
	Failed     []string
}

// DownloadBatch fetches items sequentially, collecting failures instead
// of aborting: one bad file does not block the rest. The optional
// progress callback is invoked after each item.
func (d *Downloader) DownloadBatch(ctx context.Context, items []Item, progress func(done, total int, r Result)) BatchReport {
	report := BatchReport{}
	for i, item := range items {
		r := d.DownloadSingle(ctx, item.ID, item.TargetPath, item.ExpectedSize)
		report.Results = append(report.Results, r)
		switch {
		case r.Err != nil:
			report.Failed = append(report.Failed, item.ID)
			log.Printf("Warning: failed to download %s: %v", item.ID, r.Err)
		case r.Skipped:
			report.Skipped++
		default:
			report.Downloaded++
		}
		if progress != nil {
			progress(i+1, len(items), r)
		}
	}
	if len(report.Failed) > 0 {
		log.Printf("Warning: %d of %d downloads failed: %v", len(report.Failed), len(items), report.Failed)
	}
	return report
}
