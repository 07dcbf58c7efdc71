package gdc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nishad/gdcharvest/internal/testutil"
)

func manyHits(n int) []testutil.Hit {
	hits := make([]testutil.Hit, n)
	for i := range hits {
		hits[i] = testutil.Hit{"file_id": fmt.Sprintf("id-%03d", i)}
	}
	return hits
}

func TestPagedQuerySinglePage(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetHits("files", manyHits(3))

	c := NewClient(srv.URL, "")
	hits, err := c.PagedQuery(context.Background(), "files", EQ("x", "y"), []string{"file_id"}, 10)
	testutil.RequireNoError(t, err, "paged query")
	testutil.AssertEqual(t, len(hits), 3, "hit count")
	testutil.AssertEqual(t, srv.RequestCount("/files"), 1, "single page, single request")
}

func TestPagedQueryAdvancesUntilTotal(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetHits("files", manyHits(25))

	c := NewClient(srv.URL, "")
	hits, err := c.PagedQuery(context.Background(), "files", EQ("x", "y"), nil, 10)
	testutil.RequireNoError(t, err, "paged query")
	testutil.AssertEqual(t, len(hits), 25, "all pages collected")
	testutil.AssertEqual(t, srv.RequestCount("/files"), 3, "three pages of ten")

	// Offsets must not overlap or skip.
	seen := make(map[string]bool)
	for _, h := range hits {
		id := h["file_id"].(string)
		if seen[id] {
			t.Errorf("duplicate hit %s", id)
		}
		seen[id] = true
	}
}

func TestPagedQueryStopsOnEmptyPage(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	// Zero hits but the envelope still reports total 0: must terminate
	// without spinning.
	srv.SetHits("files", nil)

	c := NewClient(srv.URL, "")
	hits, err := c.PagedQuery(context.Background(), "files", EQ("x", "y"), nil, 10)
	testutil.RequireNoError(t, err, "paged query")
	testutil.AssertEqual(t, len(hits), 0, "no hits")
	testutil.AssertEqual(t, srv.RequestCount("/files"), 1, "one request then stop")
}

func TestPagedQueryRetriesWithoutFieldsOn400(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetHits("files", manyHits(2))
	srv.RejectFields = true

	c := NewClient(srv.URL, "")
	hits, err := c.PagedQuery(context.Background(), "files", EQ("x", "y"), []string{"bogus_field"}, 10)
	testutil.RequireNoError(t, err, "query should recover without fields")
	testutil.AssertEqual(t, len(hits), 2, "hits from retried query")
	testutil.AssertEqual(t, srv.RequestCount("/files"), 2, "rejected request plus fieldless retry")
}

func TestPagedQueryFailsWithoutFieldsToDrop(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	c := NewClient(srv.URL, "")

	// Unknown endpoint → 404 with no field list to drop: surfaced as error.
	_, err := c.PagedQuery(context.Background(), "nosuch", EQ("x", "y"), nil, 10)
	if err == nil {
		t.Fatal("expected error from unknown endpoint")
	}
	testutil.AssertContains(t, err.Error(), "nosuch", "error names the endpoint")
}

func TestQueryLogRecordsCounts(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetHits("files", manyHits(4))
	srv.SetHits("cases", manyHits(2))

	c := NewClient(srv.URL, "")
	_, err := c.PagedQuery(context.Background(), "files", EQ("x", "y"), []string{"file_id"}, 10)
	testutil.RequireNoError(t, err, "files query")
	_, err = c.CasesQuery(context.Background(), EQ("a", "b"), nil)
	testutil.RequireNoError(t, err, "cases query")

	logEntries := c.QueryLog()
	testutil.AssertEqual(t, len(logEntries), 2, "two logged queries")
	testutil.AssertEqual(t, logEntries[0].Endpoint, "files", "first endpoint")
	testutil.AssertEqual(t, logEntries[0].ReturnedCount, 4, "first count")
	testutil.AssertEqual(t, logEntries[1].Endpoint, "cases", "second endpoint")
	testutil.AssertEqual(t, logEntries[1].ReturnedCount, 2, "second count")
}

func TestFetchStreamsBody(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetFile("abc", []byte("image bytes"))

	c := NewClient(srv.URL, "")
	body, err := c.Fetch(context.Background(), "data/abc")
	testutil.RequireNoError(t, err, "fetch")
	defer body.Close()

	data, err := io.ReadAll(body)
	testutil.RequireNoError(t, err, "read body")
	testutil.AssertEqual(t, string(data), "image bytes", "body")
}

func TestDataClientHasNoOverallDeadline(t *testing.T) {
	c := NewClient("", "")

	// Metadata queries run under an overall deadline; data transfers
	// must not, or any body read longer than the deadline always fails.
	if c.HTTPClient.Timeout == 0 {
		t.Error("metadata client should carry an overall timeout")
	}
	if c.DataClient.Timeout != 0 {
		t.Errorf("data client timeout = %s, want none (caps the whole body read)", c.DataClient.Timeout)
	}

	transport, ok := c.DataClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("data client transport is %T, want *http.Transport", c.DataClient.Transport)
	}
	if transport.ResponseHeaderTimeout == 0 {
		t.Error("data client should bound the wait for response headers")
	}
}

func TestFetchSlowBodyOutlastsHeaderTimeout(t *testing.T) {
	// Headers arrive promptly but the body trickles in past the header
	// timeout; the transfer must still complete.
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for i := 0; i < 4; i++ {
			time.Sleep(20 * time.Millisecond)
			fmt.Fprint(w, "chunk;")
			flusher.Flush()
		}
	}))
	defer raw.Close()

	c := NewClient(raw.URL, "")
	c.DataClient.Transport.(*http.Transport).ResponseHeaderTimeout = 50 * time.Millisecond

	body, err := c.Fetch(context.Background(), "slow")
	testutil.RequireNoError(t, err, "fetch")
	defer body.Close()

	data, err := io.ReadAll(body)
	testutil.RequireNoError(t, err, "read body")
	testutil.AssertEqual(t, string(data), "chunk;chunk;chunk;chunk;", "full body despite slow read")
}

func TestFetchReportsStatus(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Fetch(context.Background(), "data/missing")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	testutil.AssertContains(t, err.Error(), "404", "status in error")
}

func TestListProjectsDefaultsToTCGA(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetHits("projects", []testutil.Hit{{"project_id": "TCGA-LUSC"}})

	c := NewClient(srv.URL, "")
	hits, err := c.ListProjects(context.Background(), "")
	testutil.RequireNoError(t, err, "list projects")
	testutil.AssertEqual(t, len(hits), 1, "project count")
}

func TestDownloadManifest(t *testing.T) {
	srv := testutil.NewGDCServer()
	defer srv.Close()
	srv.SetHits("files", []testutil.Hit{
		{"file_id": "f1", "file_name": "a.svs"},
		{"file_id": "f2", "file_name": "b.svs"},
	})

	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	manifestPath := filepath.Join(dir, "manifest.txt")

	c := NewClient(srv.URL, "")
	err := c.DownloadManifest(context.Background(), EQ("x", "y"), manifestPath)
	testutil.RequireNoError(t, err, "download manifest")

	data, err := os.ReadFile(manifestPath)
	testutil.RequireNoError(t, err, "read manifest")
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	testutil.AssertEqual(t, len(lines), 3, "header plus two rows")
	testutil.AssertContains(t, lines[0], "filename", "manifest header")
	testutil.AssertContains(t, lines[1], "f1", "first file id")
}
