package gdc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public GDC API endpoint.
	DefaultBaseURL = "https://api.gdc.cancer.gov"

	// TokenEnv names the environment variable holding the auth token.
	// Without a token only open-access files are available, which is not
	// an error condition.
	TokenEnv = "GDC_TOKEN"

	// DefaultPageSize is the number of hits requested per page.
	DefaultPageSize = 5000
)

// QueryRecord captures one issued metadata query for auditability.
type QueryRecord struct {
	Endpoint        string   `json:"endpoint"`
	Filters         Filter   `json:"filters"`
	RequestedFields []string `json:"requested_fields,omitempty"`
	ReturnedCount   int      `json:"returned_count"`
}

// Client is a thin wrapper over the GDC REST API. It supports
// search-and-retrieval endpoints (projects, cases, files) with
// pagination, and data/manifest downloads. The query log records every
// paged query issued through this instance.
type Client struct {
	BaseURL string
	// HTTPClient serves metadata queries under an overall deadline.
	HTTPClient *http.Client
	// DataClient serves data transfers. Client.Timeout would cap the
	// whole body read, which a multi-GB slide can legitimately exceed,
	// so only the wait for response headers is bounded; the caller's
	// context governs the transfer itself.
	DataClient *http.Client
	token      string
	queryLog   []QueryRecord
}

// NewClient creates a GDC client. An empty token restricts results to
// open-access files.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		DataClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
		token: token,
	}
}

// ReadEnvToken returns the auth token from the environment, logging
// whether one was found.
func ReadEnvToken() string {
	token := os.Getenv(TokenEnv)
	if token != "" {
		log.Printf("Using token from env var %s", TokenEnv)
	} else {
		log.Printf("No %s in environment; only open-access files can be downloaded", TokenEnv)
	}
	return token
}

// QueryLog returns the queries issued so far.
func (c *Client) QueryLog() []QueryRecord {
	return c.queryLog
}

// statusError reports a non-2xx response with its status and body prefix.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gdc: HTTP %d: %s", e.Status, e.Body)
}

// queryPayload is the POST body for search endpoints.
type queryPayload struct {
	Filters Filter `json:"filters"`
	Format  string `json:"format"`
	Size    int    `json:"size"`
	From    int    `json:"from"`
	Fields  string `json:"fields,omitempty"`
}

// queryResponse mirrors the GDC search response envelope.
type queryResponse struct {
	Data struct {
		Hits       []map[string]interface{} `json:"hits"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	u := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload interface{}) (*queryResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{Status: resp.StatusCode, Body: string(b)}
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// PagedQuery returns all hits for a filters+fields query, advancing the
// offset until the cumulative count reaches the server-reported total.
// A zero-hit page also terminates the loop, guarding against totals
// inconsistent with the actual result set. If the API rejects the field
// list with HTTP 400, the query is retried once without explicit fields.
func (c *Client) PagedQuery(ctx context.Context, endpoint string, filters Filter, fields []string, size int) ([]map[string]interface{}, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	fieldsStr := strings.Join(fields, ",")

	from := 0
	var allHits []map[string]interface{}
	for {
		payload := queryPayload{
			Filters: filters,
			Format:  "JSON",
			Size:    size,
			From:    from,
			Fields:  fieldsStr,
		}
		data, err := c.postJSON(ctx, endpoint, payload)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 && fieldsStr != "" {
				log.Printf("Warning: %s rejected requested fields; retrying without explicit fields", endpoint)
				fieldsStr = ""
				continue
			}
			return nil, fmt.Errorf("paged query on %s failed: %w", endpoint, err)
		}

		hits := data.Data.Hits
		allHits = append(allHits, hits...)
		total := data.Data.Pagination.Total
		from += size
		if len(allHits) >= total || len(hits) == 0 {
			break
		}
	}

	c.queryLog = append(c.queryLog, QueryRecord{
		Endpoint:        endpoint,
		Filters:         filters,
		RequestedFields: fields,
		ReturnedCount:   len(allHits),
	})
	return allHits, nil
}

// CasesQuery is a PagedQuery against the cases endpoint.
func (c *Client) CasesQuery(ctx context.Context, filters Filter, fields []string) ([]map[string]interface{}, error) {
	return c.PagedQuery(ctx, "cases", filters, fields, DefaultPageSize)
}

// ProjectsQuery is a PagedQuery against the projects endpoint.
func (c *Client) ProjectsQuery(ctx context.Context, filters Filter, fields []string) ([]map[string]interface{}, error) {
	return c.PagedQuery(ctx, "projects", filters, fields, DefaultPageSize)
}

// DefaultProjectFields are the columns returned by ListProjects.
var DefaultProjectFields = []string{
	"project_id",
	"name",
	"disease_type",
	"primary_site",
	"summary.case_count",
	"summary.file_count",
}

// ListProjects returns available projects (datasets) for a program.
func (c *Client) ListProjects(ctx context.Context, program string) ([]map[string]interface{}, error) {
	if program == "" {
		program = "TCGA"
	}
	return c.ProjectsQuery(ctx, EQ("program.name", program), DefaultProjectFields)
}

// Fetch issues a GET against an absolute or API-relative URL and returns
// the response body stream. The caller must close it. Non-2xx statuses
// are returned as *statusError.
func (c *Client) Fetch(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.DataClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &statusError{Status: resp.StatusCode, Body: string(b)}
	}
	return resp.Body, nil
}

// DownloadTar downloads multiple files as a single archive using
// POST /data. This mode is all-or-nothing: there is no per-file
// integrity tracking or resume. Set uncompressed to request a plain .tar
// instead of .tar.gz.
func (c *Client) DownloadTar(ctx context.Context, ids []string, targetPath string, uncompressed bool) error {
	endpoint := "data"
	if uncompressed {
		endpoint += "?tarfile=true"
	}
	payload, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.DataClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Status: resp.StatusCode, Body: string(b)}
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	log.Printf("Downloaded %d files -> %s", len(ids), targetPath)
	return nil
}

// DownloadManifest saves a TSV manifest for a filter set using
// return_type=manifest on /files. Filters are JSON-encoded into the
// query string as the API requires.
func (c *Client) DownloadManifest(ctx context.Context, filters Filter, manifestPath string) error {
	fj, err := json.Marshal(filters)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("filters", string(fj))
	q.Set("return_type", "manifest")

	body, err := c.Fetch(ctx, "files?"+q.Encode())
	if err != nil {
		return fmt.Errorf("manifest request failed: %w", err)
	}
	defer body.Close()

	out, err := os.Create(manifestPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, body); err != nil {
		return err
	}
	log.Printf("Wrote manifest: %s", manifestPath)
	return nil
}
