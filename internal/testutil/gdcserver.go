package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Hit is one search result served by the fake API.
type Hit = map[string]interface{}

// GDCServer is an httptest stand-in for the GDC REST API. It serves
// the search envelope with real pagination over canned hits, and file
// bodies on the data endpoint.
type GDCServer struct {
	*httptest.Server

	mu sync.Mutex
	// hits per search endpoint name ("files", "cases", "projects").
	hits map[string][]Hit
	// files served by the data endpoint, keyed by id.
	files map[string][]byte
	// RejectFields makes search requests that carry an explicit fields
	// list fail with 400, mimicking an unsupported-field error.
	RejectFields bool
	// Requests counts every request received, by path.
	Requests map[string]int
}

// NewGDCServer starts the fake API.
func NewGDCServer() *GDCServer {
	s := &GDCServer{
		hits:     make(map[string][]Hit),
		files:    make(map[string][]byte),
		Requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetHits installs the canned hits for a search endpoint.
func (s *GDCServer) SetHits(endpoint string, hits []Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[endpoint] = hits
}

// SetFile installs a file body for the data endpoint.
func (s *GDCServer) SetFile(id string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = body
}

// RequestCount returns how many requests hit a path prefix.
func (s *GDCServer) RequestCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path, count := range s.Requests {
		if strings.HasPrefix(path, prefix) {
			n += count
		}
	}
	return n
}

func (s *GDCServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.Requests[r.URL.Path]++
	s.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")

	if strings.HasPrefix(path, "data/") {
		s.handleData(w, strings.TrimPrefix(path, "data/"))
		return
	}
	s.handleSearch(w, r, path)
}

func (s *GDCServer) handleData(w http.ResponseWriter, id string) {
	s.mu.Lock()
	body, ok := s.files[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	w.Write(body)
}

func (s *GDCServer) handleSearch(w http.ResponseWriter, r *http.Request, endpoint string) {
	s.mu.Lock()
	hits, ok := s.hits[endpoint]
	reject := s.RejectFields
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown endpoint", http.StatusNotFound)
		return
	}

	// Manifest requests arrive as GET with return_type=manifest.
	if r.URL.Query().Get("return_type") == "manifest" {
		w.Header().Set("Content-Type", "text/tab-separated-values")
		fmt.Fprintln(w, "id\tfilename\tmd5\tsize\tstate")
		for _, h := range hits {
			id, _ := h["file_id"].(string)
			name, _ := h["file_name"].(string)
			fmt.Fprintf(w, "%s\t%s\t\t0\treleased\n", id, name)
		}
		return
	}

	var payload struct {
		Size   int    `json:"size"`
		From   int    `json:"from"`
		Fields string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if reject && payload.Fields != "" {
		http.Error(w, `{"message":"unrecognized field"}`, http.StatusBadRequest)
		return
	}
	if payload.Size <= 0 {
		payload.Size = 10
	}

	start := payload.From
	if start > len(hits) {
		start = len(hits)
	}
	end := start + payload.Size
	if end > len(hits) {
		end = len(hits)
	}

	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"hits": hits[start:end],
			"pagination": map[string]interface{}{
				"total": len(hits),
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// FileHit builds a minimal files-endpoint hit with case linkage.
func FileHit(fileID, fileName, caseID, submitterID, projectID, sampleType string) Hit {
	return Hit{
		"file_id":   fileID,
		"file_name": fileName,
		"cases": []interface{}{
			map[string]interface{}{
				"case_id":      caseID,
				"submitter_id": submitterID,
				"project": map[string]interface{}{
					"project_id": projectID,
				},
				"samples": []interface{}{
					map[string]interface{}{
						"sample_type": sampleType,
					},
				},
			},
		},
	}
}

// CaseHit builds a minimal cases-endpoint hit with clinical fields.
func CaseHit(caseID, submitterID, vitalStatus, daysToDeath, daysToFollowUp, diagnosis string) Hit {
	demographic := map[string]interface{}{
		"vital_status": vitalStatus,
	}
	if daysToDeath != "" {
		demographic["days_to_death"] = daysToDeath
	}
	diag := map[string]interface{}{
		"primary_diagnosis": diagnosis,
	}
	if daysToFollowUp != "" {
		diag["days_to_last_follow_up"] = daysToFollowUp
	}
	return Hit{
		"case_id":      caseID,
		"submitter_id": submitterID,
		"demographic":  demographic,
		"diagnoses":    []interface{}{diag},
	}
}
