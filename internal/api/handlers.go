package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// Dataset handlers

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.Datasets()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	dataset := mux.Vars(r)["dataset"]
	if !s.store.HasDataset(dataset) {
		s.writeError(w, http.StatusNotFound, "Dataset not found: "+dataset)
		return
	}

	artifacts, err := s.store.Artifacts(dataset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"dataset":   dataset,
		"artifacts": artifacts,
	}
	if stats, err := s.store.Stats(dataset); err == nil {
		resp["stats"] = stats
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	dataset := mux.Vars(r)["dataset"]
	if !s.store.HasDataset(dataset) {
		s.writeError(w, http.StatusNotFound, "Dataset not found: "+dataset)
		return
	}

	artifacts, err := s.store.Artifacts(dataset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset":   dataset,
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, err := s.store.OpenArtifact(vars["dataset"], vars["name"])
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, "Artifact not found: "+vars["name"])
		} else {
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	// Artifacts are served verbatim; override the JSON default.
	switch {
	case strings.HasSuffix(path, ".csv"):
		w.Header().Set("Content-Type", "text/csv")
	case strings.HasSuffix(path, ".tsv"), strings.HasSuffix(path, ".txt"):
		w.Header().Set("Content-Type", "text/plain")
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleGetRunLog(w http.ResponseWriter, r *http.Request) {
	dataset := mux.Vars(r)["dataset"]
	runLog, err := s.store.RunLog(dataset)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, "No run log for dataset: "+dataset)
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, runLog)
}

// Statistics handlers

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.Datasets()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	perDataset := make(map[string]interface{})
	for _, d := range datasets {
		if stats, err := s.store.Stats(d); err == nil {
			perDataset[d] = stats
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": len(datasets),
		"stats":    perDataset,
	})
}

func (s *Server) handleGetDatasetStats(w http.ResponseWriter, r *http.Request) {
	dataset := mux.Vars(r)["dataset"]
	stats, err := s.store.Stats(dataset)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, "No stats for dataset: "+dataset)
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// Search handler

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Search index not configured")
		return
	}

	q := r.URL.Query()
	queryStr := q.Get("q")
	if queryStr == "" {
		queryStr = q.Get("query")
	}

	limit := 20
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}

	filters := make(map[string]string)
	for _, field := range []string{"type", "project_id", "data_format", "sample_type"} {
		if v := q.Get(field); v != "" {
			filters[field] = v
		}
	}

	result, err := s.index.SearchWithFilters(queryStr, filters, limit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hits := make([]map[string]interface{}, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, map[string]interface{}{
			"id":     hit.ID,
			"score":  hit.Score,
			"fields": hit.Fields,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"query": queryStr,
		"total": result.Total,
		"hits":  hits,
	})
}
