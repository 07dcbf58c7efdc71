// Package api serves harvested artifacts over HTTP: dataset listings,
// produced tables, run statistics, and metadata search.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nishad/gdcharvest/internal/search"
)

// Server represents the HTTP artifact server
type Server struct {
	router    *mux.Router
	server    *http.Server
	store     *ArtifactStore
	index     *search.Index
	startedAt time.Time
}

// Config holds server configuration
type Config struct {
	Host       string
	Port       int
	OutputDir  string
	IndexPath  string
	EnableCORS bool
}

// NewServer creates a new artifact server instance
func NewServer(cfg *Config) (*Server, error) {
	store, err := NewArtifactStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	s := &Server{
		router:    mux.NewRouter(),
		store:     store,
		startedAt: time.Now(),
	}

	// Search is optional: the server runs without an index.
	if cfg.IndexPath != "" {
		ix, err := search.Open(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open search index: %w", err)
		}
		s.index = ix
	}

	s.setupRoutes()

	if cfg.EnableCORS {
		s.router.Use(corsMiddleware)
	}
	s.router.Use(loggingMiddleware)
	s.router.Use(jsonMiddleware)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Dataset endpoints
	api.HandleFunc("/datasets", s.handleListDatasets).Methods("GET")
	api.HandleFunc("/datasets/{dataset}", s.handleGetDataset).Methods("GET")
	api.HandleFunc("/datasets/{dataset}/artifacts", s.handleListArtifacts).Methods("GET")
	api.HandleFunc("/datasets/{dataset}/artifacts/{name}", s.handleGetArtifact).Methods("GET")
	api.HandleFunc("/datasets/{dataset}/runlog", s.handleGetRunLog).Methods("GET")

	// Statistics endpoints
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/stats/{dataset}", s.handleGetDatasetStats).Methods("GET")

	// Search endpoint (available when an index is configured)
	api.HandleFunc("/search", s.handleSearch).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting artifact server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down artifact server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Middleware functions

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  status,
	})
}

// handleRoot returns API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "gdcharvest API",
		"version":     "1.0.0",
		"description": "GDC harvest artifact server",
		"endpoints": map[string]string{
			"datasets": "/api/v1/datasets",
			"stats":    "/api/v1/stats",
			"search":   "/api/v1/search",
			"health":   "/api/v1/health",
		},
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	}

	if err := s.store.Health(); err != nil {
		health["status"] = "unhealthy"
		health["artifact_store"] = err.Error()
	} else {
		health["artifact_store"] = "healthy"
	}

	if s.index != nil {
		if n, err := s.index.DocCount(); err != nil {
			health["status"] = "unhealthy"
			health["search_index"] = err.Error()
		} else {
			health["search_index"] = fmt.Sprintf("healthy (%d docs)", n)
		}
	} else {
		health["search_index"] = "disabled"
	}

	status := http.StatusOK
	if health["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, health)
}
