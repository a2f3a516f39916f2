// Package server exposes the enriched feed over HTTP as JSON. The news
// endpoint is TTL-gated: a fresh snapshot is served as-is, a stale one
// triggers a pipeline refresh.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/pipeline"
)

// Server is the HTTP front end over the refresh pipeline.
type Server struct {
	pipe *pipeline.Pipeline
	ttl  time.Duration
	mux  *http.ServeMux
}

// New creates a server over the given pipeline with the given snapshot
// freshness window.
func New(pipe *pipeline.Pipeline, ttl time.Duration) *Server {
	s := &Server{pipe: pipe, ttl: ttl, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/news", s.handleNews)
	s.mux.HandleFunc("/api/context", s.handleContext)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.pipe.Cache().Fresh(s.ttl) {
		if rec, err := s.pipe.Cache().ReadRecord(); err == nil {
			w.Header().Set("X-News-Source", "cache")
			writeJSON(w, map[string]any{
				"lastUpdated": rec.LastUpdated,
				"news":        emptyFeed(rec.News),
			})
			return
		}
	}

	result, err := s.pipe.Run(r.Context())
	if err != nil {
		http.Error(w, "refresh failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("X-News-Source", result.Origin)
	writeJSON(w, map[string]any{
		"lastUpdated": result.StartedAt.UTC().Format(time.RFC3339),
		"news":        emptyFeed(result.Events),
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, bias := s.pipe.MarketContext(r.Context())
	writeJSON(w, map[string]any{
		"text": text,
		"bias": bias,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// emptyFeed keeps the news payload an array when the feed is nil.
func emptyFeed(events []event.EnrichedEvent) []event.EnrichedEvent {
	if events == nil {
		return []event.EnrichedEvent{}
	}
	return events
}

// Serve starts the HTTP server on the given port.
func Serve(pipe *pipeline.Pipeline, port int, ttl time.Duration) error {
	srv := New(pipe, ttl)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
