// Package server exposes the scraping engine over HTTP: a synchronous
// scrape endpoint, and init/progress endpoints that stream job updates
// as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"

	"mapleads/internal/model"
	"mapleads/internal/session"
)

// Scraper runs one request to completion. Implemented by
// *scrape.Orchestrator.
type Scraper interface {
	Run(ctx context.Context, req model.SearchRequest) ([]model.BusinessRecord, error)
}

type Server struct {
	scraper  Scraper
	sessions *session.Manager
	logger   *log.Logger
}

func New(scraper Scraper, sessions *session.Manager, logger *log.Logger) *Server {
	return &Server{scraper: scraper, sessions: sessions, logger: logger}
}

// Handler builds the route table with permissive CORS, matching the
// browser-frontend consumers of the original service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scrape", s.handleScrape)
	mux.HandleFunc("POST /api/scrape/init", s.handleInit)
	mux.HandleFunc("GET /api/scrape/progress/{id}", s.handleProgress)
	mux.HandleFunc("DELETE /api/scrape/progress/{id}", s.handleCancel)
	return cors.AllowAll().Handler(mux)
}

// handleScrape runs a request synchronously and returns the full result
// set. Zero results is still a success.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.scraper.Run(r.Context(), req)
	if err != nil {
		s.writeScrapeError(w, err)
		return
	}
	if results == nil {
		results = []model.BusinessRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

// handleInit registers a background job and hands back its id for the
// progress stream.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.sessions.Create(req)
	if err != nil {
		s.writeScrapeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

// handleProgress streams a job's events as SSE until the terminal event
// or the client disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	events, detach, err := s.sessions.Subscribe(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown scrape session")
		return
	}
	defer detach()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encoding progress event", "id", id, "err", err)
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleCancel requests job cancellation; it takes effect at the next
// locality boundary.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Cancel(id); err != nil {
		writeError(w, http.StatusNotFound, "unknown scrape session")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"cancelled": true})
}

// writeScrapeError maps the error taxonomy onto status codes: bad
// input is the client's fault, everything else is reported as an
// internal failure with its message and nothing more.
func (s *Server) writeScrapeError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("scrape failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": err.Error(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
