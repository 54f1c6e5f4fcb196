// Package server implements a development document server exposing the
// endpoints the sync core talks to: GET/PATCH for the document and a
// websocket push endpoint for status events. Integration tests run it
// in-process; cmd/devserver runs it standalone.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	stdsync "sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bridgesync/bridgesync/internal/core/document"
	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	syncclient "github.com/bridgesync/bridgesync/internal/core/sync"
)

// Server holds one in-memory document and a push hub.
type Server struct {
	logger log.Log
	hub    *Hub

	mu  stdsync.Mutex
	doc document.Value

	httpServer *http.Server
}

// New creates a server seeded with the given document.
func New(seed document.Value, logger log.Log) *Server {
	return &Server{
		logger: logger.With(log.String("component", "dev_server")),
		hub:    NewHub(logger),
		doc:    seed.Clone(),
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/document", s.handleGetDocument)
	r.Patch("/api/v1/document", s.handlePatchDocument)
	r.Get("/api/v1/events", s.hub.HandleSubscribe)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Router()}
	s.logger.Info("dev server listening", log.String("addr", addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dev server stopped", log.Error(err))
		}
	}()
	return nil
}

// Stop shuts the HTTP server down and disconnects push subscribers.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Document returns a copy of the current document.
func (s *Server) Document() document.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Broadcast pushes a named event to all subscribers.
func (s *Server) Broadcast(event, payload string) {
	s.hub.Broadcast(event, payload)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.doc.Clone()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error("document encode failed", log.Error(err))
	}
}

func (s *Server) handlePatchDocument(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != syncclient.PatchContentType {
		http.Error(w, fmt.Sprintf("unsupported content type %q", ct), http.StatusUnsupportedMediaType)
		return
	}

	var ops []document.Op
	if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patched, err := document.Apply(s.doc, ops)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.doc = patched

	s.logger.Debug("patch applied", log.Int("ops", len(ops)))
	w.WriteHeader(http.StatusNoContent)
}
