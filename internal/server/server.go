// Package server provides the HTTP API: PDF upload, question answering and
// the display transcript.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"pdfrag/internal/rag"
	"pdfrag/internal/transcript"
)

// Server is the HTTP server for the question-answering API.
type Server struct {
	ingestor *rag.Ingestor
	querier  *rag.Querier
	history  *transcript.Log
	server   *http.Server
}

// New creates a server with the given pipelines.
func New(ingestor *rag.Ingestor, querier *rag.Querier, history *transcript.Log) *Server {
	return &Server{
		ingestor: ingestor,
		querier:  querier,
		history:  history,
	}
}

// Router builds the route table. Split out from Start so tests can mount it
// on httptest servers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(allowCORS)

	r.Post("/upload", s.handleUpload)
	r.Post("/query", s.handleQuery)
	r.Get("/history", s.handleHistory)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	log.Info().Str("addr", addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// allowCORS mirrors the permissive CORS policy of the original deployment:
// the browser client is served from a different origin.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
