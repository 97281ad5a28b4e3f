package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"pdfrag/internal/models"
	"pdfrag/internal/rag"
)

const maxUploadBytes = 64 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	uploads := make([]rag.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("read %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("read %s: %v", fh.Filename, err))
			return
		}
		uploads = append(uploads, rag.Upload{Name: fh.Filename, Data: data})
	}

	count, err := s.ingestor.Ingest(r.Context(), uploads)
	if err != nil {
		log.Error().Err(err).Int("files", len(uploads)).Msg("ingestion failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%d chunks indexed from %d file(s)", count, len(uploads)),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	s.history.Append(models.RoleUser, req.Question)
	answer, err := s.querier.Answer(r.Context(), req.Question)
	if err != nil {
		// The failed turn stays visible in the transcript instead of
		// silently dropping the question.
		s.history.Append(models.RoleAssistant, "Error: could not get an answer.")
		if errors.Is(err, rag.ErrNoIndex) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("question", req.Question).Msg("query failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.history.Append(models.RoleAssistant, answer)
	s.respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string][]models.ChatTurn{"turns": s.history.Turns()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
