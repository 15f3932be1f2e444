package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kbassist/internal/chat"
	"github.com/hyperjump/kbassist/internal/knowledge"
	"github.com/hyperjump/kbassist/internal/lexical"
	"github.com/hyperjump/kbassist/internal/library"
	"github.com/hyperjump/kbassist/internal/mirror"
	"github.com/hyperjump/kbassist/internal/models"
	"github.com/hyperjump/kbassist/internal/retrieval"
	"github.com/hyperjump/kbassist/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.deps.Sessions.GetOrCreate(req.SessionID)
	s.logger.Debug("chat request", zap.String("session_id", sess.ID), zap.Int("question_len", len(req.Question)))
	ans, err := s.deps.Chain.Ask(r.Context(), sess.Memory, req.Question)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.ChatResponse{
		SessionID: sess.ID,
		Answer:    ans.Text,
		Sources:   chunks(ans.Sources),
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var query models.RetrieveQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(s.config.Search.K, s.config.Search.ScoreThreshold); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.retriever.Ready() {
		s.respondErr(w, chat.ErrNoKnowledgeBase)
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", query.Query), zap.Int("k", query.K))
	start := time.Now()
	docs := s.retriever.RetrieveWith(query.Query, retrieval.Config{K: query.K, ScoreThreshold: *query.ScoreThreshold})
	elapsed := time.Since(start)
	s.deps.Metrics.ObserveRetrieval(elapsed, len(docs))
	results := chunks(docs)
	s.respondJSON(w, http.StatusOK, &models.RetrieveResponse{
		Query:     query.Query,
		Results:   results,
		Total:     len(results),
		QueryTime: elapsed.Milliseconds(),
	})
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.deps.Sessions.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"messages":   sess.Memory.Messages(),
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.deps.Sessions.Delete(id) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"ready":  s.deps.Base.Ready(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{
		"knowledge_base":  s.deps.Base.Status(ctx),
		"active_sessions": s.deps.Sessions.Len(),
	}
	if s.deps.Registry != nil {
		docCount, err := s.deps.Registry.CountDocuments(ctx)
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["registered_documents"] = docCount
		if build, err := s.deps.Registry.LatestBuild(ctx); err == nil {
			resp["last_build"] = build
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("status: latest build failed", zap.Error(err))
		}
	}
	if info, err := s.deps.Library.Info(ctx); err == nil {
		resp["library"] = info
	}

	configInfo := map[string]interface{}{
		"chunk_size":      s.config.Chunking.ChunkSize,
		"chunk_overlap":   s.config.Chunking.Overlap,
		"k":               s.config.Search.K,
		"score_threshold": s.config.Search.ScoreThreshold,
		"model":           s.config.LLM.Model,
		"embedding_model": knowledge.EmbeddingModel,
		"mirror_enabled":  s.deps.Base.MirrorEnabled(),
		"database_path":   s.config.Storage.DatabasePath,
		"embeddings_dir":  s.config.Storage.EmbeddingsDir,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.PDFDir,
		s.config.Storage.EmbeddingsDir,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func chunks(docs []retrieval.Document) []*models.RetrievedChunk {
	out := make([]*models.RetrievedChunk, len(docs))
	for i, d := range docs {
		out[i] = &models.RetrievedChunk{Content: d.Content, Score: d.Score, Rank: i + 1}
	}
	return out
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrNoKnowledgeBase):
		return http.StatusServiceUnavailable
	case errors.Is(err, library.ErrExists):
		return http.StatusConflict
	case errors.Is(err, library.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, library.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, mirror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInvalidFile),
		errors.Is(err, knowledge.ErrNoDocuments),
		errors.Is(err, lexical.ErrEmptyVocabulary),
		errors.Is(err, lexical.ErrNoTermsRemain):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
