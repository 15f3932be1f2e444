package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kbassist/internal/library"
	"go.uber.org/zap"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, expires, ok := s.auth.login(req.Password)
	if !ok {
		s.logger.Warn("admin login rejected", zap.String("remote", r.RemoteAddr))
		s.respondError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	s.respondJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	res, err := s.Rebuild(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	resp := map[string]interface{}{
		"status":   "rebuilt",
		"manifest": res.Manifest,
		"skipped":  res.Skipped,
	}
	if res.MirrorErr != nil {
		resp["mirror_error"] = res.MirrorErr.Error()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocumentsList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Library.List(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": entries, "total": len(entries)})
}

func (s *Server) handleDocumentsUpload(w http.ResponseWriter, r *http.Request) {
	maxFiles := int64(s.config.Upload.MaxFiles)
	if maxFiles <= 0 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxFileSizeBytes()*maxFiles+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files in field \"files\"")
		return
	}
	// One description applies to every file; one per file pairs by position.
	descriptions := r.MultipartForm.Value["description"]
	files := make([]library.File, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)
		var desc string
		switch {
		case len(descriptions) == len(headers):
			desc = descriptions[i]
		case len(descriptions) > 0:
			desc = descriptions[0]
		}
		files = append(files, library.File{Name: fh.Filename, Description: desc, Reader: f})
	}

	results, err := s.deps.Library.UploadMany(r.Context(), files)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	uploaded := 0
	for _, res := range results {
		if res.Error == "" {
			uploaded++
		}
	}
	status := http.StatusCreated
	if uploaded == 0 {
		status = http.StatusBadRequest
	}
	s.respondJSON(w, status, map[string]interface{}{"uploaded": uploaded, "results": results})
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.logger.Debug("delete document request", zap.String("name", name))
	if err := s.deps.Library.Delete(r.Context(), name); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"name": name, "status": "deleted"})
}

func (s *Server) handleBackupsList(w http.ResponseWriter, r *http.Request) {
	backups, err := s.deps.Library.ListBackups()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"backups": backups})
}

type backupRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleBackupCreate(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	manifest, err := s.deps.Library.Backup(r.Context(), req.Name)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, manifest)
}

func (s *Server) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := s.deps.Library.Restore(r.Context(), name)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"backup_name": name, "restored": n})
}
