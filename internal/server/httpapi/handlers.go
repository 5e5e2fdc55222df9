package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/server/models"
	"github.com/printbatch/printbatch/internal/server/services"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing;
// larger parts spill to temp files.
const maxUploadMemory = 32 << 20

type errorResponse struct {
	Error    string `json:"error"`
	Accepted *int   `json:"accepted,omitempty"`
}

type uploadView struct {
	ID               int64     `json:"id"`
	FileName         string    `json:"file_name"`
	OriginalFileName string    `json:"original_file_name"`
	Batch            string    `json:"batch"`
	Size             int64     `json:"size"`
	UploadedAt       time.Time `json:"uploaded_at"`
	Status           string    `json:"status"`
}

func toView(u *models.Upload) uploadView {
	return uploadView{
		ID:               u.ID,
		FileName:         u.FileName,
		OriginalFileName: u.OriginalFileName,
		Batch:            u.Batch,
		Size:             u.Size,
		UploadedAt:       u.UploadedAt,
		Status:           string(u.Status),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP statuses. Unknown errors read as
// internal failures so callers never see raw internals.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidFileType), errors.Is(err, common.ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrEmptyBatch):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, common.ErrStorageFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, accepted *int) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Accepted: accepted})
}

// caller resolves the requesting user from the X-User-Email header. A
// missing header is a bad request; an unknown address is a forbidden one.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	email := strings.TrimSpace(r.Header.Get("X-User-Email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-User-Email header"})
		return nil, false
	}
	user, err := s.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: fmt.Sprintf("unknown user %s", email)})
			return nil, false
		}
		s.writeError(w, r, err, nil)
		return nil, false
	}
	return user, true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := s.caller(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}

	batchLabel := strings.TrimSpace(r.FormValue("batch"))
	if batchLabel == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing batch name"})
		return
	}

	var files []services.IncomingFile
	for _, fh := range r.MultipartForm.File["files"] {
		part, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unreadable part %s", fh.Filename)})
			return
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unreadable part %s", fh.Filename)})
			return
		}
		files = append(files, services.IncomingFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        data,
		})
	}

	accepted, err := s.uploads.Upload(r.Context(), files, batchLabel, user)
	if err != nil {
		s.writeError(w, r, err, &accepted)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := s.caller(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid upload id"})
		return
	}

	if err := s.uploads.Delete(r.Context(), id, user); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	user, ok := s.caller(w, r)
	if !ok {
		return
	}

	list, err := s.uploads.ListUserUploads(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	views := make([]uploadView, 0, len(list))
	for _, u := range list {
		views = append(views, toView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleBatchUploads(w http.ResponseWriter, r *http.Request) {
	list, err := s.uploads.ListBatchPending(r.Context(), r.PathValue("batch"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	views := make([]uploadView, 0, len(list))
	for _, u := range list {
		views = append(views, toView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	batchLabel := r.PathValue("batch")

	res, err := s.merges.MergeAndCommit(r.Context(), batchLabel)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch":   res.Batch,
		"files":   res.Merged,
		"skipped": res.Failed,
		"bytes":   len(res.Data),
	})
}

func (s *Server) handleMerged(w http.ResponseWriter, r *http.Request) {
	batchLabel := r.PathValue("batch")

	data, err := s.merges.Merged(batchLabel)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	name := strings.ReplaceAll(batchLabel, " ", "_") + "_merged.pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := s.status.TestConnection(r.Context())

	info := ""
	if connected {
		if v, err := s.status.RepositoryInfo(r.Context()); err == nil {
			info = v
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"storage":    connected,
		"repository": info,
	})
}
