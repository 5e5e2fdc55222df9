// Package httpapi exposes the upload pipeline and merge engine over HTTP.
// Authentication is delegated to the fronting identity proxy; requests
// arrive with the caller's email in the X-User-Email header and are
// resolved against the user directory.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/server/repositories/users"
	"github.com/printbatch/printbatch/internal/server/services"
)

// StoreStatus is the slice of the object store the health endpoint reports
// on. Both methods are non-fatal probes.
type StoreStatus interface {
	TestConnection(ctx context.Context) bool
	RepositoryInfo(ctx context.Context) (string, error)
}

// Server is the HTTP boundary of the batch print service.
type Server struct {
	server  *http.Server
	mux     *http.ServeMux
	uploads *services.UploadService
	merges  *services.MergeService
	users   users.Repository
	status  StoreStatus
	log     logging.Logger
}

// NewServer wires the route table. Uses Go 1.22 method patterns so the mux
// handles method dispatch and path parameters.
func NewServer(uploads *services.UploadService, merges *services.MergeService, directory users.Repository, status StoreStatus, log logging.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		uploads: uploads,
		merges:  merges,
		users:   directory,
		status:  status,
		log:     log.With("component", "http"),
	}

	s.mux.HandleFunc("POST /api/uploads", s.handleUpload)
	s.mux.HandleFunc("DELETE /api/uploads/{id}", s.handleDeleteUpload)
	s.mux.HandleFunc("GET /api/uploads", s.handleListUploads)
	s.mux.HandleFunc("GET /api/batches/{batch}/uploads", s.handleBatchUploads)
	s.mux.HandleFunc("POST /api/batches/{batch}/merge", s.handleMerge)
	s.mux.HandleFunc("GET /api/batches/{batch}/merged", s.handleMerged)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler returns the route table, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins serving on addr in the background.
func (s *Server) Start(addr string) {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(context.Background(), "http server stopped", "error", err)
		}
	}()
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
