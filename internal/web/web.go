package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appLog "kidplan/internal/log"
	"kidplan/internal/model"
	"kidplan/internal/store"
)

const (
	msgImported = "Event imported and synced to child task list."
	msgUpdated  = "Event updated successfully."
	msgNotFound = "Event not found."
)

// Repository is the persistence the HTTP handlers need.
type Repository interface {
	AppendImport(ctx context.Context, childID, title string, duration float64) error
	Log(ctx context.Context, childID string) ([]model.LogEntry, error)
	Tasks(ctx context.Context, childID string) ([]model.ChildTask, error)
	Rename(ctx context.Context, childID, oldTitle, newTitle string, newDuration float64) error
}

// Server exposes the calendar import API.
type Server struct {
	repo Repository
	mux  *http.ServeMux
}

// NewServer constructs a Server backed by repo.
func NewServer(repo Repository) *Server {
	s := &Server{
		repo: repo,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Run serves on listen until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /calendar/import", s.handleImport)
	s.mux.HandleFunc("GET /calendar/{child_id}/log", s.handleLog)
	s.mux.HandleFunc("GET /calendar/{child_id}/tasks", s.handleTasks)
	s.mux.HandleFunc("PUT /calendar/{child_id}/update", s.handleUpdate)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// importBody mirrors model.ImportRequest with pointers so that missing
// fields can be told apart from zero values.
type importBody struct {
	ChildID         *string  `json:"child_id"`
	EventTitle      *string  `json:"event_title"`
	DurationMinutes *float64 `json:"duration_minutes"`
}

// handleImport appends the event to the child's calendar log and syncs it
// into the child's task list.
//
// POST /calendar/import {"child_id","event_title","duration_minutes"}
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var body importBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	switch {
	case body.ChildID == nil || *body.ChildID == "":
		writeError(w, http.StatusUnprocessableEntity, "child_id is required")
		return
	case body.EventTitle == nil:
		writeError(w, http.StatusUnprocessableEntity, "event_title is required")
		return
	case body.DurationMinutes == nil:
		writeError(w, http.StatusUnprocessableEntity, "duration_minutes is required")
		return
	case *body.DurationMinutes < 0:
		writeError(w, http.StatusUnprocessableEntity, "duration_minutes must not be negative")
		return
	}

	if err := s.repo.AppendImport(r.Context(), *body.ChildID, *body.EventTitle, *body.DurationMinutes); err != nil {
		appLog.Error("calendar import failed", err, "child_id", *body.ChildID)
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	appLog.Info("calendar event imported",
		"child_id", *body.ChildID,
		"title", *body.EventTitle,
		"duration", *body.DurationMinutes,
	)
	writeJSON(w, http.StatusOK, model.ImportResponse{Message: msgImported})
}

// handleLog returns the raw imported events of a child.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("child_id")
	entries, err := s.repo.Log(r.Context(), childID)
	if err != nil {
		appLog.Error("calendar log read failed", err, "child_id", childID)
		writeError(w, http.StatusInternalServerError, "failed to read calendar log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleTasks returns the synced task list of a child.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("child_id")
	tasks, err := s.repo.Tasks(r.Context(), childID)
	if err != nil {
		appLog.Error("task list read failed", err, "child_id", childID)
		writeError(w, http.StatusInternalServerError, "failed to read tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// updateBody mirrors model.UpdateRequest; all fields are required.
type updateBody struct {
	OldTitle    *string  `json:"old_title"`
	NewTitle    *string  `json:"new_title"`
	NewDuration *float64 `json:"new_duration"`
}

// handleUpdate renames and re-times a previously imported event, e.g.
// after it was dragged on the grid.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("child_id")

	var body updateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if body.OldTitle == nil || body.NewTitle == nil || body.NewDuration == nil {
		writeError(w, http.StatusUnprocessableEntity, "old_title, new_title and new_duration are required")
		return
	}

	err := s.repo.Rename(r.Context(), childID, *body.OldTitle, *body.NewTitle, *body.NewDuration)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		appLog.Error("calendar update failed", err, "child_id", childID)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	writeJSON(w, http.StatusOK, model.ImportResponse{Message: msgUpdated})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

// writeError replies with {"detail": msg}, the error shape the planner
// front-ends already understand.
func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Detail string `json:"detail"`
	}
	writeJSON(w, status, errResp{Detail: msg})
}
