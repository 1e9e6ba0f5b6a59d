package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"skald/internal/api"
	"skald/internal/config"
	"skald/internal/events"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/workflow"
)

const maxSubmitBytes = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/api/v1/jobs", srv.handleSubmit)
		r.Get("/api/v1/jobs", srv.handleList)
		r.Delete("/api/v1/jobs", srv.handleClear)
		r.Get("/api/v1/jobs/{jobID}", srv.handleGet)
		r.Delete("/api/v1/jobs/{jobID}", srv.handleRemove)
		r.Get("/api/v1/jobs/{jobID}/download", srv.handleDownload)
		r.Get("/api/v1/status", srv.handleStatus)
		r.Get("/healthz", srv.handleHealthz)
	})
	// The event stream outlives any sane request timeout.
	router.Get("/api/v1/jobs/{jobID}/events", srv.handleEvents)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.daemon.Submit(r.Context(), req.ContentType, req.Topic, string(req.Options))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, workflow.ErrStopped):
		s.writeError(w, http.StatusServiceUnavailable, "daemon is shutting down")
		return
	default:
		s.logger.Error("submit failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, err := jobs.ParseStatus(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, status)
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := s.daemon.store.List(r.Context(), limit, statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(records)})
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	if job.Status == jobs.StatusProcessing {
		s.writeError(w, http.StatusConflict, "job is still processing")
		return
	}
	if _, err := s.daemon.store.Remove(r.Context(), job.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: 1})
}

func (s *apiServer) handleClear(w http.ResponseWriter, r *http.Request) {
	var (
		removed int64
		err     error
	)
	switch strings.TrimSpace(r.URL.Query().Get("status")) {
	case "":
		removed, err = s.daemon.store.Clear(r.Context())
	case string(jobs.StatusCompleted):
		removed, err = s.daemon.store.ClearCompleted(r.Context())
	case string(jobs.StatusFailed):
		removed, err = s.daemon.store.ClearFailed(r.Context())
	default:
		s.writeError(w, http.StatusBadRequest, "clear accepts status completed or failed")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.StatusCompleted || job.PrimaryOutput == "" {
		s.writeError(w, http.StatusConflict, "job output is not ready")
		return
	}
	if _, err := os.Stat(job.PrimaryOutput); err != nil {
		s.writeError(w, http.StatusNotFound, "output file not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(job.PrimaryOutput)+"\"")
	http.ServeFile(w, r, job.PrimaryOutput)
}

// handleEvents upgrades to a WebSocket, replays the current snapshot,
// then forwards hub events until the job reaches a terminal state or
// the client goes away.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	snapshot := events.FromJob(job)
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}
	if snapshot.Terminal() {
		return
	}

	sub := s.daemon.hub.Subscribe(job.ID)
	defer sub.Close()

	// Reads only serve to notice the peer closing.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, open := <-sub.Events():
			if !open {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Terminal() {
				return
			}
		case <-clientGone:
			return
		}
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockPath:     status.LockPath,
		Jobs:         api.FromJobHealth(status.Jobs),
		Workflow:     api.FromSummary(status.Workflow),
	})
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookupJob resolves the jobID path segment as a job id first, then as a
// topic slug, so clients can say `status the_lighthouse` without copying
// the uuid.
func (s *apiServer) lookupJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	ref := strings.TrimSpace(chi.URLParam(r, "jobID"))
	if ref == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	job, err := s.daemon.store.GetByID(r.Context(), ref)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if job == nil {
		job, err = s.daemon.store.FindBySlug(r.Context(), ref)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return nil, false
		}
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
