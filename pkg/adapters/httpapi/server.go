// Package httpapi serves a core.Remote over the board REST API consumed by
// pkg/adapters/rest.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/noteboard/pkg/adapters/metrics"
	"github.com/aretw0/noteboard/pkg/adapters/rest"
	"github.com/aretw0/noteboard/pkg/core"
)

// ShutdownTimeout bounds the graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// Server exposes a core.Remote over HTTP.
type Server struct {
	remote   core.Remote
	logger   *slog.Logger
	token    string
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithToken requires every /api request to carry "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithMetrics records requests in m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// New builds the router for remote.
func New(remote core.Remote, opts ...Option) *Server {
	s := &Server{
		remote: remote,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	router := mux.NewRouter()
	router.Use(s.logRequests)
	if s.metrics != nil {
		router.Use(s.metrics.Middleware(routeTemplate))
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	// Reorder routes go first so {id} does not swallow "reorder".
	api.HandleFunc("/columns/", s.handleListColumns).Methods(http.MethodGet)
	api.HandleFunc("/columns/", s.handleCreateColumn).Methods(http.MethodPost)
	api.HandleFunc("/columns/reorder/", s.handleReorderColumns).Methods(http.MethodPatch)
	api.HandleFunc("/columns/{id}/", s.handleUpdateColumn).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/columns/{id}/", s.handleDeleteColumn).Methods(http.MethodDelete)

	api.HandleFunc("/notes/", s.handleListNotes).Methods(http.MethodGet)
	api.HandleFunc("/notes/", s.handleCreateNote).Methods(http.MethodPost)
	api.HandleFunc("/notes/reorder/", s.handleReorderNotes).Methods(http.MethodPatch)
	api.HandleFunc("/notes/{id}/", s.handleUpdateNote).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/notes/{id}/", s.handleDeleteNote).Methods(http.MethodDelete)
	api.HandleFunc("/notes/{id}/move/", s.handleMoveNote).Methods(http.MethodPatch)
	api.HandleFunc("/notes/{id}/archive/", s.handleArchiveNote).Methods(http.MethodPatch)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.router = router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	s.logger.Info("serving board api", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

// --- Columns ---

func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := s.remote.ListColumns(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(columns))
}

func (s *Server) handleCreateColumn(w http.ResponseWriter, r *http.Request) {
	var draft core.ColumnDraft
	if !decode(w, r, &draft) {
		return
	}
	column, err := s.remote.CreateColumn(r.Context(), draft)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, column)
}

func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	var patch core.ColumnPatch
	if !decode(w, r, &patch) {
		return
	}
	column, err := s.remote.UpdateColumn(r.Context(), core.ColumnID(mux.Vars(r)["id"]), patch)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, column)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	if err := s.remote.DeleteColumn(r.Context(), core.ColumnID(mux.Vars(r)["id"])); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleReorderColumns(w http.ResponseWriter, r *http.Request) {
	reorderer, ok := s.remote.(core.Reorderer)
	if !ok {
		s.respondErr(w, r, core.ErrUnsupported)
		return
	}
	var body struct {
		ColumnIDs []core.ColumnID `json:"column_ids"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := reorderer.ReorderColumns(r.Context(), body.ColumnIDs); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "columns reordered"})
}

// --- Notes ---

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.NoteFilter{
		ColumnID: core.ColumnID(q.Get("column_id")),
		Search:   q.Get("search"),
	}
	if raw := q.Get("is_archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "is_archived must be a boolean")
			return
		}
		filter.IsArchived = &archived
	}

	notes, err := s.remote.ListNotes(r.Context(), filter)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(notes))
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var draft core.NoteDraft
	if !decode(w, r, &draft) {
		return
	}
	note, err := s.remote.CreateNote(r.Context(), draft)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch core.NotePatch
	if !decode(w, r, &patch) {
		return
	}
	note, err := s.remote.UpdateNote(r.Context(), core.NoteID(mux.Vars(r)["id"]), patch)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.remote.DeleteNote(r.Context(), core.NoteID(mux.Vars(r)["id"])); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMoveNote(w http.ResponseWriter, r *http.Request) {
	var body rest.MoveRequest
	if !decode(w, r, &body) {
		return
	}
	if body.ColumnID == "" || body.Position == nil {
		respondError(w, http.StatusBadRequest, "column_id and position are required")
		return
	}
	if *body.Position < 0 {
		respondError(w, http.StatusBadRequest, "position must not be negative")
		return
	}

	note, err := s.remote.MoveNote(r.Context(), core.NoteID(mux.Vars(r)["id"]), body.ColumnID, *body.Position)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleArchiveNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.remote.ArchiveNote(r.Context(), core.NoteID(mux.Vars(r)["id"]))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleReorderNotes(w http.ResponseWriter, r *http.Request) {
	reorderer, ok := s.remote.(core.Reorderer)
	if !ok {
		s.respondErr(w, r, core.ErrUnsupported)
		return
	}
	var body struct {
		NoteIDs  []core.NoteID `json:"note_ids"`
		ColumnID core.ColumnID `json:"column_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := reorderer.ReorderNotes(r.Context(), body.ColumnID, body.NoteIDs); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "notes reordered"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// --- Middleware ---

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// --- Responses ---

// StatusFor maps a remote error to the HTTP status the API answers with.
func StatusFor(err error) int {
	var remoteErr *core.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		return remoteErr.Status
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, core.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	var validation *core.ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		respondJSON(w, status, map[string][]string{validation.Field: {validation.Message}})
		return
	}
	respondError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(target); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil && status != http.StatusNoContent {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
