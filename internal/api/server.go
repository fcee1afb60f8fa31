package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ajitpratap0/simpleevents/internal/models"
	"github.com/ajitpratap0/simpleevents/internal/timeline"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Options holds optional server behavior.
type Options struct {
	AuthToken  string // empty = no auth required
	StaticDir  string // empty = no static file serving
	CORSOrigin string // empty = no CORS headers
}

// Server is an HTTP API server that exposes timeline operations.
type Server struct {
	svc    *timeline.Service
	logger *slog.Logger
	opts   Options
}

// NewServer creates a new Server with the given dependencies.
func NewServer(svc *timeline.Service, logger *slog.Logger, opts Options) *Server {
	return &Server{
		svc:    svc,
		logger: logger,
		opts:   opts,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check requires no auth.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /debug/vars", s.auth(expvar.Handler().ServeHTTP))

	mux.HandleFunc("GET /api/timelines", s.auth(s.handleListTimelines))

	// The client addresses single timelines under /api/timeline; the older
	// client used /api/timelines. Both prefixes are served.
	for _, prefix := range []string{"/api/timeline", "/api/timelines"} {
		mux.HandleFunc("POST "+prefix, s.auth(s.handleCreateTimeline))
		mux.HandleFunc("GET "+prefix+"/{id}", s.auth(s.handleGetTimeline))
		mux.HandleFunc("PUT "+prefix+"/{id}", s.auth(s.handleUpdateTimeline))
		mux.HandleFunc("DELETE "+prefix+"/{id}", s.auth(s.handleDeleteTimeline))

		mux.HandleFunc("POST "+prefix+"/{timelineId}/events", s.auth(s.handleCreateEvent))
		mux.HandleFunc("PUT "+prefix+"/{timelineId}/events/{eventId}", s.auth(s.handleUpdateEvent))
		mux.HandleFunc("DELETE "+prefix+"/{timelineId}/events/{eventId}", s.auth(s.handleDeleteEvent))

		mux.HandleFunc("POST "+prefix+"/{timelineId}/event-types", s.auth(s.handleCreateEventType))
		mux.HandleFunc("PUT "+prefix+"/{timelineId}/event-types/{typeName}", s.auth(s.handleUpdateEventType))
		mux.HandleFunc("DELETE "+prefix+"/{timelineId}/event-types/{typeName}", s.auth(s.handleDeleteEventType))
	}

	if s.opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.opts.StaticDir)))
	}

	return s.cors(s.jsonFallback(mux))
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when AuthToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// cors adds Access-Control headers and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	if s.opts.CORSOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// jsonFallback gives unmatched routes and wrong methods the same
// {"detail": ...} body as handler errors. Unknown /api/ paths stay 404 even
// when static files are served from /.
func (s *Server) jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern == "GET /" && strings.HasPrefix(r.URL.Path, "/api/") {
			s.writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
			return
		}
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		h.ServeHTTP(&errorBodyWriter{ResponseWriter: w, s: s}, r)
	})
}

// errorBodyWriter replaces the plain-text body of an error status with a JSON
// one. Headers set before WriteHeader, such as Allow, are kept.
type errorBodyWriter struct {
	http.ResponseWriter
	s       *Server
	replied bool
}

func (e *errorBodyWriter) WriteHeader(status int) {
	if status < http.StatusBadRequest {
		e.ResponseWriter.WriteHeader(status)
		return
	}
	e.replied = true
	e.s.writeError(e.ResponseWriter, status, http.StatusText(status))
}

func (e *errorBodyWriter) Write(b []byte) (int, error) {
	if e.replied {
		return len(b), nil
	}
	return e.ResponseWriter.Write(b)
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// messageResponse is returned by delete endpoints.
type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleListTimelines(w http.ResponseWriter, r *http.Request) {
	tls, err := s.svc.ListTimelines(r.Context())
	if err != nil {
		s.writeServiceError(w, "list timelines", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tls)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	tl, err := s.svc.GetTimeline(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, "get timeline", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleCreateTimeline(w http.ResponseWriter, r *http.Request) {
	var draft models.Timeline
	if !s.decode(w, r, &draft) {
		return
	}
	tl, err := s.svc.CreateTimeline(r.Context(), draft)
	if err != nil {
		s.writeServiceError(w, "create timeline", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleUpdateTimeline(w http.ResponseWriter, r *http.Request) {
	var draft models.Timeline
	if !s.decode(w, r, &draft) {
		return
	}
	tl, err := s.svc.UpdateTimeline(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		s.writeServiceError(w, "update timeline", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleDeleteTimeline(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTimeline(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, "delete timeline", err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Timeline deleted successfully"})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft models.Event
	if !s.decode(w, r, &draft) {
		return
	}
	ev, err := s.svc.CreateEvent(r.Context(), r.PathValue("timelineId"), draft)
	if err != nil {
		s.writeServiceError(w, "create event", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var draft models.Event
	if !s.decode(w, r, &draft) {
		return
	}
	ev, err := s.svc.UpdateEvent(r.Context(), r.PathValue("timelineId"), r.PathValue("eventId"), draft)
	if err != nil {
		s.writeServiceError(w, "update event", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), r.PathValue("timelineId"), r.PathValue("eventId")); err != nil {
		s.writeServiceError(w, "delete event", err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}

func (s *Server) handleCreateEventType(w http.ResponseWriter, r *http.Request) {
	var draft models.EventType
	if !s.decode(w, r, &draft) {
		return
	}
	et, err := s.svc.CreateEventType(r.Context(), r.PathValue("timelineId"), draft)
	if err != nil {
		s.writeServiceError(w, "create event type", err)
		return
	}
	s.writeJSON(w, http.StatusOK, et)
}

func (s *Server) handleUpdateEventType(w http.ResponseWriter, r *http.Request) {
	var draft models.EventType
	if !s.decode(w, r, &draft) {
		return
	}
	et, err := s.svc.UpdateEventType(r.Context(), r.PathValue("timelineId"), r.PathValue("typeName"), draft)
	if err != nil {
		s.writeServiceError(w, "update event type", err)
		return
	}
	s.writeJSON(w, http.StatusOK, et)
}

func (s *Server) handleDeleteEventType(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEventType(r.Context(), r.PathValue("timelineId"), r.PathValue("typeName")); err != nil {
		s.writeServiceError(w, "delete event type", err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Event type deleted successfully"})
}

// --- helpers ---

// decode reads a size-limited JSON body into v. It writes a 400 and returns
// false when the body cannot be decoded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Debug("invalid request body", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service error kinds onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, timeline.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, timeline.ErrInvalidArgument), errors.Is(err, timeline.ErrFailedPrecondition):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "op", op, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"detail": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
