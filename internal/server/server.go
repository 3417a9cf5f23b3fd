package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/storage"
)

// ServerStore defines the storage queries the server needs.
type ServerStore interface {
	AllLatest(ctx context.Context) ([]storage.Result, error)
	LatestResult(ctx context.Context, controlID string) (*storage.Result, error)
	ControlHistory(ctx context.Context, controlID string, limit, offset int) ([]storage.Result, int, error)
	PassRate(ctx context.Context, controlID string, last int) (float64, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store    ServerStore
	controls []*control.Control
	router   chi.Router
	logger   *slog.Logger
}

// New creates a new Server and registers all routes.
func New(store ServerStore, controls []*control.Control, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		controls: controls,
		router:   chi.NewRouter(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

// MountMetrics serves h at /metrics.
func (s *Server) MountMetrics(h http.Handler) {
	s.router.Method(http.MethodGet, "/metrics", h)
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/controls", s.handleListControls)
	r.Get("/api/controls/{id}", s.handleGetControl)
	r.Get("/api/controls/{id}/history", s.handleGetControlHistory)
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

func (s *Server) findControl(id string) *control.Control {
	for _, c := range s.controls {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type controlDetail struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Examples   []string   `json:"examples"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	PassRate   float64    `json:"pass_rate"`
	LastRun    *time.Time `json:"last_run"`
}

func newControlDetail(c *control.Control) controlDetail {
	d := controlDetail{
		ID:       c.ID,
		Title:    c.Title,
		Examples: []string{},
		Status:   "unknown",
	}
	for _, desc := range c.Describes {
		for _, ex := range desc.Examples {
			d.Examples = append(d.Examples, desc.Subject+" "+ex.Name)
		}
	}
	return d
}

func (d *controlDetail) apply(res *storage.Result) {
	d.Status = res.Status
	d.Error = res.Error
	d.DurationMs = res.DurationMs
	t := res.StartedAt
	d.LastRun = &t
}

func (s *Server) handleListControls(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.AllLatest(r.Context())
	if err != nil {
		s.logger.Error("AllLatest", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	byControl := make(map[string]storage.Result, len(latest))
	for _, res := range latest {
		byControl[res.Control] = res
	}

	details := make([]controlDetail, 0, len(s.controls))
	for _, c := range s.controls {
		d := newControlDetail(c)
		if res, ok := byControl[c.ID]; ok {
			d.apply(&res)
			pct, _ := s.store.PassRate(r.Context(), c.ID, 100)
			d.PassRate = pct
		}
		details = append(details, d)
	}

	writeJSON(w, http.StatusOK, details)
}

type controlDetailResponse struct {
	controlDetail
	RecentResults []storage.Result `json:"recent_results"`
}

func (s *Server) handleGetControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c := s.findControl(id)
	if c == nil {
		writeError(w, http.StatusNotFound, "control not found")
		return
	}

	latest, err := s.store.LatestResult(r.Context(), id)
	if err != nil {
		s.logger.Error("LatestResult", "control", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	history, _, err := s.store.ControlHistory(r.Context(), id, 10, 0)
	if err != nil {
		s.logger.Error("ControlHistory", "control", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	pct, _ := s.store.PassRate(r.Context(), id, 100)

	d := newControlDetail(c)
	d.PassRate = pct
	if latest != nil {
		d.apply(latest)
	}
	if history == nil {
		history = []storage.Result{}
	}

	writeJSON(w, http.StatusOK, controlDetailResponse{
		controlDetail: d,
		RecentResults: history,
	})
}

type historyResponse struct {
	Results []storage.Result `json:"results"`
	Total   int              `json:"total"`
}

func (s *Server) handleGetControlHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.findControl(id) == nil {
		writeError(w, http.StatusNotFound, "control not found")
		return
	}

	const maxLimit = 1000

	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	results, total, err := s.store.ControlHistory(r.Context(), id, limit, offset)
	if err != nil {
		s.logger.Error("ControlHistory", "control", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if results == nil {
		results = []storage.Result{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Results: results,
		Total:   total,
	})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
