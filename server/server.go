package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/opsacademy/toolcalc/formula"
	tcotel "github.com/opsacademy/toolcalc/otel"
	"github.com/opsacademy/toolcalc/tool"
)

// MetricsSource supplies the snapshot served by GET /api/metrics.
type MetricsSource interface {
	Snapshot(ctx context.Context) ([]tcotel.MetricPoint, error)
}

// LintReporter supplies the sweep served by GET /api/lint/report.
type LintReporter interface {
	LastReport() (LintReport, bool)
}

// ServerConfig configures a Server instance.
type ServerConfig struct {
	Store      tool.Store
	Cache      *formula.Cache
	Metrics    MetricsSource
	Lint       LintReporter
	CORSOrigin string
	MaxBody    int64
	Now        func() time.Time
	Logger     *slog.Logger
}

// Server is the toolcalc HTTP API server.
type Server struct {
	store      tool.Store
	cache      *formula.Cache
	metrics    MetricsSource
	lint       LintReporter
	corsOrigin string
	maxBody    int64
	now        func() time.Time
	logger     *slog.Logger
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = tool.NewMemoryStore()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = formula.NewCache()
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		store:      store,
		cache:      cache,
		metrics:    cfg.Metrics,
		lint:       cfg.Lint,
		corsOrigin: corsOrigin,
		maxBody:    maxBody,
		now:        now,
		logger:     logger,
	}
}

// Handler returns an http.Handler with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.maxBodyMiddleware(handler)

	return handler
}

// RegisterRoutes mounts the API routes onto an existing mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /api/lint", s.handleLint)
	mux.HandleFunc("GET /api/lint/report", s.handleLintReport)

	mux.HandleFunc("GET /api/tools", s.handleListTools)
	mux.HandleFunc("POST /api/tools", s.handleCreateTool)
	mux.HandleFunc("GET /api/tools/{id}", s.handleGetTool)
	mux.HandleFunc("PUT /api/tools/{id}", s.handleUpdateTool)
	mux.HandleFunc("DELETE /api/tools/{id}", s.handleDeleteTool)
	mux.HandleFunc("POST /api/tools/{id}/compute", s.handleComputeTool)
	mux.HandleFunc("GET /api/tools/{id}/diagnostics", s.handleToolDiagnostics)
	mux.HandleFunc("GET /api/lessons/{lesson_id}/tools", s.handleListLessonTools)
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, details ...string) {
	body := apiError{
		Error: apiErrorBody{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		body.Error.Details = details
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON request body into v, writing the error response
// itself when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds size limit")
			return false
		}
		writeError(w, http.StatusBadRequest, "READ_ERROR", err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return false
	}
	return true
}

func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
