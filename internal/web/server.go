package web

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/upstream"
)

// RequestIDHeader carries the per-request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// NewServer creates and configures the HTTP server for the triage API.
func NewServer(db *sql.DB, cfg *config.Config, services *upstream.Services, logger *slog.Logger, version string) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		db:       db,
		cfg:      cfg,
		services: services,
		version:  version,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           requestID(logRequests(logger, securityHeaders(h.Routes()))),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Routes registers every API route on a fresh mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /api/health", h.HandleHealth)

	mux.HandleFunc("GET /api/buckets", h.HandleBucketSummary)
	mux.HandleFunc("GET /api/system/buckets", h.HandleSystemBuckets)
	mux.HandleFunc("GET /api/activity", h.HandleActivity)

	mux.HandleFunc("GET /api/projects/{id}/buckets", h.HandleProjectBuckets)
	mux.HandleFunc("GET /api/projects/{id}/items", h.HandleListItems)
	mux.HandleFunc("POST /api/projects/{id}/ready", h.HandleSetReady)

	mux.HandleFunc("GET /api/projects/{id}/promotion-queue", h.HandlePromotionQueue)
	mux.HandleFunc("POST /api/projects/{id}/promote", h.HandlePromote)
	mux.HandleFunc("GET /api/projects/{id}/published", h.HandleGetPublished)
	mux.HandleFunc("PUT /api/projects/{id}/published", h.HandleSavePublished)
	mux.HandleFunc("GET /api/projects/{id}/journal", h.HandleJournal)

	mux.HandleFunc("POST /api/projects/{id}/structure/rebuild", h.HandleRebuildStructure)
	mux.HandleFunc("GET /api/projects/{id}/structure", h.HandleGetStructure)

	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)

	mux.HandleFunc("POST /api/ingest/sessions", h.HandleIngestSessions)
	mux.HandleFunc("POST /api/ingest/items", h.HandleIngestItems)

	mux.HandleFunc("GET /api/services/health", h.HandleServicesHealth)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, errNoRoute(r))
	})
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID tags every request with an id, reusing a well-formed incoming one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the id assigned by the request-id middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests writes one structured line per request.
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= 500 {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request",
			"request_id", RequestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("triage API listening", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
