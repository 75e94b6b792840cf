// Package monitor is the HTTP face of the service: run control and
// status, stored run browsing, CSV and chart exports, and the
// database admin surface.
package monitor

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/groundsight-data/groundsight/internal/db"
	"github.com/groundsight-data/groundsight/internal/simulate"
	"github.com/groundsight-data/groundsight/internal/timeutil"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles the HTTP interface over the simulation runner and
// the run store.
type Server struct {
	addr    string
	db      *db.DB
	runner  *simulate.Runner
	clock   timeutil.Clock
	started time.Time
	server  *http.Server
}

// Config contains configuration options for the web server.
type Config struct {
	Addr   string
	DB     *db.DB
	Runner *simulate.Runner

	// Clock defaults to the real clock. Tests inject a mock.
	Clock timeutil.Clock
}

// NewServer creates a new web server with the provided configuration.
func NewServer(config Config) *Server {
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	s := &Server{
		addr:    config.Addr,
		db:      config.DB,
		runner:  config.Runner,
		clock:   clock,
		started: clock.Now(),
	}
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: LoggingMiddleware(s.setupRoutes()),
	}
	return s
}

// setupRoutes configures the HTTP routes and handlers
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunSubtree)

	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}
	return mux
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (s *Server) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	if s.runner != nil {
		s.runner.Cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := s.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
