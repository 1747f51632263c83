// Package rpc exposes the tag engine operations over HTTP as
// POST /rpc/<operation> with JSON bodies.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/watchmonkey/stocktags/internal/search"
)

// Config holds server configuration.
type Config struct {
	Addr string
	// SnapshotPath, when set, receives tag updates so they survive restarts.
	SnapshotPath    string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxBodyBytes bounds request bodies; set_stock_data carries whole snapshots.
	MaxBodyBytes int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:7420",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    256 << 20,
	}
}

// Server serves the engine operations.
type Server struct {
	cfg        Config
	httpServer *http.Server
	router     *http.ServeMux
	engine     *search.Engine
	ops        map[string]http.HandlerFunc
	logger     *slog.Logger
	now        func() time.Time

	// updateMu keeps the in-memory update and the snapshot write-back of
	// one update_tags call together.
	updateMu sync.Mutex
}

// NewServer wires the routes for engine. A nil logger uses slog.Default().
func NewServer(cfg Config, engine *search.Engine, logger *slog.Logger) *Server {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		router: http.NewServeMux(),
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.ops = map[string]http.HandlerFunc{
		"set_stock_data":       s.handleSetStockData,
		"get_categories":       s.handleGetCategories,
		"get_tags_by_category": s.handleGetTagsByCategory,
		"get_stocks_by_tag":    s.handleGetStocksByTag,
		"calculate_statistics": s.handleCalculateStatistics,
		"parse_tags":           s.handleParseTags,
		"validate_tag":         s.handleValidateTag,
		"get_tag_details":      s.handleGetTagDetails,
		"search_and_filter":    s.handleSearchAndFilter,
		"get_data_statistics":  s.handleGetDataStatistics,
		"update_tags":          s.handleUpdateTags,
	}
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("POST /rpc/{op}", s.dispatch)
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down rpc server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	s.logger.Info("rpc server stopped")
	return nil
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	op := r.PathValue("op")
	h, ok := s.ops[op]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown operation %q", op))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	h(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", rw.statusCode, "duration", time.Since(start)}
		if rw.statusCode >= http.StatusBadRequest {
			s.logger.Warn("rpc request failed", attrs...)
			return
		}
		s.logger.Debug("rpc request", attrs...)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
