// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the processor registry over HTTP.
//
// Routes:
//
//	POST /fileprocessor/{filetype}/{version_id}  run processors on a stored version
//	GET  /healthz                                liveness and dependency checks
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/files-processor/internal/processor"
	"github.com/pdiddy/files-processor/pkg/types"
)

const (
	defaultAddr            = ":5000"
	defaultShutdownTimeout = 10 * time.Second

	// maxSettingBytes bounds the request body holding a ProcessorSetting.
	maxSettingBytes = 1 << 20
)

// Versions resolves version identifiers and serves their content.
// *filestore.Store implements it.
type Versions interface {
	Get(ctx context.Context, versionID string) (*types.ObjectVersion, error)
	processor.Opener
}

// HealthCheck checks a dependency for the health endpoint.
type HealthCheck func(ctx context.Context) error

// Options carries the collaborators of a Server.
type Options struct {
	Config   types.ServerConfig
	Versions Versions
	Registry *processor.Registry

	// Setting is used when a request has no body. Each request gets its
	// own copy.
	Setting types.ProcessorSetting

	// Checks are run by GET /healthz, keyed by dependency name.
	Checks map[string]HealthCheck

	Logger *slog.Logger
}

// Server serves the file processor API.
type Server struct {
	cfg      types.ServerConfig
	versions Versions
	registry *processor.Registry
	setting  types.ProcessorSetting
	checks   map[string]HealthCheck
	logger   *slog.Logger
	router   chi.Router
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	if opts.Versions == nil {
		return nil, errors.New("server: no version store")
	}
	if opts.Registry == nil {
		return nil, errors.New("server: no processor registry")
	}

	cfg := opts.Config
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Permission == "" {
		cfg.Permission = types.PermissionAllowAll
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	perm, err := permissionMiddleware(cfg)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:      cfg,
		versions: opts.Versions,
		registry: opts.Registry,
		setting:  opts.Setting.Clone(),
		checks:   opts.Checks,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(perm)
		r.Post("/fileprocessor/{filetype}/{version_id}", s.handleProcess)
	})

	s.router = r
	return s, nil
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("files-processor listening",
			"addr", ln.Addr().String(),
			"permission", string(s.cfg.Permission),
			"processors", s.registry.Len())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// requestLogger logs one line per request with slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
