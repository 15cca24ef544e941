// Package api serves the shelf over HTTP: a huma/v2 JSON API mounted on a
// chi router, plus plain chi handlers for multipart uploads and the event
// stream.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/manualshelf/manualshelf-server/internal/ratelimit"
	"github.com/manualshelf/manualshelf-server/internal/sse"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/validation"
)

// Options tunes the HTTP layer.
type Options struct {
	MaxUploadBytes int64  // Per file; 0 disables the limit
	DataPath       string // Volume reported by the disk health check
	AllowedOrigins []string
}

// Server represents the HTTP API server.
type Server struct {
	store     store.Store
	blobs     store.BlobStore
	services  *Services
	events    *sse.Manager
	router    *chi.Mux
	api       huma.API
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	opts      Options
	logger    *slog.Logger
}

// NewServer creates the router, mounts the middleware chain and registers
// every route. limiter guards uploads and session creation per client IP.
func NewServer(
	metadata store.Store,
	blobs store.BlobStore,
	services *Services,
	events *sse.Manager,
	limiter *ratelimit.KeyedRateLimiter,
	opts Options,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:     metadata,
		blobs:     blobs,
		services:  services,
		events:    events,
		router:    router,
		validator: validation.New(),
		limiter:   limiter,
		opts:      opts,
		logger:    logger,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(s.requireSession)
	router.Use(s.rejectWritesWhenReadOnly)

	humaConfig := huma.DefaultConfig("ManualShelf API", "1.0.0")
	humaConfig.Info.Description = "Personal manual and document shelf"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerManualRoutes()
	s.registerFileRoutes()
	s.registerTagRoutes()
	s.registerSearchRoutes()
	s.registerSyncRoutes()
	s.registerExportRoutes()

	// Multipart uploads stay on plain chi handlers.
	s.router.With(s.rateLimit).Post("/api/v1/manuals", s.handleCreateManual)
	s.router.With(s.rateLimit).Post("/api/v1/manuals/{id}/files", s.handleAddFile)

	if s.events != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.events, s.services.Sync.StatusEvent, s.logger).ServeHTTP)
	}
}

// requestLogger logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		switch {
		case ww.Status() >= 500:
			level = slog.LevelError
		case ww.Status() >= 400:
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		)
	})
}
