// Package api provides the local HTTP adapter for the bookly collection.
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

	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/metrics"
	"github.com/booklyapp/bookly/internal/ratelimit"
	"github.com/booklyapp/bookly/internal/search"
	"github.com/booklyapp/bookly/internal/service"
	"github.com/booklyapp/bookly/internal/sse"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/surface"
	"github.com/booklyapp/bookly/internal/validation"
)

// Version is reported in the OpenAPI document and the health response.
const Version = "1.0.0"

// Services groups the collaborators the handlers call into.
type Services struct {
	Collection *service.CollectionService
	Overlays   *service.OverlayService
	Shelf      *service.ShelfService
	// Surface is the HTTP adapter's own cached view of the shelf.
	Surface *surface.Surface
	Search  *search.Index
	Events  *sse.Manager
	Storage store.Backend
	Keys    store.Keys
}

// Options tunes the HTTP adapter.
type Options struct {
	// AllowedOrigins lists CORS origins for a browser UI. Defaults to loopback origins.
	AllowedOrigins []string
	// Limiter throttles mutating requests per client address. Nil disables limiting.
	Limiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	router    *chi.Mux
	api       huma.API
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, log *slog.Logger) *Server {
	s := &Server{
		services:  services,
		router:    chi.NewRouter(),
		validator: validation.New(),
		limiter:   opts.Limiter,
		logger:    logger.OrDiscard(log),
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Bookly API", Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, used by tests and the OpenAPI dump.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerPreferenceRoutes()
	s.registerShelfRoutes()
	s.registerSearchRoutes()

	if s.services.Events != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.services.Events, s.logger).ServeHTTP)
	}
	s.router.Handle("/metrics", metrics.Handler())
}

// requestLogger logs one line per request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
