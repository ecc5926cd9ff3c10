package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/solution-builder/internal/config"
	"github.com/terra-clan/solution-builder/internal/health"
	"github.com/terra-clan/solution-builder/internal/metrics"
	"github.com/terra-clan/solution-builder/internal/session"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// Options holds the collaborators of the API server
type Options struct {
	Sessions session.Manager
	Catalog  wizard.Catalog
	Clients  ClientStore
	Health   *health.Registry
	Metrics  *metrics.Metrics
}

// Server represents the HTTP API server
type Server struct {
	config           config.ServerConfig
	router           *chi.Mux
	sessions         session.Manager
	catalog          wizard.Catalog
	health           *health.Registry
	metrics          *metrics.Metrics
	clientMiddleware *ClientMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, opts Options) *Server {
	s := &Server{
		config:           cfg,
		sessions:         opts.Sessions,
		catalog:          opts.Catalog,
		health:           opts.Health,
		metrics:          opts.Metrics,
		clientMiddleware: NewClientMiddleware(opts.Clients),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(metricsMiddleware(s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", HeaderClientID, HeaderOperator},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Outside versioned API
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.clientMiddleware.Identify)

		// Catalog
		r.Get("/industries", s.handleListIndustries)
		r.Get("/technologies", s.handleListTechnologies)
		r.Get("/solution-types", s.handleListSolutionTypes)
		r.Get("/solution-variants", s.handleListSolutionVariants)

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleEndSession)
				r.Post("/events", s.handleApplyEvent)
				r.Get("/review", s.handleReviewSession)
				r.Post("/save", s.handleSaveSession)
				r.Get("/ws", s.handleSessionWS)

				r.Route("/parameters", func(r chi.Router) {
					r.Get("/", s.handleListParameters)
					r.Post("/", s.handleAddParameter)
					r.Post("/search", s.handleParameterSearch)
					r.Post("/new", s.handleBeginParameterAdd)
					r.Put("/{pid}", s.handleUpdateParameter)
					r.Delete("/{pid}", s.handleRemoveParameter)

					// single edit: begin, change the draft, then save or cancel
					r.Post("/{pid}/edit", s.handleBeginParameterEdit)
					r.Put("/{pid}/draft", s.handleUpdateParameterDraft)
					r.Post("/{pid}/save", s.handleSaveParameterDraft)
					r.Post("/{pid}/cancel", s.handleCancelParameterEdit)
				})

				r.Route("/calculations", func(r chi.Router) {
					r.Get("/", s.handleListCalculations)
					r.Post("/", s.handleAddCalculation)
				})

				r.Post("/categories", s.handleAddCategory)
				r.Delete("/categories/{name}", s.handleRemoveCategory)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"client_id", r.Header.Get(HeaderClientID),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
