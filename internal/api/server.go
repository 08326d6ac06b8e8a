// Package api exposes the HTTP surface of the server. Routes are declared
// through huma so the OpenAPI document stays in sync with the handlers; chi
// provides the router underneath plus the few raw routes (image bytes) that
// do not fit huma's typed model.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/placepinapp/placepin-server/internal/config"
	domainerrors "github.com/placepinapp/placepin-server/internal/errors"
	"github.com/placepinapp/placepin-server/internal/media/images"
	"github.com/placepinapp/placepin-server/internal/ratelimit"
	"github.com/placepinapp/placepin-server/internal/search"
	"github.com/placepinapp/placepin-server/internal/service"
	"github.com/placepinapp/placepin-server/internal/store"
)

// Services groups the service layer dependencies handlers reach for.
type Services struct {
	Auth    *service.AuthService
	Session *service.SessionService
	User    *service.UserService
	Place   *service.PlaceService
}

// Server wires the router, the huma API, and the service layer together.
type Server struct {
	store           *store.Store
	services        *Services
	uploader        *images.Uploader
	imageStorage    *images.Storage
	searchIndex     *search.Index
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer builds the HTTP server and registers all routes.
func NewServer(
	cfg *config.Config,
	st *store.Store,
	services *Services,
	uploader *images.Uploader,
	imageStorage *images.Storage,
	searchIndex *search.Index,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(authMiddleware(services.Auth))

	humaConfig := huma.DefaultConfig("PlacePin API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:           st,
		services:        services,
		uploader:        uploader,
		imageStorage:    imageStorage,
		searchIndex:     searchIndex,
		router:          router,
		api:             api,
		logger:          logger,
		authRateLimiter: ratelimit.New(authRequestsPerSecond, authBurst),
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerPlaceRoutes()
	s.registerImageRoutes()

	return s
}

// Unauthenticated auth endpoints get 30 attempts per minute per client IP.
const (
	authRequestsPerSecond = 0.5
	authBurst             = 10
)

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases resources held by the server itself.
// The store and search index are owned by the caller.
func (s *Server) Close() {
	if s.authRateLimiter != nil {
		s.authRateLimiter.Stop()
	}
}

// checkAuthRateLimit enforces the per-IP limit on credential endpoints.
func (s *Server) checkAuthRateLimit(ip string) error {
	if s.authRateLimiter == nil || ip == "" {
		return nil
	}
	if !s.authRateLimiter.Allow(ip) {
		s.logger.Warn("Auth rate limit exceeded", "ip", ip)
		return domainerrors.RateLimited("Too many requests. Please try again later.")
	}
	return nil
}

// HTTPServer wraps the handler in an http.Server with the configured timeouts.
func (s *Server) HTTPServer(cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
