// Package server composes the HTTP router: operational endpoints plus the
// versioned API behind the admission pipeline.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/iudanet/productreviews/internal/server/handlers"
	"github.com/iudanet/productreviews/internal/server/metrics"
	"github.com/iudanet/productreviews/internal/server/middleware"
	"github.com/iudanet/productreviews/internal/server/session"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// RouterConfig holds router level settings.
type RouterConfig struct {
	APIVersion     string   // required x-version
	BuildVersion   string   // reported by /health
	AllowedOrigins []string // CORS
	StoreTimeout   time.Duration
	TrustProxy     bool // honor X-Forwarded-For / X-Real-IP
}

// TokenService issues tokens on login and verifies them in the Auth Gate.
type TokenService interface {
	handlers.TokenIssuer
	middleware.TokenVerifier
}

// Deps are the collaborators constructed in main.
type Deps struct {
	Logger   *slog.Logger
	Storage  storage.Storage
	Sessions *session.Manager
	Limiter  *middleware.RateLimiter
	Tokens   TokenService
	Hasher   handlers.PasswordHasher
	Metrics  *metrics.Metrics
}

// NewRouter builds the application handler.
//
// Versioned routes pass Version Gate, then the rate limiter of their route
// class, then (for /product and /review) the Auth Gate.
func NewRouter(cfg RouterConfig, deps Deps) http.Handler {
	logger := deps.Logger

	authHandler := handlers.NewAuthHandler(logger, deps.Storage, deps.Hasher, deps.Tokens, deps.Sessions, cfg.StoreTimeout)
	productHandler := handlers.NewProductHandler(logger, deps.Storage, cfg.StoreTimeout)
	reviewHandler := handlers.NewReviewHandler(logger, deps.Storage, cfg.StoreTimeout)
	healthHandler := handlers.NewHealthHandler(logger, deps.Storage, cfg.BuildVersion)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	// Logging снаружи Recovery, чтобы panic попадал в лог и метрики как 500
	r.Use(middleware.Logging(logger, deps.Metrics, "/health", "/metrics"))
	r.Use(middleware.Recovery(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", middleware.VersionHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	}))

	notFound := middleware.NotFoundHandler()
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(notFound.ServeHTTP)

	// Операционные эндпоинты без версии
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Versioning(cfg.APIVersion, notFound, deps.Metrics))
		r.Use(deps.Sessions.Middleware)

		authGate := middleware.AuthGate(deps.Tokens, logger, deps.Metrics)
		limit := deps.Limiter.Limit

		r.With(limit(middleware.ClassPost)).Post("/auth/create", authHandler.CreateAccount)
		r.With(limit(middleware.ClassLogin)).Post("/auth/login", authHandler.Login)
		r.With(limit(middleware.ClassPost)).Post("/auth/logout", authHandler.Logout)

		// Лимит проверяется раньше авторизации
		r.Route("/product", func(r chi.Router) {
			r.With(limit(middleware.ClassGet), authGate).Get("/search", productHandler.Search)
			r.With(limit(middleware.ClassGet), authGate).Get("/average/{productId}", productHandler.AverageRating)
			r.With(limit(middleware.ClassGet), authGate).Get("/", productHandler.List)
			r.With(limit(middleware.ClassGet), authGate).Get("/{id}", productHandler.Get)
			r.With(limit(middleware.ClassPost), authGate).Post("/", productHandler.Create)
			r.With(limit(middleware.ClassPut), authGate).Put("/{id}", productHandler.Update)
			r.With(limit(middleware.ClassDelete), authGate).Delete("/{id}", productHandler.Delete)
		})

		r.Route("/review", func(r chi.Router) {
			r.With(limit(middleware.ClassGet), authGate).Get("/rating/{rating}", reviewHandler.ByRating)
			r.With(limit(middleware.ClassGet), authGate).Get("/average", reviewHandler.TopRated)
			r.With(limit(middleware.ClassGet), authGate).Get("/sorted", reviewHandler.Sorted)
			r.With(limit(middleware.ClassGet), authGate).Get("/{id}", reviewHandler.Get)
			r.With(limit(middleware.ClassGet), authGate).Get("/", reviewHandler.List)
			r.With(limit(middleware.ClassPost), authGate).Post("/", reviewHandler.Create)
			r.With(limit(middleware.ClassPut), authGate).Put("/{id}", reviewHandler.Update)
			r.With(limit(middleware.ClassDelete), authGate).Delete("/{id}", reviewHandler.Delete)
		})
	})

	return r
}
