package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rensmac/go-api-starter/internal/api/handler"
	customMiddleware "github.com/rensmac/go-api-starter/internal/api/middleware"
	"github.com/rensmac/go-api-starter/internal/config"
	"github.com/rensmac/go-api-starter/internal/ratelimit"
	"github.com/rensmac/go-api-starter/internal/repository/postgres"
	"github.com/rensmac/go-api-starter/internal/repository/redis"
	"github.com/rensmac/go-api-starter/internal/security"
	"github.com/rensmac/go-api-starter/internal/service"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router. redisClient may be
// nil when the rate limit store is "memory".
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Security components
	hasher := security.NewPasswordHasher()
	tokenManager := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Rate limiter backend
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Store == "redis" && redisClient != nil {
		log.Info().Int("burst", cfg.RateLimit.Burst).Msg("Using Redis rate limiter")
		limiter = redis.NewRateLimiter(redisClient, cfg.RateLimit.Burst)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	}

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, hasher, tokenManager)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)

	// Middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(tokenManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(limiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health checks bypass rate limiting
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		r.Route("/auth", func(r chi.Router) {
			// Public routes, limited per client IP
			r.Group(func(r chi.Router) {
				r.Use(rateLimitMiddleware.Limit)

				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			// Protected routes, limited per user
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Use(rateLimitMiddleware.Limit)

				r.Get("/me", authHandler.Me)
			})
		})
	})

	return r
}
