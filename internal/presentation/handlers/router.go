package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// ServerOptions configure the HTTP router
type ServerOptions struct {
	// RatePerMinute limits requests per client IP, unlimited when 0
	RatePerMinute  int
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

// NewRouter wires the API routes and middleware
func NewRouter(opts ServerOptions, logger zerolog.Logger, health *HealthHandler, quotes *QuoteHandler, tokens *TokensHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.RatePerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RatePerMinute, 1*time.Minute))
	}
	r.Use(corsHandler(opts.AllowedOrigins).Handler)

	r.Get("/health", health.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/route", quotes.GetRoute)
		r.Get("/tokens", tokens.ListTokens)
		r.Get("/tokens/{token}/counterparts", tokens.Counterparts)
		r.Get("/pools", tokens.FindPool)
	})

	return r
}

func corsHandler(allowedOrigins []string) *cors.Cors {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	})
}
