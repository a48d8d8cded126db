package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/infrastructure/http/handlers"
	"github.com/nshelia/worldcommits/internal/infrastructure/http/middleware"
)

type RouterConfig struct {
	IngestHandler      *handlers.IngestHandler
	KeysHandler        *handlers.KeysHandler
	LeaderboardHandler *handlers.LeaderboardHandler
	FeedHandler        *handlers.FeedHandler
	UsersHandler       *handlers.UsersHandler
	HealthHandler      *handlers.HealthHandler
	ServiceAuth        func(http.Handler) http.Handler // shared token for /mcp/*
	SessionAuth        func(http.Handler) http.Handler // browser session for /keys, /users/me
	Secure             func(http.Handler) http.Handler
	IPRateLimit        func(http.Handler) http.Handler
	CORS               func(http.Handler) http.Handler
	Log                zerolog.Logger
	Metrics            bool // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	r.Use(chimid.AllowContentType("application/json"))
	if cfg.IPRateLimit != nil {
		r.Use(cfg.IPRateLimit)
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Bridge endpoints: shared service token, identity from the apiKey in the body.
	r.Route("/mcp", func(r chi.Router) {
		r.Use(cfg.ServiceAuth)
		r.Post("/ingest", cfg.IngestHandler.Ingest)
		r.Post("/resolve-key", cfg.IngestHandler.ResolveKey)
		r.Post("/sessions/complete", cfg.IngestHandler.CompleteSession)
	})

	// Key management for the logged-in user.
	r.Route("/keys", func(r chi.Router) {
		r.Use(cfg.SessionAuth)
		r.Post("/", cfg.KeysHandler.Create)
		r.Get("/", cfg.KeysHandler.List)
		r.Post("/{id}/revoke", cfg.KeysHandler.Revoke)
	})

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cfg.SessionAuth)
			r.Get("/me", cfg.UsersHandler.Me)
			r.Patch("/me", cfg.UsersHandler.UpdateMe)
		})
		r.Get("/{handle}/posts", cfg.FeedHandler.ListByUser)
	})

	// Public reads.
	r.Get("/posts", cfg.FeedHandler.List)
	r.Get("/leaderboard", cfg.LeaderboardHandler.Get)
	r.Get("/leaderboard/countries", cfg.LeaderboardHandler.Countries)
	r.Get("/stats/live", cfg.LeaderboardHandler.LiveStats)

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
