package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/feed"
	"github.com/nshelia/worldcommits/internal/application/ingest"
	"github.com/nshelia/worldcommits/internal/application/keys"
	"github.com/nshelia/worldcommits/internal/application/leaderboard"
	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/application/profile"
	"github.com/nshelia/worldcommits/internal/application/rewrite"
	"github.com/nshelia/worldcommits/internal/config"
	httprouter "github.com/nshelia/worldcommits/internal/infrastructure/http"
	"github.com/nshelia/worldcommits/internal/infrastructure/http/handlers"
	"github.com/nshelia/worldcommits/internal/infrastructure/http/middleware"
	"github.com/nshelia/worldcommits/internal/infrastructure/persistence/postgres"
	"github.com/nshelia/worldcommits/internal/infrastructure/provider"
	"github.com/nshelia/worldcommits/internal/infrastructure/queue"
	"github.com/nshelia/worldcommits/internal/infrastructure/session"
	"github.com/nshelia/worldcommits/internal/migrations"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	healthHandler := handlers.NewHealthHandler(pool, redisClient)

	userRepo := postgres.NewUserRepository(pool)
	apiKeyRepo := postgres.NewAPIKeyRepository(pool)
	postRepo := postgres.NewPostRepository(pool)
	timelineRepo := postgres.NewTimelineRepository(pool)

	var providers []ports.CopyProvider
	if cfg.Rewrite.OpenAIAPIKey != "" {
		providers = append(providers, provider.NewOpenAIProvider(cfg.Rewrite.OpenAIAPIKey, cfg.Rewrite.OpenAIModel))
	}
	if cfg.Rewrite.GeminiAPIKey != "" {
		providers = append(providers, provider.NewGeminiProvider(cfg.Rewrite.GeminiAPIKey, cfg.Rewrite.GeminiModel))
	}
	pipeline := rewrite.NewPipeline(rewrite.Config{
		OnEveryPrompt:     cfg.Rewrite.OnEveryPrompt,
		EveryNPrompts:     cfg.Rewrite.EveryNPrompts,
		RandomizeProvider: cfg.Rewrite.RandomizeProvider,
	}, providers, postRepo, timelineRepo, log)

	var dispatcher ports.RewriteDispatcher
	var asynqWorker *queue.Worker
	if redisClient != nil {
		redisOpt, _ := redis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqDispatcher := queue.NewAsynqDispatcher(asynqOpt, log)
		defer asynqDispatcher.Close()
		dispatcher = asynqDispatcher
		asynqWorker = queue.NewWorker(asynqOpt, pipeline, log)
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		dispatcher = queue.NewInlineDispatcher(pipeline)
	}

	issueKeyUC := keys.NewIssueKey(apiKeyRepo, nil)
	listKeysUC := keys.NewListKeys(apiKeyRepo)
	revokeKeyUC := keys.NewRevokeKey(apiKeyRepo)
	resolveKeyUC := keys.NewResolveKey(apiKeyRepo, userRepo, nil)
	ingestUC := ingest.NewIngestEvent(postRepo, timelineRepo)
	completeUC := ingest.NewCompleteSession(postRepo)
	leaderboardUC := leaderboard.NewQuery(postRepo, userRepo)
	liveStatsUC := leaderboard.NewLiveStats(postRepo, timelineRepo)
	listPostsUC := feed.NewListPosts(postRepo, timelineRepo)
	updateProfileUC := profile.NewUpdateProfile(userRepo)

	ingestHandler := handlers.NewIngestHandler(resolveKeyUC, ingestUC, completeUC, dispatcher, log)
	keysHandler := handlers.NewKeysHandler(issueKeyUC, listKeysUC, revokeKeyUC, log)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardUC, liveStatsUC, log)
	feedHandler := handlers.NewFeedHandler(listPostsUC, log)
	usersHandler := handlers.NewUsersHandler(userRepo, updateProfileUC, log)

	var sessionAuth func(http.Handler) http.Handler
	if redisClient != nil {
		sessionAuth = middleware.NewSessionAuth(session.NewRedisVerifier(redisClient)).Handler
	} else {
		// Without redis there is no session store; user endpoints fail closed.
		sessionAuth = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"session store unavailable","code":"internal_error"}`))
			})
		}
	}

	ipLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.RatePerIP)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}
	secureMiddleware := middleware.NewSecure(middleware.SecureOptions(cfg.Secure.IsDevelopment))

	router := httprouter.NewRouter(httprouter.RouterConfig{
		IngestHandler:      ingestHandler,
		KeysHandler:        keysHandler,
		LeaderboardHandler: leaderboardHandler,
		FeedHandler:        feedHandler,
		UsersHandler:       usersHandler,
		HealthHandler:      healthHandler,
		ServiceAuth:        middleware.ServiceTokenAuth(cfg.Bridge.IngestToken),
		SessionAuth:        sessionAuth,
		Secure:             secureMiddleware,
		IPRateLimit:        ipLimit,
		CORS:               middleware.CORS(cfg.Server.CORSAllowedOrigins, nil, nil),
		Log:                log,
		Metrics:            true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}
