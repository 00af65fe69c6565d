package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"recipehub/auth"
	"recipehub/config"
	"recipehub/db"
	"recipehub/logging"
	"recipehub/middleware"
	"recipehub/mq"
	"recipehub/payments"
	"recipehub/ratelim"
	"recipehub/rdx"
	"recipehub/recipes"
	"recipehub/routes"
	"recipehub/users"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}
	cancel()

	// redis is optional: without it events, activity and logout revocation are off
	var (
		conn     *redis.Client
		events   mq.Emitter = mq.Nop{}
		feed     users.ActivityReader
		denylist *rdx.TokenDenylist
		revoker  auth.Revoker
		revoked  middleware.Revocations
	)
	if cfg.RedisAddr != "" {
		conn = rdx.NewClient(cfg.RedisAddr)
		if err := rdx.Ping(ctx, conn); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, continuing without it")
			_ = conn.Close()
			conn = nil
		}
	}
	if conn != nil {
		activity := rdx.NewActivityFeed(conn)
		denylist = rdx.NewTokenDenylist(conn)
		events = mq.NewPublisher(conn)
		feed = activity
		revoker = denylist
		revoked = denylist
		go mq.StartWorker(ctx, conn, mq.RecordActivity(activity))
	}

	tokens := middleware.NewAuth(cfg.JWTSecret, revoked)

	limiter := ratelim.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx, time.Minute)

	userSvc := users.NewService(store.Users, events, int64(cfg.DefaultPageLimit))
	recipeSvc := recipes.NewService(store.Recipes, events, recipes.MediaSettings{
		UploadDir:     cfg.UploadDir,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	deps := routes.Deps{
		Auth:      tokens,
		Limiter:   limiter,
		Users:     users.NewHandler(userSvc, feed),
		Recipes:   recipes.NewHandler(recipeSvc),
		Login:     auth.NewHandler(userSvc, tokens, revoker, cfg.TokenTTL),
		UploadDir: cfg.UploadDir,
		Health: map[string]routes.Pinger{
			"mongo": store.Ping,
		},
	}
	if conn != nil {
		deps.Health["redis"] = func(ctx context.Context) error { return rdx.Ping(ctx, conn) }
	}

	if cfg.PaymentsEnabled {
		client, err := payments.NewClient(payments.Settings{
			SecretKey:  cfg.StripeSecretKey,
			SuccessURL: cfg.StripeSuccessURL,
			CancelURL:  cfg.StripeCancelURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("payments enabled but misconfigured")
		}
		idem := payments.NewIdempotency(store.Idempotency, 24*time.Hour)
		if err := idem.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create idempotency indexes")
		}
		deps.Payments = payments.NewHandler(client)
		deps.Idempotency = idem
	}

	if err := os.MkdirAll(filepath.Join(cfg.UploadDir, "recipes"), 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create upload directory")
	}

	router := routes.New(deps)

	// security headers, then CORS, request logging and recovery around the router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
	}).Handler(middleware.RequestLogger(middleware.Recover(router)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           securityHeaders(corsHandler),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info().Msg("closing backing connections")
		if conn != nil {
			_ = conn.Close()
		}
	})

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := store.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongodb disconnect failed")
	}
	log.Info().Msg("server stopped cleanly")
}
