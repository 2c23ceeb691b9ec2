package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/tazhibayda/task-service/docs"
	"github.com/tazhibayda/task-service/internal/account"
	"github.com/tazhibayda/task-service/internal/config"
	api "github.com/tazhibayda/task-service/internal/http"
	"github.com/tazhibayda/task-service/internal/identity"
	"github.com/tazhibayda/task-service/internal/log"
	"github.com/tazhibayda/task-service/internal/metrics"
	"github.com/tazhibayda/task-service/internal/oauth"
	"github.com/tazhibayda/task-service/internal/queue"
	"github.com/tazhibayda/task-service/internal/repo"
)

// @title task-service API
// @version 1.0
// @description Task management backend: email/Google auth and per-user tasks.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := log.Init(cfg.Prod)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	var rds *repo.Redis
	if cfg.RedisAddr != "" {
		rds = repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, rate limiting disabled", zap.Error(err))
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		if rp, err := queue.NewRabbit(cfg.RabbitURL); err != nil {
			logger.Warn("rabbit unreachable, events disabled", zap.Error(err))
		} else {
			pub = rp
		}
	}
	defer pub.Close()

	dir := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey)
	verifier := identity.NewVerifier(
		identity.NewFetcher(cfg.IdentityJWKSURL, time.Hour),
		identity.NewFetcher(cfg.GoogleJWKSURL, time.Hour),
		cfg.ProjectID, cfg.GoogleClientID,
	)
	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.OAuthStateSecret)
	accounts := account.NewReconciler(dir, store)

	h := api.NewHandler(store, accounts, verifier, google, cfg.JWTSecret, cfg.SessionTTLDays, rds, cfg.RateLimitPerMin, pub)
	h.FrontendURL = cfg.FrontendURL
	h.AllowedOrigins = cfg.AllowedOrigins
	h.APIKeys = cfg.APIKeys
	if cfg.DefaultAPIKey != "" {
		h.APIKeys = append(h.APIKeys, cfg.DefaultAPIKey)
	}

	r := api.NewRouter(h)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	logger.Info("task-service listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
