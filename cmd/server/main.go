// @title           PrintEase API
// @version         1.0
// @description     Accounts, sessions, chat and notifications for the PrintEase storefront.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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
	"github.com/rs/zerolog"

	"github.com/printease/printease/internal/api"
	"github.com/printease/printease/internal/api/handler"
	"github.com/printease/printease/internal/core/service"
	"github.com/printease/printease/internal/infrastructure/config"
	mongodb "github.com/printease/printease/internal/infrastructure/db/mongo"
	redisdb "github.com/printease/printease/internal/infrastructure/db/redis"
	"github.com/printease/printease/internal/infrastructure/notify"
	"github.com/printease/printease/internal/infrastructure/queue"
	"github.com/printease/printease/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "printease",
	})
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "printease",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	accountRepo := mongodb.NewAccountRepository(db)
	chatRepo := mongodb.NewChatRepository(db)
	notificationRepo := mongodb.NewNotificationRepository(db)
	if err := mongodb.EnsureIndexes(ctx, accountRepo, chatRepo, notificationRepo); err != nil {
		return err
	}

	avatars, err := mongodb.NewAvatarStore(db)
	if err != nil {
		return err
	}

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.Auth.TokenTTL)
	accounts := service.NewAccountService(accountRepo, tokens, log.With().Str("component", "accounts").Logger(), service.AccountOptions{
		BcryptCost:   cfg.Auth.BcryptCost,
		PhoneRegion:  cfg.Auth.PhoneRegion,
		ResetCodeTTL: cfg.Auth.ResetCodeTTL,
		ResetCodes:   redisdb.NewResetCodeStore(rdb),
		CodeSender:   notify.NewLogSender(log.With().Str("component", "mailer").Logger()),
		Avatars:      avatars,
	})
	if cfg.Auth.AdminEmail != "" {
		if err := accounts.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}

	notifications := service.NewNotificationService(notificationRepo, log.With().Str("component", "notifications").Logger())
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, notifications, log.With().Str("component", "dispatcher").Logger())
	dispatcher.Start(ctx)

	chat := service.NewChatService(chatRepo, accountRepo, dispatcher, log.With().Str("component", "chat").Logger())

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Accounts:      accounts,
		Tokens:        tokens,
		Chat:          chat,
		Notifications: notifications,
		Avatars:       avatars,
		HealthChecks: map[string]handler.HealthCheck{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   redisdb.Ping(rdb),
		},
		Log:         log,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		LoginRate:   cfg.HTTP.LoginRate,
		LoginBurst:  cfg.HTTP.LoginBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = dispatcher.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	shutdownErr := srv.Shutdown(shutdownCtx)
	return errors.Join(shutdownErr, dispatcher.Stop(shutdownCtx))
}
