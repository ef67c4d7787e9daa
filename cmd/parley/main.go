package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/app"
	"github.com/parley-forum/parley/internal/categories"
	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/messages"
	"github.com/parley-forum/parley/internal/observability"
	"github.com/parley-forum/parley/internal/platform/cache"
	"github.com/parley-forum/parley/internal/platform/db"
	"github.com/parley-forum/parley/internal/replies"
	"github.com/parley-forum/parley/internal/token"
	"github.com/parley-forum/parley/internal/topics"
	"github.com/parley-forum/parley/internal/users"
	"github.com/parley-forum/parley/jobs"
	"github.com/parley-forum/parley/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Grant lookups fall back to the database, so Redis being down
		// degrades rather than blocks startup.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec, err := token.New(cfg.TokenSecret)
	if err != nil {
		logger.Error("init token codec", slog.Any("error", err))
		os.Exit(1)
	}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, codec, cfg.SessionTokenTTL, cfg.TokenTTL)

	resolver := identity.NewResolver(codec, usersService)

	categoriesRepo := categories.NewRepository(pool)
	grantCache := categories.NewGrantCache(categoriesRepo, redisClient, cfg.GrantCacheTTL)
	gate := access.NewGate(resolver, grantCache)
	guard := access.Middleware{Gate: gate, Logger: logger}

	categoriesService := categories.NewService(categoriesRepo, usersService, grantCache)

	repliesRepo := replies.NewRepository(pool)
	topicsRepo := topics.NewRepository(pool)
	topicsService := topics.NewService(topicsRepo, repliesRepo)
	repliesService := replies.NewService(repliesRepo, topicsService)

	messagesRepo := messages.NewRepository(pool)
	messagesService := messages.NewService(messagesRepo, usersService)

	usersHandler := users.NewHandler(logger, usersService, guard)
	categoriesHandler := categories.NewHandler(logger, categoriesService, gate, guard)
	topicsHandler := topics.NewHandler(logger, topicsService, categoriesService, gate, guard)
	repliesHandler := replies.NewHandler(logger, repliesService, topicsService, categoriesService, gate, guard)
	messagesHandler := messages.NewHandler(logger, messagesService, guard)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		UsersHandler:      usersHandler,
		CategoriesHandler: categoriesHandler,
		TopicsHandler:     topicsHandler,
		RepliesHandler:    repliesHandler,
		MessagesHandler:   messagesHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
