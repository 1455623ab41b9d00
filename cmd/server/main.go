// Package main - точка входа для HTTP API (read-сторона) Trainee Tracker.
//
// Сервер отдаёт отчёты, которые собирает воркер: прогресс батча из
// снапшотов (с Redis-кешем поверх) и активность ревьюеров по курсу.
// Ничего не пишет, кроме собственных логов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/trainee-hub/trainee-tracker/config"

	// Application layer
	"github.com/trainee-hub/trainee-tracker/internal/application/query"

	// Infrastructure layer
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/catalog"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/external/github"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/persistence/postgres"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/persistence/redis"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/trainee-hub/trainee-tracker/internal/interface/http"
	"github.com/trainee-hub/trainee-tracker/internal/interface/http/handlers"

	"github.com/trainee-hub/trainee-tracker/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Trainee Tracker API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ЗАГРУЗКА КАТАЛОГА
	// Каталог нужен и read-стороне: отчёт по ревьюерам строится по
	// репозиториям курса.
	// ─────────────────────────────────────────────────────────────────────────
	loader, err := catalog.NewLoader(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.Connect(ctx, cfg.Database.URL, postgres.PoolSettings{
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	snapshotRepo := postgres.NewSnapshotRepository(dbConn)
	reviewerRepo := postgres.NewReviewerRepository(dbConn)
	staffAuth := postgres.NewStaffTokenVerifier(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var reportCache query.ReportCache

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, serving from snapshots only", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			reportCache = redis.NewReportCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GITHUB CLIENT (для отчёта по ревьюерам)
	// ─────────────────────────────────────────────────────────────────────────
	ghConfig := github.DefaultClientConfig(cfg.Github.Token)
	ghConfig.BaseURL = cfg.Github.BaseURL
	ghConfig.PerPage = cfg.Github.PerPage
	ghConfig.Timeout = cfg.Github.RequestTimeout
	ghConfig.Logger = log
	ghClient := github.NewClient(ghConfig)

	githubAdapter := service.NewGithubEventAdapter(ghClient, loader, cfg.Github.Org, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. QUERY HANDLERS (CQRS Read Side)
	// ─────────────────────────────────────────────────────────────────────────
	batchReportHandler := query.NewGetBatchReportHandler(reportCache, snapshotRepo)
	reviewerReportHandler := query.NewGetReviewerReportHandler(githubAdapter, reviewerRepo, staffAuth)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	healthChecker.AddCheck("github", handlers.NewExternalAPICheck("github", ghClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.StaffTokenHeader = cfg.HTTP.StaffTokenHeader

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		GetBatchReportHandler:    batchReportHandler,
		GetReviewerReportHandler: reviewerReportHandler,
		StaffAuth:                staffAuth,
		Features:                 cfg.Features,
		Logger:                   log,
		HealthChecker:            healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("HTTP server started", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger настраивает структурированный логгер приложения.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}

	// slog остаётся для инфраструктурных пакетов, которые на нём
	slogOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		slogOpts.Level = slog.LevelDebug
	}
	if cfg.Observability.LogFormat == "text" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, slogOpts)))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, slogOpts)))
	}

	return logger.New(opts)
}
