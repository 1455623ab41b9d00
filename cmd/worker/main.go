// Package main - точка входа для фонового процесса (Worker) Trainee Tracker.
//
// Worker отвечает за периодические задачи:
// - Ран сверки: PR-события GitHub + чекины реестра -> отчёт по батчу
// - Пересчёт активности ревьюеров по курсам
// - Публикация доменных событий (трейни в зоне риска, ревьюер неактивен)
//
// Read-сторона (HTTP API) живёт в отдельном процессе cmd/server и читает
// снапшоты, которые пишет этот воркер.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/trainee-hub/trainee-tracker/config"

	// Application layer
	"github.com/trainee-hub/trainee-tracker/internal/application/command"
	"github.com/trainee-hub/trainee-tracker/internal/application/eventhandler"

	// Infrastructure layer
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/catalog"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/external/github"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/external/register"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/messaging"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/persistence/postgres"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/persistence/redis"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/scheduler"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/scheduler/jobs"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/service"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
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
	log, slogger := setupLogging(cfg)
	log.Info("starting Trainee Tracker Worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ЗАГРУЗКА КАТАЛОГА КУРСОВ И БАТЧЕЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("loading catalog...", logger.String("path", cfg.Catalog.Path))
	loader, err := catalog.NewLoader(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info("catalog loaded",
		logger.Int("courses", len(loader.CourseNames())),
		logger.Int("batches", len(loader.BatchSlugs())),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
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
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var reportCache *redis.ReportCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// Кеш ускоряет read-сторону, но воркер пишет снапшоты в
			// Postgres в любом случае. Без Redis просто работаем дальше.
			log.Warn("failed to connect to Redis, continuing without cache", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			reportCache = redis.NewReportCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	snapshotRepo := postgres.NewSnapshotRepository(dbConn)
	reviewerRepo := postgres.NewReviewerRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ И АДАПТЕРОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing external clients...")

	ghConfig := github.DefaultClientConfig(cfg.Github.Token)
	ghConfig.BaseURL = cfg.Github.BaseURL
	ghConfig.PerPage = cfg.Github.PerPage
	ghConfig.Timeout = cfg.Github.RequestTimeout
	ghConfig.Logger = log
	ghClient := github.NewClient(ghConfig)

	regConfig := register.DefaultClientConfig(cfg.Register.BaseURL, cfg.Register.APIKey)
	regConfig.Timeout = cfg.Register.RequestTimeout
	regConfig.Logger = log
	regClient := register.NewClient(regConfig)

	githubAdapter := service.NewGithubEventAdapter(ghClient, loader, cfg.Github.Org, log)
	registerAdapter := service.NewRegisterAdapter(regClient)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. EVENT BUS И ДИСПЕТЧЕР СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

	localBusConfig := messaging.DefaultInMemoryEventBusConfig()
	localBusConfig.Logger = slogger

	var eventBus shared.EventBus
	var busCloser interface{ Close() error }
	if redisCache != nil {
		// Через Redis события доходят и до других инстансов (read-сторона
		// может инвалидировать свои кеши по run.completed).
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubAdapter(redisCache),
			InstanceID:     uuid.NewString(),
			LocalBusConfig: localBusConfig,
			Logger:         slogger,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		eventBus = redisBus
		busCloser = redisBus
	} else {
		localBus := messaging.NewInMemoryEventBus(localBusConfig)
		eventBus = localBus
		busCloser = localBus
	}

	dispatcherConfig := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherConfig.Logger = slogger
	dispatcher := messaging.NewDispatcher(dispatcherConfig)
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	dispatcher.Use(messaging.LoggingMiddleware(slogger))

	// Уведомления стаффу: вебхук если настроен, иначе лог
	var notifier eventhandler.StaffNotifier
	if cfg.Notifications.WebhookURL != "" {
		notifier = service.NewWebhookStaffNotifier(cfg.Notifications.WebhookURL, log)
	} else {
		notifier = service.NewLogStaffNotifier(log)
	}

	// Каждый тип уведомления можно выключить фиче-флагом, не трогая
	// сам пайплайн сверки.
	if cfg.Features.IsEnabled(config.FeatureNotifyAtRisk, nil) {
		atRiskHandler := eventhandler.NewOnTraineeAtRiskHandler(notifier, log, eventhandler.DefaultAtRiskConfig())
		if err := dispatcher.Register(shared.EventTraineeAtRisk, "on_trainee_at_risk", atRiskHandler.Handle); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyReviewerInactive, nil) {
		inactiveHandler := eventhandler.NewOnReviewerInactiveHandler(notifier, log, eventhandler.DefaultReviewerInactiveConfig())
		if err := dispatcher.Register(shared.EventReviewerInactive, "on_reviewer_inactive", inactiveHandler.Handle); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. COMMAND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	var cacheWriter command.ReportCacheWriter
	if reportCache != nil {
		cacheWriter = reportCache
	}

	reconcileHandler := command.NewRunReconciliationHandler(
		loader,
		githubAdapter,
		registerAdapter,
		snapshotRepo,
		cacheWriter,
		eventBus,
		nil, // builder по умолчанию
	)

	refreshHandler := command.NewRefreshReviewersHandler(
		githubAdapter,
		reviewerRepo,
		eventBus,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. SCHEDULER И ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: slogger})

	reconcileCfg := jobs.DefaultReconcileBatchesConfig()
	reconcileCfg.Timeout = cfg.Scheduler.JobTimeout
	reconcileJob := jobs.NewReconcileBatchesJob(loader, reconcileHandler, slogger, reconcileCfg)
	if err := sched.Register(reconcileJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcileInterval)); err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	refreshJob := jobs.NewRefreshReviewersJob(loader, refreshHandler, slogger, jobs.DefaultRefreshReviewersConfig())
	if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshReviewersInterval)); err != nil {
		return fmt.Errorf("failed to register refresh job: %w", err)
	}

	// Чистка старых снапшотов идёт ночью по cron, когда раны сверки
	// никому не нужны срочно.
	pruneSchedule, err := scheduler.NewCronSchedule(cfg.Scheduler.PruneCron)
	if err != nil {
		return fmt.Errorf("invalid prune cron expression: %w", err)
	}
	pruneJob := jobs.NewPruneSnapshotsJob(snapshotRepo, cfg.Scheduler.SnapshotRetention, slogger)
	if err := sched.Register(pruneJob, pruneSchedule); err != nil {
		return fmt.Errorf("failed to register prune job: %w", err)
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started",
			logger.Duration("reconcile_interval", cfg.Scheduler.ReconcileInterval),
			logger.Duration("reviewers_interval", cfg.Scheduler.RefreshReviewersInterval),
		)

		// Первый прогон сразу, не дожидаясь интервала: после деплоя отчёты
		// должны появиться в течение минут, а не часов.
		if _, err := sched.RunNow(ctx, reconcileJob.Name()); err != nil {
			log.Warn("failed to trigger initial reconciliation", logger.Err(err))
		}
	} else {
		log.Warn("scheduler is disabled, worker will stay idle")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Trainee Tracker Worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if cfg.Scheduler.Enabled {
			_ = sched.Stop()
		}
		_ = dispatcher.Stop()
		_ = busCloser.Close()
	}()

	select {
	case <-shutdownDone:
		log.Info("shutdown completed successfully")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timed out, exiting anyway")
	}

	return nil
}

// setupLogging настраивает оба логгера: структурированный логгер приложения
// и slog для инфраструктурных компонентов (scheduler, messaging).
func setupLogging(cfg *config.Config) (*logger.Logger, *slog.Logger) {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	log := logger.New(opts)

	slogOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		slogOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, slogOpts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, slogOpts)
	}

	slogger := slog.New(handler)
	slog.SetDefault(slogger)

	return log, slogger
}
