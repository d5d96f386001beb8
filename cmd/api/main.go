package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-service/internal/api/http"
	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/config"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/observability"
	"github.com/spec-kit/issue-service/internal/persistence"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/service"
	"github.com/spec-kit/issue-service/internal/sla"
	"github.com/spec-kit/issue-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	issueRepo := repository.NewIssueRepository(pool)
	historyRepo := repository.NewStatusHistoryRepository(pool)
	messageRepo := repository.NewIssueMessageRepository(pool)
	agencyConfigs := repository.NewCachedConfigProvider(
		repository.NewSLAConfigRepository(pool),
		redis.Client,
		cfg.SLA.ConfigCacheTTL(),
		logger,
	)

	dispatcher := events.NewInMemoryDispatcher()

	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:     issueRepo,
		HistoryRepo:   historyRepo,
		MessageRepo:   messageRepo,
		AgencyConfigs: agencyConfigs,
		Dispatcher:    dispatcher,
		SLADefaults: sla.Defaults{
			EmergencyHours: cfg.SLA.DefaultEmergencyHours,
			UrgentHours:    cfg.SLA.DefaultUrgentHours,
			RoutineHours:   cfg.SLA.DefaultRoutineHours,
			LowHours:       cfg.SLA.DefaultLowHours,
		},
		CloseGrace: cfg.SLA.CloseGrace(),
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	if cfg.Worker.Enabled {
		overdueWorker := worker.NewOverdueWorker(issueRepo, redis, dispatcher, logger,
			cfg.Worker.SweepInterval(), cfg.Worker.OverdueSweepLimit)
		go overdueWorker.Start(ctx)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	metrics := observability.NewMetrics()
	observability.RegisterEventMetrics(dispatcher, metrics)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Issues:         handlers.NewIssuesHandler(issueService),
		Responder:      handlers.NewResponderIssuesHandler(issueService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
