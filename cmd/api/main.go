package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httptransport "github.com/voltdesk/maintenance-service/internal/api/http"
	"github.com/voltdesk/maintenance-service/internal/api/http/handlers"
	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/clock"
	"github.com/voltdesk/maintenance-service/internal/config"
	"github.com/voltdesk/maintenance-service/internal/csms"
	"github.com/voltdesk/maintenance-service/internal/events"
	"github.com/voltdesk/maintenance-service/internal/observability"
	"github.com/voltdesk/maintenance-service/internal/persistence"
	"github.com/voltdesk/maintenance-service/internal/repository"
	"github.com/voltdesk/maintenance-service/internal/service"
	"github.com/voltdesk/maintenance-service/internal/sla"
	"github.com/voltdesk/maintenance-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	clk := clock.System()
	dispatcher := events.NewInMemoryDispatcher()

	repos := repository.NewRepositories(pg.Pool)
	txRunner := repository.NewTxRunner(pg.Pool)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens, repos.Users)
	rolePolicy := auth.NewDefaultRolePolicy()

	resolver := sla.NewResolver(repos.Sla, redis.Client, cfg.Sla.PolicyCacheTTL(), logger)
	machine := service.NewStateMachine(rolePolicy)
	assignments := service.NewAssignmentService(rolePolicy)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Tx:          txRunner,
		Machine:     machine,
		Assignments: assignments,
		Resolver:    resolver,
		Clock:       clk,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	policyService := service.NewSlaPolicyService(txRunner, resolver)
	authService := service.NewAuthService(txRunner, tokens, clk, logger)
	csmsClient := csms.NewClient(cfg.Csms, logger)
	csmsService := service.NewCsmsService(txRunner, csmsClient, clk, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	scanner := worker.NewSlaScanner(ticketService, redis.Client, cfg.Sla, logger, metrics, uuid.NewString())
	go scanner.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Sla:            handlers.NewSlaHandler(policyService),
		Csms:           handlers.NewCsmsHandler(csmsService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
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
