package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, persistence.MigrateUp, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pg.Pool)
	ticketRepo := repository.NewTicketRepository(pg.Pool)
	markRepo := repository.NewMarkRepository(pg.Pool)
	commentRepo := repository.NewCommentRepository(pg.Pool)
	historyRepo := repository.NewTicketHistoryRepository(pg.Pool)
	sessionRepo := repository.NewSessionRepository(rdb.Client, cfg.Redis.SessionPrefix)

	dispatcher := events.NewInMemoryDispatcher()
	publisher, err := events.NewPublisher(cfg.Broker.URL, cfg.Broker.Topic, rdb.Client)
	if err != nil {
		return fmt.Errorf("failed to init event publisher: %w", err)
	}
	notifications := worker.StartNotificationWorker(dispatcher, publisher, cfg.Notification, logger)

	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())

	history := service.NewHistoryService(service.HistoryDependencies{
		HistoryRepo: historyRepo,
		TicketRepo:  ticketRepo,
		Authorizer:  authorizer,
		Logger:      logger,
	})
	history.RegisterHandlers(dispatcher)

	app := httptransport.NewApp(httptransport.AppDependencies{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		Authorizer: authorizer,
		Users:      userRepo,
		Postgres:   pg,
		Redis:      rdb,
		AuthService: service.NewAuthService(service.AuthDependencies{
			UserRepo:     userRepo,
			SessionRepo:  sessionRepo,
			TokenManager: tokens,
		}),
		UserService: service.NewUserService(service.UserDependencies{
			UserRepo:   userRepo,
			Authorizer: authorizer,
			BcryptCost: cfg.Auth.BcryptCost,
		}),
		TicketService: service.NewTicketService(service.TicketDependencies{
			TicketRepo: ticketRepo,
			UserRepo:   userRepo,
			Authorizer: authorizer,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		MarkService: service.NewMarkService(service.MarkDependencies{
			MarkRepo:   markRepo,
			TicketRepo: ticketRepo,
			Authorizer: authorizer,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		CommentService: service.NewCommentService(service.CommentDependencies{
			CommentRepo: commentRepo,
			TicketRepo:  ticketRepo,
			UserRepo:    userRepo,
			Authorizer:  authorizer,
			Dispatcher:  dispatcher,
			Logger:      logger,
		}),
		HistoryService: history,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if notifications != nil {
		if err := notifications.Close(); err != nil {
			logger.Warn("notification worker close", zap.Error(err))
		}
	}
	logger.Info("server exited")
	return nil
}
