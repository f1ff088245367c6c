package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront-live/internal/api/http"
	"github.com/spec-kit/storefront-live/internal/api/http/handlers"
	"github.com/spec-kit/storefront-live/internal/auth"
	"github.com/spec-kit/storefront-live/internal/config"
	"github.com/spec-kit/storefront-live/internal/events"
	"github.com/spec-kit/storefront-live/internal/observability"
	"github.com/spec-kit/storefront-live/internal/persistence"
	"github.com/spec-kit/storefront-live/internal/repository"
	"github.com/spec-kit/storefront-live/internal/service"
	"github.com/spec-kit/storefront-live/internal/session"
	"github.com/spec-kit/storefront-live/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		principalRepo repository.PrincipalRepository
		orderRepo     repository.OrderRepository
	)
	if pool != nil {
		principalRepo = repository.NewPrincipalRepository(pool)
		orderRepo = repository.NewOrderRepository(pool)
	} else {
		logger.Warn("using in-memory principal and order stores")
		principalRepo = repository.NewMemoryPrincipalRepository()
		orderRepo = repository.NewMemoryOrderRepository()
	}

	metrics := observability.NewMetrics()
	sessions := session.NewStore(redis.Client, cfg.Session.KeyPrefix, cfg.Session.TTL())
	unread := repository.NewUnreadCounter(redis.Client, cfg.Session.KeyPrefix)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.StaffTokenTTL())
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	resolver := auth.NewResolver(auth.ResolverDependencies{
		Principals: principalRepo,
		Tokens:     tokens,
		Sessions:   sessions,
		Logger:     logger,
	})
	cookieNames := auth.CookieNames{
		Customer: cfg.Session.CustomerCookie,
		Admin:    cfg.Session.AdminCookie,
		Staff:    cfg.Session.StaffCookie,
	}
	authMiddleware := auth.NewAuthMiddleware(resolver, cookieNames)

	registry := stream.NewRegistry()
	notifier := stream.NewNotifier(registry, metrics)
	dispatcher := events.NewInMemoryDispatcher(logger)

	notificationService := service.NewNotificationService(dispatcher, notifier, unread, logger)
	orderService := service.NewOrderService(orderRepo, dispatcher)
	authService := service.NewAuthService(service.AuthDependencies{
		Principals: principalRepo,
		Sessions:   sessions,
		Tokens:     tokens,
		Hasher:     hasher,
	})
	notificationService.RegisterHandlers()

	lifecycle := stream.NewLifecycle(registry,
		stream.WithKeepAlive(cfg.Stream.KeepAlive()),
		stream.WithWriteTimeout(cfg.Stream.WriteTimeout()),
		stream.WithOutbox(cfg.Stream.OutboxFrames),
		stream.WithLogger(logger),
		stream.WithMetrics(metrics),
		stream.WithOnOpen(notificationService.SyncUnread),
	)

	if cfg.Auth.BootstrapAdminEmail != "" && cfg.Auth.BootstrapAdminPassword != "" {
		admin, created, err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
		if err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap admin created", zap.String("principal_id", admin.ID))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthDependencies{
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Postgres:    pg,
			Redis:       redis,
			Registry:    registry,
			Metrics:     metrics,
		}),
		Auth: handlers.NewAuthHandler(authService, handlers.CookieSettings{
			Names:      cookieNames,
			SessionTTL: cfg.Session.TTL(),
			StaffTTL:   tokens.TTL(),
			Secure:     cfg.Session.SecureCookies,
		}),
		Notifications:  handlers.NewNotificationsHandler(lifecycle, notificationService, logger),
		Admin:          handlers.NewAdminHandler(orderService, notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Open streams never finish on their own; close them so Shutdown can drain.
	registry.Close()
	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
