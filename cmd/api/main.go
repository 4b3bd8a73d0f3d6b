package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/datifyy/datifyy-service/internal/api/http"
	"github.com/datifyy/datifyy-service/internal/api/http/handlers"
	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/cache"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/mail"
	"github.com/datifyy/datifyy-service/internal/observability"
	"github.com/datifyy/datifyy-service/internal/persistence"
	"github.com/datifyy/datifyy-service/internal/queue"
	"github.com/datifyy/datifyy-service/internal/repository"
	"github.com/datifyy/datifyy-service/internal/service"
	"github.com/datifyy/datifyy-service/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	waitlistRepo := repository.NewWaitlistRepository(pool)
	dateRepo := repository.NewCuratedDateRepository(pool)
	historyRepo := repository.NewDateHistoryRepository(pool)
	feedbackRepo := repository.NewDateFeedbackRepository(pool)
	workflowRepo := repository.NewWorkflowRepository(pool)
	slotRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	metricsRepo := repository.NewMetricsRepository(pool)
	revenueRepo := repository.NewRevenueRepository(pool)
	schemaRepo := repository.NewSchemaRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.AdminTokenTTLMinutes)
	revocations := cache.NewTokenRevocations(redis.Client, redis.Key("auth:revoked:"))

	renderer, err := mail.NewRenderer()
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}
	inline := queue.NewInlinePublisher(nil)
	var publisher queue.Publisher = inline
	if cfg.Queue.URL != "" {
		amqpPublisher := queue.NewAMQPPublisher(cfg.Queue.URL, cfg.Queue.EmailQueue, logger)
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Tokens:            tokens,
		Revocations:       revocations,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	adminAuthService := service.NewAdminAuthService(cfg.Auth, service.AdminAuthDependencies{
		AdminRepo:   adminRepo,
		Tokens:      tokens,
		Revocations: revocations,
		Logger:      logger,
	})
	adminService := service.NewAdminService(cfg.Auth, service.AdminServiceDependencies{
		AdminRepo: adminRepo,
		Logger:    logger,
	})
	userAdminService := service.NewUserAdminService(userRepo, logger)
	waitlistService := service.NewWaitlistService(service.WaitlistDependencies{
		WaitlistRepo: waitlistRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	curationService := service.NewCurationService(service.CurationDependencies{
		DateRepo:     dateRepo,
		HistoryRepo:  historyRepo,
		FeedbackRepo: feedbackRepo,
		WorkflowRepo: workflowRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	availabilityService := service.NewAvailabilityService(service.AvailabilityDependencies{
		SlotRepo:    slotRepo,
		BookingRepo: bookingRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	bookingService := service.NewBookingService(service.BookingDependencies{
		SlotRepo:    slotRepo,
		BookingRepo: bookingRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	dashboardService := service.NewDashboardService(cfg.Dashboard, service.DashboardDependencies{
		MetricsRepo: metricsRepo,
		Cache:       cache.NewJSONCache(redis.Client, redis.Key("dashboard:")),
		Logger:      logger,
	})
	revenueService := service.NewRevenueService(service.RevenueDependencies{
		RevenueRepo: revenueRepo,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(cfg.Notification, service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Renderer:         renderer,
		Publisher:        publisher,
		Mailer:           mail.NewLogMailer(logger),
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	schemaService := service.NewSchemaService(schemaRepo, logger)

	worker.StartNotificationWorker(ctx, cfg.Queue, notificationService, inline, logger)
	worker.StartMetricsWorker(ctx, dashboardService, cfg.Dashboard.RefreshInterval, logger)

	metrics := observability.NewMetrics()
	rateLimit := cfg.RateLimit
	rateLimit.Prefix = redis.Key(rateLimit.Prefix)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, adminRepo, revocations, cfg.Auth.CookieName)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Users:          handlers.NewUsersHandler(authService, cfg.Auth),
		AdminAuth:      handlers.NewAdminAuthHandler(adminAuthService, cfg.Auth),
		Admins:         handlers.NewAdminsHandler(adminService, cfg.Auth.AdminLockDuration()),
		UserAdmin:      handlers.NewUserAdminHandler(userAdminService),
		Waitlist:       handlers.NewWaitlistHandler(waitlistService),
		CuratedDates:   handlers.NewCuratedDatesHandler(curationService),
		Dates:          handlers.NewDatesHandler(curationService),
		Availability:   handlers.NewAvailabilityHandler(availabilityService),
		Bookings:       handlers.NewBookingsHandler(bookingService),
		Analytics:      handlers.NewAnalyticsHandler(dashboardService, revenueService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Schema:         handlers.NewSchemaHandler(schemaService),
		AuthMiddleware: authMiddleware,
		RateLimit:      httptransport.NewRateLimiter(rateLimit, redis.Client, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
