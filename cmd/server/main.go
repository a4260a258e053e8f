package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcrm "github.com/crm/backend/internal/application/crm"
	eventapp "github.com/crm/backend/internal/application/event"
	identityapp "github.com/crm/backend/internal/application/identity"
	reportapp "github.com/crm/backend/internal/application/report"
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/mail"
	"github.com/crm/backend/internal/infrastructure/messaging"
	"github.com/crm/backend/internal/infrastructure/metrics"
	"github.com/crm/backend/internal/infrastructure/migration"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/scheduler"
	"github.com/crm/backend/internal/infrastructure/storage"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/crm/backend/docs"
)

//	@title			CRM Backend API
//	@version		1.0
//	@description	Accounts, leads, notes, sales and monthly sales reports for a team-based sales organisation.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	tel, err := telemetry.Setup(context.Background(), cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Entries are mirrored to the OTel collector when telemetry is on.
	log, err := logger.New(logCfg, tel.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.NewDBTracing("postgresql", cfg.Database.SlowThreshold, log).Register(db.DB); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := runMigrations(sqlDB, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	promMetrics := metrics.New()
	if err := promMetrics.RegisterDBStats(sqlDB, cfg.Database.DBName); err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}
	businessMetrics, err := telemetry.NewBusinessMetrics(tel.Meter.Meter("crm"))
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Redis is optional: without it the token blacklist, idempotency store
	// and report cache stay in memory.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	var cacheFactory *cache.Factory
	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		cacheFactory = cache.NewFactory(redisClient, cache.WithLogger(log))
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		cacheFactory = cache.NewFactory(nil, cache.WithLogger(log))
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	serializer := event.NewDefaultSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))

	userRepo := persistence.NewGormUserRepository(db.DB, outboxPublisher)
	teamRepo := persistence.NewGormTeamRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	leadRepo := persistence.NewGormLeadRepository(db.DB, outboxPublisher)
	noteRepo := persistence.NewGormNoteRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	salesReportRepo := persistence.NewGormSalesReportRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)

	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := identityapp.NewUserService(userRepo, teamRepo, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	teamService := identityapp.NewTeamService(teamRepo, log)
	accountService := appcrm.NewAccountService(accountRepo, leadRepo, userRepo, log)
	leadService := appcrm.NewLeadService(leadRepo, accountRepo, appcrm.Recorders{promMetrics, businessMetrics}, log)
	noteService := appcrm.NewNoteService(noteRepo, accountRepo, log)
	saleService := appcrm.NewSaleService(saleRepo)
	reportService := reportapp.NewReportService(salesReportRepo, cacheFactory.ReportCache(), cfg.Report.CacheTTL, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Event delivery: the processor drains the outbox onto the bus, and
	// every side effect runs behind the idempotency store.
	brokerPublisher, err := messaging.NewPublisher(cfg.Broker, log)
	if err != nil {
		log.Fatal("Failed to connect to message broker", zap.Error(err))
	}
	defer func() {
		if err := brokerPublisher.Close(); err != nil {
			log.Error("Error closing message broker", zap.Error(err))
		}
	}()
	mailer := mail.NewMailer(cfg.Mail, log)

	eventBus := event.NewInMemoryEventBus(log)
	idempotency := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}
	idempotencyStore := cacheFactory.IdempotencyStore()
	for name, h := range map[string]shared.EventHandler{
		"deal_won_forwarder":       appcrm.NewDealWonForwarder(brokerPublisher, log),
		"deal_won_notifier":        appcrm.NewDealWonNotifier(userRepo, accountRepo, mailer, log),
		"report_cache_invalidator": reportapp.NewCacheInvalidator(reportService, log),
	} {
		wrapped := event.NewIdempotentHandler(name, h, idempotencyStore, idempotency, log)
		eventBus.Subscribe(wrapped, wrapped.EventTypes()...)
	}
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log, promMetrics)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval))
	}

	// Monthly report archive. With archiving off, the manual endpoint
	// answers 503.
	var archiveScheduler *scheduler.Scheduler
	var monthlyTrigger *scheduler.MonthlyTrigger
	if cfg.Report.ArchiveEnabled {
		archiver, err := storage.NewReportArchiver(cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to create report archiver", zap.Error(err))
		}
		schedulerCfg := scheduler.DefaultSchedulerConfig()
		schedulerCfg.MaxConcurrentJobs = cfg.Report.ArchiveWorkers
		archiveScheduler = scheduler.NewScheduler(schedulerCfg, reportapp.NewArchiveExecutor(reportService, archiver, log), log)
		if err := archiveScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start report scheduler", zap.Error(err))
		}
		triggerCfg := scheduler.DefaultMonthlyTriggerConfig()
		triggerCfg.Hour = cfg.Report.ArchiveHour
		monthlyTrigger = scheduler.NewMonthlyTrigger(triggerCfg, archiveScheduler, log)
		if err := monthlyTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start monthly archive trigger", zap.Error(err))
		}
		log.Info("Report archiving enabled", zap.Int("hour_utc", triggerCfg.Hour))
	}

	middleware.SetupValidator()

	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:     "redis",
			Check:    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			Optional: true,
		})
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, checks...).
		WithPoolStats(func() (any, error) { return db.Stats() })

	engineCfg := router.EngineConfig{
		Logger:         log,
		CORS:           middleware.DefaultCORSConfig(),
		Security:       middleware.DefaultSecurityConfig(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Swagger:        middleware.SwaggerConfig{Enabled: cfg.Swagger.Enabled, AllowedIPs: cfg.Swagger.AllowedIPs},
		MetricsPath:    cfg.Metrics.Path,
		Health:         systemHandler.Health,
	}
	engineCfg.CORS.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		engineCfg.CORS.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		engineCfg.CORS.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	if cfg.Telemetry.Enabled {
		engineCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	if cfg.Metrics.Enabled {
		engineCfg.Metrics = promMetrics
	}
	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	enforcer, err := middleware.NewRouteEnforcer(access.Policies())
	if err != nil {
		log.Fatal("Failed to load route policies", zap.Error(err))
	}
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
	})

	// A nil *Scheduler must not reach the handler as a non-nil interface.
	var reportScheduler handler.ArchiveScheduler
	if archiveScheduler != nil {
		reportScheduler = archiveScheduler
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Accounts: handler.NewAccountHandler(accountService, leadService, noteService),
		Leads:    handler.NewLeadHandler(leadService),
		Notes:    handler.NewNoteHandler(noteService),
		Sales:    handler.NewSaleHandler(saleService),
		Reports:  handler.NewReportHandler(reportService, reportScheduler),
		Users:    handler.NewUserHandler(userService),
		Teams:    handler.NewTeamHandler(teamService),
		Outbox:   handler.NewOutboxHandler(outboxService),
		System:   systemHandler,
	}, router.Guards{
		Session:      router.SessionChain(jwtMiddleware, cfg.Telemetry.ProfilingEnabled),
		Perms:        middleware.NewPermissions(middleware.PermissionConfig{Enforcer: enforcer, Logger: log}),
		LoginLimiter: middleware.NewRateLimiter(cfg.HTTP.LoginRatePerMinute, cfg.HTTP.LoginBurst),
	})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if monthlyTrigger != nil {
		if err := monthlyTrigger.Stop(ctx); err != nil {
			log.Error("Error stopping monthly trigger", zap.Error(err))
		}
	}
	if archiveScheduler != nil {
		if err := archiveScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping report scheduler", zap.Error(err))
		}
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(ctx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := idempotencyStore.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if err := tel.Shutdown(ctx); err != nil {
		log.Error("Error flushing telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runMigrations brings the schema up to the embedded head version.
func runMigrations(sqlDB *sql.DB, log *zap.Logger) error {
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}
