package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	auditapp "github.com/storefront/backend/internal/application/audit"
	billingapp "github.com/storefront/backend/internal/application/billing"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	exportapp "github.com/storefront/backend/internal/application/export"
	identityapp "github.com/storefront/backend/internal/application/identity"
	importapp "github.com/storefront/backend/internal/application/import"
	orderapp "github.com/storefront/backend/internal/application/order"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	storeapp "github.com/storefront/backend/internal/application/store"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/billing"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/idempotency"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// Maintenance job types enqueued by the cron trigger
const (
	jobPurgeCarts       = "cart.purge"
	jobPruneIdempotency = "idempotency.prune"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel := cfg.Telemetry
	serviceName := tel.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// OTLP log export: rebuild the logger with the bridge core teed in
	var logsProvider *telemetry.LoggerProvider
	if tel.Enabled && tel.LogsEnabled {
		logsProvider, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
			Enabled:           true,
			CollectorEndpoint: tel.CollectorEndpoint,
			ServiceName:       serviceName,
			Insecure:          tel.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize log exporter", zap.Error(err))
		}
		log, err = logger.New(logCfg, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    serviceName,
			LoggerProvider: logsProvider,
			Level:          logger.ParseLevel(cfg.Log.Level),
		}))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tel.Enabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		SamplingRatio:     tel.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          tel.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tel.Enabled && tel.MetricsEnabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          tel.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tel.ProfilingEnabled,
		ServerAddress:   tel.PyroscopeURL,
		ApplicationName: serviceName,
	}, log)
	if err != nil {
		log.Warn("Continuous profiling unavailable", zap.Error(err))
	} else if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		// link flame graphs to the spans that produced them
		tracerProvider.EnableSpanProfiles()
	}

	// Business metrics stay nil without a meter; recording is then a no-op.
	var metrics *telemetry.BusinessMetrics
	if meterProvider.IsEnabled() {
		metrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:  meterProvider.Meter("storefront"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Business metrics unavailable", zap.Error(err))
		}
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if tel.Enabled && tel.DBTraceEnabled {
		tracingCfg := telemetry.DefaultDBTracingConfig()
		tracingCfg.Enabled = true
		if err := telemetry.NewDBTracingPlugin(tracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	if dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log); err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	} else if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Redis backs the idempotency store and the shared rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Repositories
	tx := persistence.NewGormTxManager(db.DB)
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	membershipRepo := persistence.NewGormMembershipRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	brandRepo := persistence.NewGormBrandRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	attributeRepo := persistence.NewGormAttributeRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	exportJobRepo := persistence.NewGormExportJobRepository(db.DB)
	auditLogIdempotency := persistence.NewAuditLogIdempotencyStore(db.DB)

	// Webhook idempotency. The guard fails closed, so a missing backend is fatal.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency,
		cache.WithLogger(log),
		cache.WithRedisClient(redisClient),
		cache.WithAuditLogStore(auditLogIdempotency),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()
	guard := idempotency.NewGuard(idempotencyStore, log,
		idempotency.WithConfig(shared.IdempotencyConfig{
			LockTTL:   cfg.Idempotency.LockTTL,
			Retention: cfg.Idempotency.Retention,
			Enabled:   true,
		}),
		idempotency.WithObserver(func(ctx context.Context, source string, outcome idempotency.Outcome) {
			metrics.RecordWebhook(ctx, source, string(outcome))
		}),
	)

	// Payment gateways
	stripeAdapter, err := billing.NewStripeAdapter(billing.NewStripeConfig(cfg.Stripe, cfg.App.BaseURL), log)
	if err != nil {
		log.Fatal("Invalid Stripe configuration", zap.Error(err))
	}
	sslcommerzAdapter, err := payment.NewSSLCommerzAdapter(payment.NewSSLCommerzConfig(cfg.SSLCommerz), log)
	if err != nil {
		log.Fatal("Invalid SSLCommerz configuration", zap.Error(err))
	}

	// Export file storage
	var objectStorage exportapp.ObjectStorage
	switch cfg.Storage.Provider {
	case "s3":
		s3Storage, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Warn("Export bucket check failed", zap.String("bucket", s3Storage.GetBucket()), zap.Error(err))
		}
		objectStorage = s3Storage
	default:
		log.Warn("Using in-memory export storage; export files are lost on restart")
		objectStorage = storage.NewMemoryObjectStorage(cfg.App.BaseURL)
	}

	// Job queue
	queue, err := scheduler.NewQueue(scheduler.QueueConfig{
		PollInterval:   cfg.Jobs.PollInterval,
		MaxConcurrency: cfg.Jobs.MaxConcurrency,
		MaxAttempts:    cfg.Jobs.MaxAttempts,
		RetryDelay:     cfg.Jobs.RetryDelay,
		JobTimeout:     cfg.Jobs.JobTimeout,
		QueueSize:      cfg.Jobs.QueueSize,
		Retention:      cfg.Jobs.Retention,
	}, log, scheduler.WithFinishObserver(func(jobType string, status scheduler.JobStatus, elapsed time.Duration) {
		metrics.RecordJob(jobType, string(status), elapsed)
	}))
	if err != nil {
		log.Fatal("Invalid job queue configuration", zap.Error(err))
	}

	// Application services
	auditService := auditapp.NewAuditService(auditRepo, log)
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, membershipRepo, jwtService, log)
	membershipService := identityapp.NewMembershipService(userRepo, membershipRepo, tx, auditService, log)
	storeService := storeapp.NewStoreService(storeRepo, membershipRepo, tx, auditService, log)
	productService := catalogapp.NewProductService(productRepo, brandRepo, categoryRepo, attributeRepo, auditService, log)
	brandService := catalogapp.NewBrandService(brandRepo, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, log)
	attributeService := catalogapp.NewAttributeService(attributeRepo)
	cartService := cartapp.NewCartService(cartRepo, productRepo, log)
	checkoutService := orderapp.NewCheckoutService(orderRepo, paymentRepo, cartRepo, productRepo, tx,
		[]orderapp.PaymentGateway{stripeAdapter, sslcommerzAdapter}, metrics, log)
	orderService := orderapp.NewOrderService(orderRepo, paymentRepo, productRepo, tx, auditService, log)
	paymentService := orderapp.NewPaymentService(orderRepo, paymentRepo, tx, metrics, log)
	subscriptionService := billingapp.NewSubscriptionService(subscriptionRepo, storeRepo, stripeAdapter, tx, log)
	importService := importapp.NewProductImportService(productRepo, brandRepo, categoryRepo, tx, auditService, log)
	exportService := exportapp.NewExportService(exportapp.ExportServiceConfig{
		Config: exportapp.Config{
			StreamThreshold: cfg.Export.StreamThreshold,
			BatchSize:       cfg.Export.BatchSize,
			URLExpiry:       cfg.Export.URLExpiry,
		},
		Orders:     orderRepo,
		Products:   productRepo,
		Brands:     brandRepo,
		Categories: categoryRepo,
		Jobs:       exportJobRepo,
		Storage:    objectStorage,
		Queue:      queue,
		Recorder:   auditService,
		Metrics:    metrics,
		Logger:     log,
	})
	stripeWebhooks := paymentapp.NewStripeWebhookService(paymentapp.StripeWebhookServiceConfig{
		Verifier:      stripeAdapter,
		Intents:       stripeAdapter,
		Payments:      paymentService,
		Subscriptions: subscriptionService,
		Guard:         guard,
		Logger:        log,
	})
	sslcommerzIPN := paymentapp.NewSSLCommerzIPNService(sslcommerzAdapter, paymentService, guard, cfg.SSLCommerz.ValidateRemote, log)

	// Background jobs
	queue.Register(exportapp.JobType, exportService.RunJob)
	queue.Register(jobPurgeCarts, func(ctx context.Context, _ json.RawMessage) error {
		return cartapp.PurgeExpired(ctx, cartRepo, log)
	})
	maintenance := []string{jobPurgeCarts}
	if cfg.Idempotency.Backend == cache.BackendAuditLog || cfg.Idempotency.Backend == "" {
		queue.Register(jobPruneIdempotency, func(ctx context.Context, _ json.RawMessage) error {
			pruned, err := auditLogIdempotency.Prune(ctx, time.Now())
			if pruned > 0 {
				log.Info("Pruned idempotency keys", zap.Int64("count", pruned))
			}
			return err
		})
		maintenance = append(maintenance, jobPruneIdempotency)
	}

	if err := queue.Start(ctx); err != nil {
		log.Fatal("Failed to start job queue", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Jobs.JobTimeout)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			log.Error("Error stopping job queue", zap.Error(err))
		}
	}()

	if cfg.Jobs.Enabled {
		cronCfg := scheduler.DefaultCronTriggerConfig()
		cronCfg.JobTypes = maintenance
		trigger := scheduler.NewCronTrigger(cronCfg, queue, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start maintenance trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping maintenance trigger", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	handlers := router.Handlers{
		Health:       handler.NewHealthHandler(readinessChecks(db, redisClient)),
		Auth:         handler.NewAuthHandler(authService),
		Store:        handler.NewStoreHandler(storeService),
		Member:       handler.NewMemberHandler(membershipService),
		Product:      handler.NewProductHandler(productService, importService),
		Brand:        handler.NewBrandHandler(brandService),
		Category:     handler.NewCategoryHandler(categoryService),
		Attribute:    handler.NewAttributeHandler(attributeService),
		Order:        handler.NewOrderHandler(orderService),
		Export:       handler.NewExportHandler(exportService),
		Subscription: handler.NewSubscriptionHandler(subscriptionService),
		AuditLog:     handler.NewAuditLogHandler(auditService),
		Storefront: handler.NewStorefrontHandler(handler.StorefrontDeps{
			Stores:     storeService,
			Products:   productService,
			Categories: categoryService,
			Brands:     brandService,
			Carts:      cartService,
			Checkout:   checkoutService,
		}),
		Webhook: handler.NewWebhookHandler(stripeWebhooks, sslcommerzIPN),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	limiters := newLimiters(cfg, redisClient)
	defer limiters.close()

	engine := router.New(router.Options{
		Logger:       log,
		HTTP:         cfg.HTTP,
		Tokens:       jwtService,
		Limiter:      limiters.general,
		StoreLimiter: limiters.storefront,
		AuthLimiter:  limiters.auth,
		AuthWindow:   cfg.RateLimit.AuthWindow,
		Tracing:      tracerProvider.IsEnabled(),
		ServiceName:  serviceName,
		Metrics:      meterProvider,
		Profiling:    profiler != nil && profiler.IsEnabled(),
	}, handlers)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	shutdownTelemetry(shutdownCtx, log, tracerProvider, meterProvider, logsProvider, profiler)
	log.Info("Server exited gracefully")
}

// readinessChecks probes the database and, when configured, Redis
func readinessChecks(db *persistence.Database, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

type limiters struct {
	general    middleware.Limiter
	storefront middleware.Limiter
	auth       middleware.Limiter
	closers    []func()
}

// newLimiters builds the three rate limiters on the configured backend.
// Disabled rate limiting leaves them nil.
func newLimiters(cfg *config.Config, redisClient *redis.Client) *limiters {
	l := &limiters{}
	rl := cfg.RateLimit
	if !rl.Enabled {
		return l
	}

	build := func(name string, limit int, window time.Duration) middleware.Limiter {
		if rl.Backend == "redis" && redisClient != nil {
			return cache.NewRedisRateLimiter(redisClient, "ratelimit:"+name+":", limit, window)
		}
		mem := middleware.NewRateLimiter(limit, window)
		l.closers = append(l.closers, mem.Close)
		return mem
	}

	l.general = build("api", rl.Requests, rl.Window)
	l.storefront = build("shop", rl.StoreRequests, rl.Window)
	l.auth = build("auth", rl.AuthRequests, rl.AuthWindow)
	return l
}

func (l *limiters) close() {
	for _, closeFn := range l.closers {
		closeFn()
	}
}

func shutdownTelemetry(
	ctx context.Context,
	log *zap.Logger,
	tracerProvider *telemetry.TracerProvider,
	meterProvider *telemetry.MeterProvider,
	logsProvider *telemetry.LoggerProvider,
	profiler *telemetry.Profiler,
) {
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if logsProvider != nil {
		if err := logsProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down log exporter", zap.Error(err))
		}
	}
}
