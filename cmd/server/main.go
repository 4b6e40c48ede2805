package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appanalytics "github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/cache"
	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/engine"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/infrastructure/persistence"
	"github.com/salesinsight/backend/internal/infrastructure/scheduler"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
	"github.com/salesinsight/backend/internal/interfaces/http/handler"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
	"github.com/salesinsight/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

// requestTimeoutGrace lets a report that hits its own timeout still render as
// a query failure before the request deadline expires.
const requestTimeoutGrace = 15 * time.Second

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, zapcore.InfoLevel)
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider)

	log.Info("Starting Sales Insight API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("engine", cfg.Warehouse.Driver),
	)

	queryMetrics, err := telemetry.NewQueryMetrics(meterProvider.Meter("analytics.query"), telemetry.QueryMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.SlowQueryThreshold,
	}, log)
	if err != nil {
		log.Fatal("Failed to create query metrics", zap.Error(err))
	}

	// Engine and repository
	conn, err := engine.Open(ctx, cfg, log, queryMetrics)
	if err != nil {
		log.Fatal("Failed to open analytics engine", zap.Error(err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error("Error closing warehouse", zap.Error(err))
		}
	}()
	if conn.DB != nil {
		queryMetrics.SetSQLDB(conn.DB)
		queryMetrics.StartPoolStatsCollection(ctx)
	}
	defer queryMetrics.Stop()

	repo, err := persistence.NewAnalyticsRepository(conn.Gateway, cfg.Analytics.Schema)
	if err != nil {
		log.Fatal("Failed to create analytics repository", zap.Error(err))
	}

	resultCache, err := cache.NewResultCacheFactory(cfg.Redis, cfg.Cache, cache.WithLogger(log)).CreateCache()
	if err != nil {
		log.Fatal("Failed to create result cache", zap.Error(err))
	}

	// Application services
	service, err := appanalytics.NewService(repo, appanalytics.Config{
		LifecycleMode:  cfg.Analytics.LifecycleMode,
		DefaultProfile: cfg.Analytics.DefaultProfile,
		ReportTimeout:  cfg.Analytics.ReportTimeout,
	}, appanalytics.WithCache(resultCache, queryMetrics), appanalytics.WithLogger(log))
	if err != nil {
		log.Fatal("Invalid analytics configuration", zap.Error(err))
	}
	formatter, err := appanalytics.NewFormatter(cfg.Analytics.Locale)
	if err != nil {
		log.Fatal("Invalid locale", zap.Error(err))
	}

	var warmer *scheduler.Warmer
	if cfg.Analytics.WarmupSchedule != "" {
		hour, minute, err := scheduler.ParseCronSchedule(cfg.Analytics.WarmupSchedule)
		if err != nil {
			log.Fatal("Invalid warm-up schedule", zap.Error(err))
		}
		warmupConfig := scheduler.DefaultWarmupConfig()
		warmupConfig.Hour, warmupConfig.Minute = hour, minute
		warmer = scheduler.NewWarmer(warmupConfig, service.Warm, log)
		if err := warmer.Start(ctx); err != nil {
			log.Fatal("Failed to start cache warm-up", zap.Error(err))
		}
	}

	var store appanalytics.ObjectStore
	if cfg.Export.Enabled {
		s3Store, err := storage.NewS3ReportStore(ctx, &cfg.Export,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Export.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to create export store", zap.Error(err))
		}
		store = s3Store
		log.Info("Report export enabled", zap.String("bucket", s3Store.Bucket()))
	}
	exporter := appanalytics.NewExporter(service, store, log)

	// HTTP
	middleware.SetupValidator()
	mode := gin.DebugMode
	if cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	ginEngine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		Mode:           mode,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           corsConfig,
		Tracing: middleware.TracingConfig{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
		},
		MeterProvider:  meterProvider,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: requestTimeout(cfg.Analytics.ReportTimeout),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	exportLimiter := middleware.NewRateLimiter(cfg.Export.RateLimit, cfg.Export.RateWindow)
	stopCleanup := make(chan struct{})
	go exportLimiter.RunCleanup(stopCleanup)
	defer close(stopCleanup)

	analyticsHandler := handler.NewAnalyticsHandler(service, exporter, formatter)
	analyticsRoutes := router.NewDomainGroup("analytics", "/analytics").
		Mount(router.RegistrarFunc(func(rg *gin.RouterGroup) {
			analyticsHandler.RegisterRoutes(rg, middleware.RateLimit(exportLimiter))
		}))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemRoutes := router.NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	router.NewRouter(ginEngine).
		Register(analyticsRoutes).
		Register(systemRoutes).
		Setup()

	ginEngine.GET("/health", healthHandler(conn.Gateway.Engine(), cfg.Cache.Backend))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if warmer != nil {
		if err := warmer.Stop(shutdownCtx); err != nil {
			log.Warn("Cache warm-up did not stop in time", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}

// healthHandler reports liveness. The engine is not pinged: an Athena round
// trip per probe costs money and the gateway already degrades on failure.
func healthHandler(engineName, cacheBackend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"engine": engineName,
			"cache":  cacheBackend,
		})
	}
}

// requestTimeout is zero, meaning unbounded, when reports are unbounded.
func requestTimeout(report time.Duration) time.Duration {
	if report <= 0 {
		return 0
	}
	return report + requestTimeoutGrace
}
