package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
)

// EngineConfig selects the middleware applied to every request.
type EngineConfig struct {
	Logger         *zap.Logger
	Mode           string // gin mode; empty keeps the current one
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	MeterProvider  *telemetry.MeterProvider
	MaxBodySize    int64
	RequestTimeout time.Duration
}

// NewEngine builds a gin engine with the API middleware chain:
// recovery, request id, access log, tracing, metrics, CORS, security headers,
// body limit and request timeout.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MeterProvider != nil,
		Logger:        log,
	}))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.Secure())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(middleware.Timeout(cfg.RequestTimeout))

	return engine, nil
}
