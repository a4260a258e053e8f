package router

import (
	"net/http"
	"time"

	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// EngineConfig describes the global middleware chain and the unversioned
// endpoints.
type EngineConfig struct {
	Logger *zap.Logger
	// ServiceName turns on request tracing when set.
	ServiceName    string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	RequestTimeout time.Duration
	TrustedProxies []string
	Swagger        middleware.SwaggerConfig
	// Metrics records request metrics. Nil disables both the middleware and
	// the scrape endpoint.
	Metrics     MetricsSource
	MetricsPath string
	// Health answers /health when set.
	Health gin.HandlerFunc
}

// MetricsSource exposes request instrumentation and the scrape handler.
type MetricsSource interface {
	GinMiddleware() gin.HandlerFunc
	Handler() http.Handler
}

// NewEngine creates a gin engine with the global middleware installed in
// order: request ID, access log, panic recovery, tracing, metrics, CORS,
// security headers, body limit and request timeout.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)
	if cfg.ServiceName != "" {
		engine.Use(middleware.Tracing(cfg.ServiceName))
	}
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.GinMiddleware())
	}
	engine.Use(
		middleware.CORSWithConfig(cfg.CORS),
		middleware.SecureWithConfig(cfg.Security),
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	)

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health)
	}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}
	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger), ginSwagger.WrapHandler(swaggerFiles.Handler))

	return engine, nil
}

// SessionChain resolves the caller from the bearer token and tags the
// request span and profile with it.
func SessionChain(jwt gin.HandlerFunc, profiling bool) []gin.HandlerFunc {
	return []gin.HandlerFunc{jwt, middleware.SpanAttributes(), middleware.Profiling(profiling)}
}
