// Package http exposes the mapper over HTTP: a render endpoint taking
// coefficient tables, the feature catalog, probes and Prometheus metrics.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/prometheus"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/handlers"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unmounted; nil middleware is skipped.
type RouterConfig struct {
	MapHandler     *handlers.MapHandler
	FeatureHandler *handlers.FeatureHandler
	HealthHandler  *handlers.HealthHandler

	CORS        *middleware.CORSConfig
	RateLimiter middleware.RateLimiter

	Logger  logging.Logger
	Metrics *prometheus.MapperMetrics
	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the gin engine. Callers choose the gin mode beforehand.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(log))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(log, middleware.DefaultLoggingConfig()))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.DefaultRateLimitConfig()))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	registerMapRoutes(api, cfg.MapHandler)
	registerFeatureRoutes(api, cfg.FeatureHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:      "COMMON_005",
			Message:   "route not found",
			Detail:    c.Request.Method + " " + c.Request.URL.Path,
			RequestID: middleware.GetRequestID(c),
		})
	})
	return r
}

func registerMapRoutes(r *gin.RouterGroup, h *handlers.MapHandler) {
	if h == nil {
		return
	}
	maps := r.Group("/maps")
	maps.POST("", h.Render)
	maps.GET("/config", h.Config)
}

func registerFeatureRoutes(r *gin.RouterGroup, h *handlers.FeatureHandler) {
	if h == nil {
		return
	}
	f := r.Group("/features")
	f.GET("", h.Catalog)
	f.DELETE("", h.Reset)
	f.POST("/points", h.AddPoint)
	f.POST("/circles", h.AddCircle)
	f.POST("/texts", h.AddText)
	f.PUT("/palette", h.SetPalette)
	f.PUT("/scale", h.SetScale)
	f.DELETE("/:kind", h.Clear)
	f.DELETE("/:kind/:name", h.Remove)
}
