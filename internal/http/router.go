package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(cfg.Log))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.MiAllPing, cfg.Version)
	router.GET("/health", health.Status)

	api := router.Group("/api")

	syncController := NewSyncController(cfg.Manager, cfg.Log)
	api.POST("/sync", syncController.Start)
	api.POST("/sync/cancel", syncController.Cancel)
	api.GET("/sync/status", syncController.Status)

	if cfg.Runs != nil {
		runsController := NewRunsController(cfg.Runs, cfg.Log)
		api.GET("/runs", runsController.List)
		api.GET("/runs/:id", runsController.Get)
	}

	return router
}

// requestLogger writes one access log line per request.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Debug()
		if c.Writer.Status() >= 500 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("HTTP request")
	}
}
