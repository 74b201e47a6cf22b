package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"prsummarizer/pkg/otel"
)

// ReadinessCheck 返回 nil 表示依赖可用
type ReadinessCheck func(ctx context.Context) error

type Router struct {
	Engine *gin.Engine
	server *http.Server
	logger *zap.Logger
}

// NewRouter exposes /healthz, /readyz and /metrics. Every check must pass for
// /readyz to report ready.
func NewRouter(logger *zap.Logger, checks map[string]ReadinessCheck) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), otel.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Router{Engine: r, logger: logger}
}

// Start serves in the background; it returns immediately.
func (r *Router) Start(addr string) {
	r.server = &http.Server{Addr: addr, Handler: r.Engine}
	go func() {
		r.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
