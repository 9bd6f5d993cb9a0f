package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/service"
	"checkout-builder/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	pageService  *service.PageService
	orderService *service.OrderService
	hub          *broker.Hub
	jwtSecret    string
	checks       map[string]ReadinessCheck

	streamsDone chan struct{}
	closeOnce   sync.Once
}

// NewHandler creates a new HTTP handler
func NewHandler(
	pageService *service.PageService,
	orderService *service.OrderService,
	hub *broker.Hub,
	jwtSecret string,
	checks map[string]ReadinessCheck,
) *Handler {
	return &Handler{
		pageService:  pageService,
		orderService: orderService,
		hub:          hub,
		jwtSecret:    jwtSecret,
		checks:       checks,
		streamsDone:  make(chan struct{}),
	}
}

// CloseStreams ends every open change stream. Other requests are unaffected.
func (h *Handler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.streamsDone) })
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/checkout/:slug", h.getStorefront)
		v1.POST("/checkout/:slug/orders", h.submitOrder)
	}

	authed := v1.Group("")
	authed.Use(AuthMiddleware(h.jwtSecret))
	{
		authed.GET("/pages", h.listPages)
		authed.POST("/pages", h.createPage)
		authed.GET("/pages/:id", h.getPage)
		authed.PUT("/pages/:id", h.updatePage)
		authed.DELETE("/pages/:id", h.deletePage)
		authed.DELETE("/pages/:id/fields/:fieldId", h.removeField)
		authed.DELETE("/pages/:id/layout/:elementId", h.removeLayoutElement)
		authed.GET("/slugs/:slug", h.checkSlug)

		authed.GET("/pages/:id/orders", h.listOrders)
		authed.PATCH("/orders/:id/status", h.updateOrderStatus)
		authed.GET("/dashboard", h.dashboard)

		authed.GET("/pages/:id/changes", h.streamPageChanges)
		authed.GET("/pages/:id/orders/changes", h.streamOrderChanges)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
