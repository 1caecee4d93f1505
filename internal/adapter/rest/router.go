package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/ayuxy027/Krishak-AI/internal/infra/logger"
)

// ReadinessFunc reports whether the service can take generation traffic.
type ReadinessFunc func(ctx context.Context) error

type routerOptions struct {
	tracingService string
}

// RouterOption configures NewRouter.
type RouterOption func(*routerOptions)

// WithTracing adds otelecho server spans named after service.
func WithTracing(service string) RouterOption {
	return func(o *routerOptions) { o.tracingService = service }
}

// NewRouter builds the echo server with middleware, API routes and operational endpoints.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, ready ReadinessFunc, opts ...RouterOption) *echo.Echo {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	if o.tracingService != "" {
		e.Use(otelecho.Middleware(o.tracingService, otelecho.WithSkipper(func(c echo.Context) bool {
			switch c.Path() {
			case "/healthz", "/readyz", "/metrics":
				return true
			}
			return false
		})))
	}
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.BodyLimit("12M"))

	v1 := e.Group("/v1")
	v1.POST("/chat", h.Chat)
	v1.POST("/chat/stream", h.ChatStream)
	v1.POST("/crop-analytics", h.CropAnalytics)
	v1.POST("/disease-detection", h.DetectDisease)
	v1.POST("/modern-farming", h.ModernFarming)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if ready != nil {
			if err := ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return e
}
