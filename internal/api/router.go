package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/logging"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// NewRouter builds the gin engine with request logging, metrics and /metrics.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(metrics.Middleware())

	r.GET("/metrics", metrics.Handler())
	h.RegisterRoutes(r)
	return r
}

// RequestLogger tags each request with an ID and a scoped logger, and logs
// a line when the request completes.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Header(requestIDHeader, reqID)

		ctx := logging.ForRequest(c.Request.Context(), logger, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logging.L(ctx, logger).Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
