package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docq/pkg/metrics"
)

type RequestMiddleware struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewRequestMiddleware(logger *zap.Logger, collector *metrics.Collector) *RequestMiddleware {
	return &RequestMiddleware{logger: logger, metrics: collector}
}

// LogRequest records one line and one latency observation per request.
func (m *RequestMiddleware) LogRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		m.metrics.Increment("http_requests_total")
		m.metrics.ObserveLatency("http_request", duration)

		m.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}

// RecoverPanic converts handler panics into a 500 response.
func (m *RequestMiddleware) RecoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				m.metrics.Increment("http_panics_total")
				m.logger.Error("panic in handler",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
