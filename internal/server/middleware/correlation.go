// Package middleware holds the gateway's request filters. Registration
// order matters: correlation id first, then access logging, then auth, so
// every later stage sees the request id and the log context.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/domain"
	"github.com/linkedout/api-gateway/internal/pkg/logger"
)

const (
	correlationIDKey = "gw.correlationId"
	loggerKey        = "gw.logger"
)

// CorrelationID installs the per-request id: reused from the inbound
// correlationId header when present, freshly generated otherwise. The id is
// echoed on the response and a request-scoped logger carrying it is stored
// on the context for every later stage.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(domain.CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Set(loggerKey, logger.L().With(zap.String("correlation_id", id)))
		c.Header(domain.CorrelationIDHeader, id)
		c.Next()
	}
}

// CorrelationIDFrom returns the request's correlation id, or "" when the
// middleware has not run.
func CorrelationIDFrom(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// Log returns the request-scoped logger. Falls back to the global logger so
// handlers stay safe in tests that skip the middleware.
func Log(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return logger.L()
}
