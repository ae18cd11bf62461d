package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/domain"
)

// maxLoggedBody caps how much of a request body lands in the log.
const maxLoggedBody = 4096

// AccessLog emits one line on request entry and one on exit with method,
// path, correlation id, status, and elapsed milliseconds. Bodies of binary
// content types are never logged.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := Log(c)

		entry := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			entry = append(entry, zap.String("query", raw))
		}
		if body := peekBody(c); body != "" {
			entry = append(entry, zap.String("body", body))
		}
		log.Info("request received", entry...)

		c.Next()

		log.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	}
}

// peekBody reads a bounded prefix of the request body for logging and
// restores it for the handler. Binary content types are skipped entirely.
func peekBody(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	if !domain.ShouldLogBody(c.GetHeader("Content-Type")) {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody))
	if err != nil {
		return ""
	}
	rest := c.Request.Body
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), rest), rest}
	return string(buf)
}
