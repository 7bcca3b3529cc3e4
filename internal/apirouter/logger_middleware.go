package apirouter

import (
	"time"

	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerMiddleware writes one access log line per request. Failed requests
// are always logged; successful ones only when accessLog is set.
func LoggerMiddleware(logger *logging.Logger, accessLog bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("path", path),
			zap.String("query", query),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		log := logger.Ctx(c.Request.Context())
		switch {
		case len(c.Errors) > 0 && c.Writer.Status() >= 500:
			log.Error("request failed", append(fields, zap.Strings("errors", c.Errors.Errors()))...)
		case len(c.Errors) > 0:
			log.Warn("request rejected", append(fields, zap.Strings("errors", c.Errors.Errors()))...)
		case accessLog:
			log.Info("request completed", fields...)
		}
	}
}
