package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger          *zap.Logger
	SkipPaths       []string
	SkipHealthCheck bool
}

// Logging returns a middleware that logs HTTP requests.
func Logging(logger *zap.Logger) gin.HandlerFunc {
	return LoggingWithConfig(LoggingConfig{Logger: logger})
}

func isHealthCheckPath(path string) bool {
	switch path {
	case "/health", "/ready", "/live", "/api/backend/health", "/api/mw/health", "/api/rest/health":
		return true
	}
	return false
}

func buildLogFields(c *gin.Context, path string, latency time.Duration, status int) []zap.Field {
	fields := []zap.Field{
		zap.String("requestID", GetRequestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("clientIP", c.ClientIP()),
		zap.String("userAgent", c.Request.UserAgent()),
		zap.Int("bodySize", c.Writer.Size()),
	}

	if tls := c.Request.TLS; tls != nil {
		fields = append(fields, zap.Bool("tls", true))
		if len(tls.PeerCertificates) > 0 {
			fields = append(fields, zap.String("clientCN", tls.PeerCertificates[0].Subject.CommonName))
		}
	}

	if len(c.Errors) > 0 {
		fields = append(fields, zap.String("errors", c.Errors.String()))
	}

	return fields
}

func logRequestByStatus(logger *zap.Logger, status int, fields []zap.Field) {
	switch {
	case status >= 500:
		logger.Error("request completed", fields...)
	case status >= 400:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

// LoggingWithConfig returns a logging middleware with custom configuration.
func LoggingWithConfig(config LoggingConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if skipPaths[path] || (config.SkipHealthCheck && isHealthCheckPath(path)) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logRequestByStatus(config.Logger, status, buildLogFields(c, path, latency, status))
	}
}
