package middleware

import (
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/config"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey stores the request id in the gin context.
	RequestIDContextKey = "requestID"
)

// quietPaths are logged at debug level only.
var quietPaths = map[string]bool{"/health": true}

// ZapLogger logs one line per request and installs a request-scoped logger
// under common.LoggerKey. An incoming X-Request-ID is kept.
func ZapLogger(logger *zap.Logger, cfg *config.Config) gin.HandlerFunc {
	release := cfg.GinMode == gin.ReleaseMode
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(RequestIDContextKey, requestID)
		reqLogger := logger.With(zap.String("request_id", requestID))
		c.Set(common.LoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zapcore.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if id, ok := shared.IdentityFromContext(c); ok {
			fields = append(fields, zap.String("uid", id.ID))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		if ce := reqLogger.Check(requestLevel(status, c.Request.URL.Path, release), "HTTP request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestLevel(status int, path string, release bool) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400 && release:
		return zapcore.WarnLevel
	case quietPaths[path]:
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
