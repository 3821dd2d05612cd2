package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/storeline/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier returns the (type, code) pair reported to clients for err.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware writes one http_request line per request. Actor fields are
// picked up from the request context after authentication has run.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}

		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug && status >= http.StatusInternalServerError {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		if ce := FromContext(c.Request.Context()).Check(requestLevel(route, status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(requestIDHeader, requestID)
	return requestID
}

// requestLevel keeps probes quiet and surfaces stock and state conflicts
// above ordinary traffic.
func requestLevel(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zap.ErrorLevel
	case status == http.StatusConflict:
		return zap.WarnLevel
	case status == http.StatusTooManyRequests, route == "/metrics", route == "/health":
		return zap.DebugLevel
	}
	return zap.InfoLevel
}
