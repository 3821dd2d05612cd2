package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/storeline/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/storeline/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonPrincipalRate = "principal-rate"

// InvoiceCreateRateLimit throttles invoice creation per principal, or per
// client IP for anonymous callers. It is a pass-through when the limiter is
// not configured.
func (s *Server) InvoiceCreateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.invoiceLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		result, err := s.invoiceLimiter.Allow(ctx, principalFrom(c), c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("invoice create rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if result.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			denyInvoiceCreate(c, endpoint, rateLimitReasonPrincipalRate, retryAfter, s.obsMetrics)
			return
		}

		c.Next()
	}
}

func denyInvoiceCreate(c *gin.Context, endpoint, reason string, retryAfter int, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("invoice create rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
		zap.String("principal", principalFrom(c).String()),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
