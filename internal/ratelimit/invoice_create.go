package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storeline/internal/config"
	"github.com/smallbiznis/storeline/internal/principal"
	"go.uber.org/zap"
)

const (
	keyInvoiceCreatePrincipal = "invoice:create:%s"
	keyInvoiceCreateIP        = "invoice:create:ip:%s"
)

type allower interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// InvoiceCreateLimiter throttles invoice creation per caller. Anonymous
// callers share a bucket per client IP.
type InvoiceCreateLimiter struct {
	bucket allower
	rate   float64
	burst  int
}

// NewInvoiceCreateLimiter returns nil when rate limiting is disabled or no
// Redis client is available.
func NewInvoiceCreateLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *InvoiceCreateLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil
	}
	if client == nil {
		log.Warn("rate limiting enabled without redis, invoice creation is not throttled")
		return nil
	}
	if limitCfg.InvoiceCreateRate <= 0 || limitCfg.InvoiceCreateBurst <= 0 {
		log.Warn("invoice create rate limit must be positive, limiter disabled",
			zap.Float64("rate", limitCfg.InvoiceCreateRate),
			zap.Int("burst", limitCfg.InvoiceCreateBurst),
		)
		return nil
	}
	return newInvoiceCreateLimiter(NewTokenBucket(client), limitCfg.InvoiceCreateRate, limitCfg.InvoiceCreateBurst)
}

func newInvoiceCreateLimiter(bucket allower, rate float64, burst int) *InvoiceCreateLimiter {
	return &InvoiceCreateLimiter{bucket: bucket, rate: rate, burst: burst}
}

func (l *InvoiceCreateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *InvoiceCreateLimiter) Allow(ctx context.Context, p principal.Principal, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, invoiceCreateKey(p, clientIP), l.rate, l.burst)
}

func invoiceCreateKey(p principal.Principal, clientIP string) string {
	if p.IsAnonymous() {
		ip := strings.TrimSpace(clientIP)
		if ip == "" {
			ip = "unknown"
		}
		return fmt.Sprintf(keyInvoiceCreateIP, ip)
	}
	return fmt.Sprintf(keyInvoiceCreatePrincipal, p.String())
}
