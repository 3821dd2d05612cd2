package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorTypeKey ctxKey = "actor_type"
	actorIDKey   ctxKey = "actor_id"
	ipAddressKey ctxKey = "ip_address"
	userAgentKey ctxKey = "user_agent"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}

func WithClient(ctx context.Context, ipAddress, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ipAddressKey, strings.TrimSpace(ipAddress))
	return context.WithValue(ctx, userAgentKey, strings.TrimSpace(userAgent))
}

func IPAddressFromContext(ctx context.Context) string {
	return stringValue(ctx, ipAddressKey)
}

func UserAgentFromContext(ctx context.Context) string {
	return stringValue(ctx, userAgentKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
