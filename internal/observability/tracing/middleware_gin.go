package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/storeline/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request and names it after the
// matched route once the handler chain has run.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("storeline/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + c.Request.Method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		}
		if actorType, _ := obscontext.ActorFromContext(c.Request.Context()); actorType != "" {
			attrs = append(attrs, attribute.String("actor.type", actorType))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		switch {
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, "request error")
		case status == http.StatusConflict:
			span.AddEvent("conflict")
		}
	}
}
