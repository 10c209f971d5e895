package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/royalty/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "royalty/http"

// GinMiddleware opens a server span per request. Spans are named after the
// matched route so creator ids never end up in span names.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(SafeAttributes(requestAttributes(c, route, status)...)...)

		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			if err := SafeError(last.Err); err != nil {
				span.RecordError(err)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func requestAttributes(c *gin.Context, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	}
	ctx := c.Request.Context()
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if actor, ok := obscontext.ActorFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("actor.role", actor.Role))
	}
	if creatorID := strings.TrimSpace(c.Param("creator_id")); creatorID != "" {
		attrs = append(attrs, attribute.String("royalty.creator_id", creatorID))
	}
	if stream := strings.TrimSpace(c.Param("stream")); stream != "" {
		attrs = append(attrs, attribute.String("royalty.stream", stream))
	}
	if period := strings.TrimSpace(c.Query("period")); period != "" {
		attrs = append(attrs, attribute.String("royalty.period", period))
	}
	if view := strings.TrimSpace(c.GetHeader("X-View-ID")); view != "" {
		attrs = append(attrs, attribute.Bool("royalty.sequenced", true))
	}
	return attrs
}
