package middleware

import (
	"github.com/freightflow/backend/internal/session"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns OpenTelemetry tracing middleware. It wraps otelgin and
// enriches each span with the request id and the resolved session, so
// traces can be filtered per tenant.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	base := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if v, ok := c.Get(SessionKey); ok {
			if sess, ok := v.(session.Context); ok {
				span.SetAttributes(
					attribute.String("tenant_id", sess.TenantID),
					attribute.String("session_source", string(sess.Source)),
				)
				if sess.UserID != "" {
					span.SetAttributes(attribute.String("user_id", sess.UserID))
				}
			}
		}
	}
}
