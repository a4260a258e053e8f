// Package middleware holds the gin middleware chain of the CRM API:
// request IDs, authentication, route permissions, limits and telemetry.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys set by SpanAttributes.
const (
	AttrRequestID = attribute.Key("crm.request_id")
	AttrUserID    = attribute.Key("crm.user_id")
	AttrRole      = attribute.Key("crm.role")
)

// Tracing starts a server span per request. Span names follow the route
// pattern, e.g. "GET /api/v1/leads/:id". A blank service name disables it.
func Tracing(serviceName string, opts ...otelgin.Option) gin.HandlerFunc {
	if serviceName == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName, opts...)
}

// SpanAttributes tags the active span with the request ID and the caller,
// and marks it failed on 5xx. Register it after Tracing and JWT so both the
// span and the principal exist.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			if len(id) > maxRequestIDLen {
				id = id[:maxRequestIDLen]
			}
			span.SetAttributes(AttrRequestID.String(id))
		}
		if p := GetPrincipal(c); p.IsAuthenticated() {
			span.SetAttributes(AttrUserID.String(p.UserID.String()), AttrRole.String(p.Role.String()))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}
