package middleware

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags every CPU sample taken while a request runs with its route,
// method, resource and caller role, so Pyroscope can slice profiles by
// endpoint. Unmatched routes carry no labels.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || !strings.HasPrefix(route, "/api/") {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfilingLabelRoute:      route,
			telemetry.ProfilingLabelMethod:     c.Request.Method,
			telemetry.ProfilingLabelController: controllerOf(route),
		}
		if p := GetPrincipal(c); p.IsAuthenticated() {
			labels[telemetry.ProfilingLabelRole] = p.Role.String()
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// controllerOf derives the resource name from a route pattern:
// "/api/v1/leads/:id/status" -> "leads".
func controllerOf(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
