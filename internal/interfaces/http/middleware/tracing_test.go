package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crm/backend/internal/domain/access"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T, principal *access.Principal) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(RequestID(), Tracing("crm-test", otelgin.WithTracerProvider(tp)))
	if principal != nil {
		p := *principal
		router.Use(func(c *gin.Context) { c.Set(PrincipalKey, p) })
	}
	router.Use(SpanAttributes())
	return router, sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestTracing_DisabledWithoutServiceName(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(""))
	router.GET("/test", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpanAttributes_TagsCaller(t *testing.T) {
	teamID := uuid.New()
	principal := access.NewPrincipal(uuid.New(), access.RoleManager, &teamID)
	router, sr := newTracedRouter(t, &principal)
	router.GET("/api/v1/leads/:id", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads/7", nil)
	req.Header.Set(RequestIDHeader, "trace-req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/api/v1/leads/:id")

	attrs := attrMap(spans[0])
	assert.Equal(t, "trace-req-1", attrs[AttrRequestID])
	assert.Equal(t, principal.UserID.String(), attrs[AttrUserID])
	assert.Equal(t, "MANAGER", attrs[AttrRole])
}

func TestSpanAttributes_AnonymousHasNoUser(t *testing.T) {
	router, sr := newTracedRouter(t, nil)
	router.GET("/health", okHandler)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0])
	assert.NotEmpty(t, attrs[AttrRequestID])
	_, hasUser := attrs[AttrUserID]
	assert.False(t, hasUser)
}

func TestSpanAttributes_ServerErrorMarksSpan(t *testing.T) {
	router, sr := newTracedRouter(t, nil)
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEqual(t, codes.Error, spans[1].Status().Code)
}
