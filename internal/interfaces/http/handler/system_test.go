package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(context.Context) error   { return nil }
func downCheck(context.Context) error { return errors.New("connection refused") }

func serveSystem(h *SystemHandler, path string, fn gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET(path, fn)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("CRM Backend API", "1.2.3")
	w := serveSystem(h, "/system/info", h.GetSystemInfo)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "CRM Backend API", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantState  string
		components map[string]string
	}{
		{
			name:       "all dependencies up",
			checks:     []HealthCheck{{Name: "database", Check: okCheck}, {Name: "redis", Check: okCheck, Optional: true}},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			components: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:       "optional dependency down",
			checks:     []HealthCheck{{Name: "database", Check: okCheck}, {Name: "redis", Check: downCheck, Optional: true}},
			wantStatus: http.StatusOK,
			wantState:  "degraded",
			components: map[string]string{"database": "ok", "redis": "error"},
		},
		{
			name:       "database down",
			checks:     []HealthCheck{{Name: "database", Check: downCheck}, {Name: "redis", Check: downCheck, Optional: true}},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			components: map[string]string{"database": "error", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("crm", "dev", tt.checks...)
			w := serveSystem(h, "/health", h.Health)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.Status)
			assert.Equal(t, tt.components, resp.Components)
		})
	}
}

func TestSystemHandler_HealthPoolStats(t *testing.T) {
	h := NewSystemHandler("crm", "dev", HealthCheck{Name: "database", Check: okCheck}).
		WithPoolStats(func() (any, error) { return map[string]int{"open_connections": 3}, nil })
	w := serveSystem(h, "/health", h.Health)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	pool := resp["database_pool"].(map[string]any)
	assert.EqualValues(t, 3, pool["open_connections"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("crm", "dev")
	w := serveSystem(h, "/system/ping", h.Ping)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pong", resp.Data.(map[string]any)["message"])
}
