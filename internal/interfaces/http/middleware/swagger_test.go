package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func serveFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	w := serveFrom(swaggerRouter(SwaggerConfig{Enabled: false}), "127.0.0.1:5000")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestSwaggerProtection_OpenWhenNoAllowList(t *testing.T) {
	w := serveFrom(swaggerRouter(SwaggerConfig{Enabled: true}), "203.0.113.9:5000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "docs", w.Body.String())
}

func TestSwaggerProtection_AllowList(t *testing.T) {
	router := swaggerRouter(SwaggerConfig{
		Enabled:    true,
		AllowedIPs: []string{"10.0.0.0/8", "192.168.1.20", "not-an-ip"},
	})

	tests := []struct {
		remote string
		want   int
	}{
		{"10.1.2.3:4000", http.StatusOK},
		{"192.168.1.20:4000", http.StatusOK},
		{"192.168.1.21:4000", http.StatusForbidden},
		{"[::ffff:10.0.0.7]:4000", http.StatusOK},
		{"203.0.113.9:4000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.want, serveFrom(router, tt.remote).Code)
		})
	}
}

func TestParseAllowList_SkipsGarbage(t *testing.T) {
	prefixes := parseAllowList([]string{" 10.0.0.0/8 ", "bogus", "300.1.1.1", "::1"})
	assert.Len(t, prefixes, 2)
	assert.True(t, ipAllowed("::1", prefixes))
	assert.False(t, ipAllowed("", prefixes))
}
