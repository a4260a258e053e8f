package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService(accessTTL time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-that-is-long-enough",
		RefreshSecret:          "test-refresh-secret-that-is-long-enough",
		Issuer:                 "crm-test",
		AccessTokenExpiration:  accessTTL,
		RefreshTokenExpiration: time.Hour,
		MaxRefreshCount:        3,
	})
}

func issueTokens(t *testing.T, svc *auth.JWTService, role access.Role, teamID *uuid.UUID) (*auth.TokenPair, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	pair, err := svc.GenerateTokenPair(auth.Subject{
		UserID: userID,
		Email:  "seller@crm.example",
		Role:   role,
		TeamID: teamID,
	})
	require.NoError(t, err)
	return pair, userID
}

func jwtRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddlewareWithConfig(cfg))
	handler := func(c *gin.Context) {
		p := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id": p.UserID.String(),
			"role":    p.Role.String(),
			"claims":  GetJWTClaims(c) != nil,
		})
	}
	router.GET("/api/v1/accounts", handler)
	router.POST("/api/v1/auth/login", handler)
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := testJWTService(time.Minute)
	teamID := uuid.New()
	pair, userID := issueTokens(t, svc, access.RoleManager, &teamID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	jwtRouter(DefaultJWTConfig(svc)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, "MANAGER", body["role"])
	assert.Equal(t, true, body["claims"])
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := testJWTService(time.Minute)
	pair, _ := issueTokens(t, svc, access.RoleSalesperson, nil)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeTokenInvalid},
		{"wrong scheme", "Basic abc", dto.ErrCodeTokenInvalid},
		{"empty bearer", BearerPrefix + "  ", dto.ErrCodeTokenInvalid},
		{"garbage token", BearerPrefix + "not.a.jwt", dto.ErrCodeTokenInvalid},
		{"refresh token used as access", BearerPrefix + pair.RefreshToken, dto.ErrCodeTokenInvalid},
	}
	router := jwtRouter(DefaultJWTConfig(svc))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			req.Header.Set(RequestIDHeader, "rid-1")
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "rid-1", resp.Error.RequestID)
		})
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	svc := testJWTService(-time.Minute)
	pair, _ := issueTokens(t, svc, access.RoleAdmin, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	jwtRouter(DefaultJWTConfig(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenExpired, decodeError(t, w).Error.Code)
}

func TestJWTAuth_Blacklist(t *testing.T) {
	svc := testJWTService(time.Minute)

	t.Run("revoked jti", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		pair, _ := issueTokens(t, svc, access.RoleAdmin, nil)
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Minute))

		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = blacklist
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
		w := httptest.NewRecorder()
		jwtRouter(cfg).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, w).Error.Code)
	})

	t.Run("invalidated user", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		pair, userID := issueTokens(t, svc, access.RoleSalesperson, nil)
		require.NoError(t, blacklist.InvalidateUser(context.Background(), userID.String(), time.Hour))

		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = blacklist
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
		w := httptest.NewRecorder()
		jwtRouter(cfg).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, w).Error.Code)
	})
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	svc := testJWTService(time.Minute)

	w := httptest.NewRecorder()
	jwtRouter(DefaultJWTConfig(svc)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uuid.Nil.String(), body["user_id"])
	assert.Equal(t, false, body["claims"])
}

func TestGetPrincipal_DefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, GetPrincipal(c).IsAuthenticated())
	assert.Nil(t, GetJWTClaims(c))

	c.Set(PrincipalKey, "not a principal")
	assert.Equal(t, access.Anonymous, GetPrincipal(c))
}
