package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func permissionRouter(t *testing.T, principal *access.Principal, kind access.Kind, action access.Action) *gin.Engine {
	t.Helper()
	enforcer, err := NewRouteEnforcer(access.Policies())
	require.NoError(t, err)
	perms := NewPermissions(PermissionConfig{Enforcer: enforcer, Logger: zaptest.NewLogger(t)})

	router := gin.New()
	if principal != nil {
		p := *principal
		router.Use(func(c *gin.Context) { c.Set(PrincipalKey, p) })
	}
	router.GET("/guarded", perms.Require(kind, action), okHandler)
	router.GET("/me", perms.Authenticated(), okHandler)
	return router
}

func principalFor(role access.Role) *access.Principal {
	team := uuid.New()
	p := access.NewPrincipal(uuid.New(), role, &team)
	return &p
}

func TestNewRouteEnforcer(t *testing.T) {
	enforcer, err := NewRouteEnforcer(access.Policies())
	require.NoError(t, err)

	tests := []struct {
		role   access.Role
		kind   access.Kind
		action access.Action
		want   bool
	}{
		{access.RoleAdmin, access.KindReport, access.ActionReadList, true},
		{access.RoleManager, access.KindReport, access.ActionReadList, true},
		{access.RoleSalesperson, access.KindReport, access.ActionReadList, false},
		{access.RoleSalesperson, access.KindLead, access.ActionStatusTransition, true},
		{access.RoleAdmin, access.KindAccount, access.ActionStatusTransition, false},
		{access.RoleManager, access.KindOutbox, access.ActionReadList, false},
		{access.RoleAdmin, access.KindOutbox, access.ActionUpdate, true},
		{access.RoleAdmin, access.KindMyClients, access.ActionReadList, false},
		{access.RoleSalesperson, access.KindMyClients, access.ActionReadList, true},
		{access.RoleSalesperson, access.KindUser, access.ActionUpdate, true},
		{access.RoleSalesperson, access.KindUser, access.ActionCreate, false},
		{access.RoleManager, access.KindTeam, access.ActionCreate, false},
	}
	for _, tt := range tests {
		name := tt.role.String() + "/" + string(tt.kind) + "/" + string(tt.action)
		t.Run(name, func(t *testing.T) {
			ok, err := enforcer.Enforce(tt.role.String(), string(tt.kind), string(tt.action))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPermissions_Require(t *testing.T) {
	t.Run("anonymous gets 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		permissionRouter(t, nil, access.KindLead, access.ActionReadList).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Error.Code)
	})

	t.Run("role without the permission gets 403", func(t *testing.T) {
		w := httptest.NewRecorder()
		permissionRouter(t, principalFor(access.RoleSalesperson), access.KindReport, access.ActionReadList).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w).Error.Code)
	})

	t.Run("allowed role passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		permissionRouter(t, principalFor(access.RoleAdmin), access.KindReport, access.ActionReadList).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPermissions_Authenticated(t *testing.T) {
	w := httptest.NewRecorder()
	permissionRouter(t, nil, access.KindLead, access.ActionReadList).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	permissionRouter(t, principalFor(access.RoleSalesperson), access.KindLead, access.ActionReadList).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
