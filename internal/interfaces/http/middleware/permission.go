package middleware

import (
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// routeModel matches a role against (kind, action) pairs exactly. Ownership
// and scope are left to access.Authorize in the services.
const routeModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// NewRouteEnforcer builds a Casbin enforcer holding one rule per policy.
func NewRouteEnforcer(policies []access.Policy) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(routeModel)
	if err != nil {
		return nil, fmt.Errorf("parse route model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	rules := make([][]string, 0, len(policies))
	for _, p := range policies {
		rules = append(rules, []string{p.Role.String(), string(p.Kind), string(p.Action)})
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("load route policies: %w", err)
		}
	}
	return enforcer, nil
}

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Enforcer *casbin.Enforcer
	Logger   *zap.Logger
}

// Permissions hands out route guards backed by one enforcer.
type Permissions struct {
	cfg PermissionConfig
}

func NewPermissions(cfg PermissionConfig) *Permissions {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Permissions{cfg: cfg}
}

// Require rejects callers whose role can never perform action on kind. It
// must run after the JWT middleware.
func (p *Permissions) Require(kind access.Kind, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if !principal.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}

		allowed, err := p.cfg.Enforcer.Enforce(principal.Role.String(), string(kind), string(action))
		if err != nil {
			p.cfg.Logger.Error("Route policy evaluation failed",
				zap.String("kind", string(kind)),
				zap.String("action", string(action)),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
			return
		}
		if !allowed {
			p.cfg.Logger.Debug("Route permission denied",
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", principal.Role.String()),
				zap.String("kind", string(kind)),
				zap.String("action", string(action)))
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "You do not have permission to perform this action", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// Authenticated only requires a resolved principal.
func (p *Permissions) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetPrincipal(c).IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
