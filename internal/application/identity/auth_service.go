package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountDeactivated = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	ErrTokenExpired       = shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	ErrTokenInvalid       = shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	ErrTokenRevoked       = shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	ErrTokenMaxRefresh    = shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
)

// AuthService handles authentication operations
type AuthService struct {
	users     identity.UserRepository
	tokens    *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	tokens *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates a user by e-mail and password and returns a token pair.
// Unknown e-mail and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "Login")
	defer span.End()
	log := logger.Ctx(ctx, s.logger).With(zap.String("email", input.Email))

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("Login for unknown email")
			return nil, ErrInvalidCredentials
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.VerifyPassword(input.Password) {
		log.Warn("Invalid password attempt")
		return nil, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		log.Warn("Login attempt for deactivated account")
		return nil, ErrAccountDeactivated
	}

	pair, err := s.tokens.GenerateTokenPair(subjectOf(user))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("generate token pair: %w", err)
	}

	user.RecordLogin(s.now().UTC())
	if err := s.users.Update(ctx, user, user.Version); err != nil {
		// The last-login stamp is best effort.
		log.Warn("Failed to record last login", zap.Error(err))
	}

	log.Info("User logged in", zap.String("user_id", user.ID.String()), zap.Stringer("role", user.Role))
	return &AuthResult{Tokens: pair, User: toUserDTO(user)}, nil
}

// Refresh rotates a refresh token. The new pair carries the user's current
// role and team, and the old refresh token is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "Refresh")
	defer span.End()

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		logger.Ctx(ctx, s.logger).Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	principal, err := claims.Principal()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.CanLogin() {
		logger.Ctx(ctx, s.logger).Warn("Token refresh for deactivated user", zap.String("user_id", user.ID.String()))
		return nil, ErrAccountDeactivated
	}

	pair, err := s.tokens.RefreshTokenPair(refreshToken, subjectOf(user))
	if err != nil {
		return nil, mapTokenError(err)
	}
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
	}

	logger.Ctx(ctx, s.logger).Info("Token refreshed", zap.String("user_id", user.ID.String()))
	return &AuthResult{Tokens: pair, User: toUserDTO(user)}, nil
}

// Logout revokes the access token and, if given, the refresh token.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessClaims == nil {
		return shared.ErrUnauthorized
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.AccessClaims.ID, input.AccessClaims.RemainingTTL()); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if input.RefreshToken != "" {
		refresh, err := s.tokens.ValidateRefreshToken(input.RefreshToken)
		if err == nil && refresh.UserID == input.AccessClaims.UserID {
			if err := s.blacklist.AddToBlacklist(ctx, refresh.ID, refresh.RemainingTTL()); err != nil {
				return fmt.Errorf("revoke refresh token: %w", err)
			}
		}
	}
	logger.Ctx(ctx, s.logger).Info("User logged out", zap.String("user_id", input.AccessClaims.UserID))
	return nil
}

// Me returns the caller's own profile.
func (s *AuthService) Me(ctx context.Context, p access.Principal) (*UserDTO, error) {
	if !p.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(user)
	return &dto, nil
}

// checkRevoked rejects a token whose jti was blacklisted or whose user had
// all tokens invalidated after it was issued.
func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check token blacklist: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		return fmt.Errorf("check user invalidation: %w", err)
	}
	if invalidated {
		return ErrTokenRevoked
	}
	return nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return ErrTokenMaxRefresh
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return ErrTokenRevoked
	}
	return ErrTokenInvalid
}
