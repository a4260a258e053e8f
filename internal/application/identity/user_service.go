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
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmailExists = shared.NewDomainError(shared.CodeAlreadyExists, "Email already exists")
	ErrSelfManage  = shared.NewDomainError(shared.CodeInvalidState, "You cannot deactivate or delete your own account")
)

// UserService handles user management operations. Every operation except
// ChangePassword is gated to admins by the access rules; a non-admin can
// only read its own record.
type UserService struct {
	users     identity.UserRepository
	teams     identity.TeamRepository
	blacklist auth.TokenBlacklist
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewUserService creates a new user service. tokenTTL is how long a
// user-wide token invalidation must be remembered, normally the refresh
// token lifetime.
func NewUserService(
	users identity.UserRepository,
	teams identity.TeamRepository,
	blacklist auth.TokenBlacklist,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:     users,
		teams:     teams,
		blacklist: blacklist,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, p access.Principal, input ListUsersInput) (*shared.Paginated[UserDTO], error) {
	if d := access.Authorize(p, access.Collection(access.KindUser), access.ActionReadList); !d.Allowed {
		return nil, d.Err()
	}

	filter := identity.NewUserFilter()
	filter.Keyword = input.Keyword
	filter.TeamID = input.TeamID
	filter.Active = input.Active
	if input.Page > 0 {
		filter.Page = input.Page
	}
	if input.PageSize > 0 {
		filter.PageSize = input.PageSize
	}
	if input.SortBy != "" {
		filter.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		filter.SortOrder = input.SortOrder
	}
	if input.Role != "" {
		role, err := access.ParseRole(input.Role)
		if err != nil {
			return nil, shared.NewValidationError("invalid role %q", input.Role)
		}
		filter.Role = &role
	}

	users, total, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = toUserDTO(u)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.Limit())
	return &page, nil
}

// Get returns one user. A record the caller may not read is reported as
// not found.
func (s *UserService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, p, id, access.ActionReadOne)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(user)
	return &dto, nil
}

// Create adds a user with the given role and team.
func (s *UserService) Create(ctx context.Context, p access.Principal, input CreateUserInput) (*UserDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "Create")
	defer span.End()

	if d := access.Authorize(p, access.Collection(access.KindUser), access.ActionCreate); !d.Allowed {
		return nil, d.Err()
	}
	role, err := access.ParseRole(input.Role)
	if err != nil {
		return nil, shared.NewValidationError("invalid role %q", input.Role)
	}
	exists, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}
	if err := s.requireTeam(ctx, input.TeamID); err != nil {
		return nil, err
	}

	user, err := identity.NewUser(input.FirstName, input.LastName, input.Email, input.Password, role)
	if err != nil {
		return nil, err
	}
	if input.TeamID != nil {
		if err := user.AssignRole(role, input.TeamID); err != nil {
			return nil, err
		}
	}
	if input.Position != "" {
		if err := user.UpdateProfile(user.FirstName, user.LastName, user.Email, input.Position); err != nil {
			return nil, err
		}
	}
	// A fresh row starts at version 1 whatever the setters did in memory.
	user.Version = 1

	if err := s.users.Create(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Ctx(ctx, s.logger).Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.Stringer("role", user.Role))
	dto := toUserDTO(user)
	return &dto, nil
}

// Update applies a partial update. A change of role, team or active flag
// revokes the user's outstanding tokens so the next request re-authenticates
// with the new identity.
func (s *UserService) Update(ctx context.Context, p access.Principal, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "Update", telemetry.SpanAttrUserID, id.String())
	defer span.End()

	user, err := s.load(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}
	expected := user.Version
	if input.Version != nil && *input.Version != expected {
		return nil, shared.ErrConcurrencyConflict
	}

	if input.FirstName != nil || input.LastName != nil || input.Email != nil || input.Position != nil {
		first, last, email, position := user.FirstName, user.LastName, user.Email, user.Position
		if input.FirstName != nil {
			first = *input.FirstName
		}
		if input.LastName != nil {
			last = *input.LastName
		}
		if input.Position != nil {
			position = *input.Position
		}
		if input.Email != nil && *input.Email != user.Email {
			exists, err := s.users.ExistsByEmail(ctx, *input.Email)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if exists {
				return nil, ErrEmailExists
			}
			email = *input.Email
		}
		if err := user.UpdateProfile(first, last, email, position); err != nil {
			return nil, err
		}
	}

	identityChanged := false
	if input.Role != nil || input.TeamID != nil || input.ClearTeam || input.Active != nil {
		if err := requireUserAdmin(p); err != nil {
			return nil, err
		}
	}
	if input.Role != nil || input.TeamID != nil || input.ClearTeam {
		if p.UserID == user.ID {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "You cannot change your own role")
		}
		role := user.Role
		if input.Role != nil {
			if role, err = access.ParseRole(*input.Role); err != nil {
				return nil, shared.NewValidationError("invalid role %q", *input.Role)
			}
		}
		team := user.TeamID
		switch {
		case input.ClearTeam:
			team = nil
		case input.TeamID != nil:
			if err := s.requireTeam(ctx, input.TeamID); err != nil {
				return nil, err
			}
			team = input.TeamID
		}
		identityChanged = role != user.Role || !sameTeam(team, user.TeamID)
		if identityChanged {
			if err := user.AssignRole(role, team); err != nil {
				return nil, err
			}
		}
	}

	if input.Active != nil && *input.Active != user.Active {
		if err := s.setActive(user, p, *input.Active); err != nil {
			return nil, err
		}
		identityChanged = true
	}

	if err := s.users.Update(ctx, user, expected); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if identityChanged {
		s.revokeTokens(ctx, user.ID)
	}

	logger.Ctx(ctx, s.logger).Info("User updated", zap.String("user_id", user.ID.String()))
	dto := toUserDTO(user)
	return &dto, nil
}

// Activate re-enables sign-in for a user.
func (s *UserService) Activate(ctx context.Context, p access.Principal, id uuid.UUID) (*UserDTO, error) {
	return s.toggle(ctx, p, id, true)
}

// Deactivate disables sign-in and revokes the user's tokens.
func (s *UserService) Deactivate(ctx context.Context, p access.Principal, id uuid.UUID) (*UserDTO, error) {
	return s.toggle(ctx, p, id, false)
}

func (s *UserService) toggle(ctx context.Context, p access.Principal, id uuid.UUID, active bool) (*UserDTO, error) {
	if err := requireUserAdmin(p); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}
	expected := user.Version
	if err := s.setActive(user, p, active); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user, expected); err != nil {
		return nil, err
	}
	if !active {
		s.revokeTokens(ctx, user.ID)
	}
	logger.Ctx(ctx, s.logger).Info("User active flag changed",
		zap.String("user_id", user.ID.String()), zap.Bool("active", active))
	dto := toUserDTO(user)
	return &dto, nil
}

// Delete removes a user. Users that still own accounts cannot be deleted;
// deactivate them or reassign their accounts first.
func (s *UserService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	user, err := s.load(ctx, p, id, access.ActionDelete)
	if err != nil {
		return err
	}
	if user.ID == p.UserID {
		return ErrSelfManage
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.revokeTokens(ctx, user.ID)
	logger.Ctx(ctx, s.logger).Info("User deleted", zap.String("user_id", user.ID.String()))
	return nil
}

// ChangePassword changes the caller's own password after checking the
// current one. Tokens issued before the change stop working.
func (s *UserService) ChangePassword(ctx context.Context, p access.Principal, input ChangePasswordInput) error {
	if !p.IsAuthenticated() {
		return shared.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	expected := user.Version
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user, expected); err != nil {
		return err
	}
	s.revokeTokens(ctx, user.ID)
	logger.Ctx(ctx, s.logger).Info("User password changed", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *UserService) load(ctx context.Context, p access.Principal, id uuid.UUID, action access.Action) (*identity.User, error) {
	if !p.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, user.Resource(), action); !d.Allowed {
		return nil, shared.NewNotFoundError("user")
	}
	return user, nil
}

// requireUserAdmin allows what only a full user administrator may do:
// role, team and active-flag changes.
func requireUserAdmin(p access.Principal) error {
	return access.Authorize(p, access.Collection(access.KindUser), access.ActionUpdate).Err()
}

func (s *UserService) setActive(user *identity.User, p access.Principal, active bool) error {
	if active {
		return user.Activate()
	}
	if user.ID == p.UserID {
		return ErrSelfManage
	}
	return user.Deactivate()
}

func (s *UserService) requireTeam(ctx context.Context, teamID *uuid.UUID) error {
	if teamID == nil {
		return nil
	}
	if _, err := s.teams.FindByID(ctx, *teamID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError("team %s does not exist", teamID)
		}
		return fmt.Errorf("find team: %w", err)
	}
	return nil
}

// revokeTokens is best effort: the change itself is already committed.
func (s *UserService) revokeTokens(ctx context.Context, userID uuid.UUID) {
	if err := s.blacklist.InvalidateUser(ctx, userID.String(), s.tokenTTL); err != nil {
		logger.Ctx(ctx, s.logger).Error("Failed to revoke user tokens",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func sameTeam(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
