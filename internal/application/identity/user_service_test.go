package identity

import (
	"context"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupUserService() (*UserService, *MockUserRepository, *MockTeamRepository, *auth.InMemoryTokenBlacklist) {
	users := new(MockUserRepository)
	teams := new(MockTeamRepository)
	blacklist := auth.NewInMemoryTokenBlacklist()
	return NewUserService(users, teams, blacklist, time.Hour, zap.NewNop()), users, teams, blacklist
}

func adminPrincipal() access.Principal {
	return access.NewPrincipal(uuid.New(), access.RoleAdmin, nil)
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	admin := adminPrincipal()

	t.Run("creates a salesperson in a team", func(t *testing.T) {
		svc, users, teams, _ := setupUserService()
		team, err := identity.NewTeam("North", "")
		require.NoError(t, err)
		teams.On("FindByID", mock.Anything, team.ID).Return(team, nil)
		users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
		users.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

		dto, err := svc.Create(ctx, admin, CreateUserInput{
			FirstName: "New", LastName: "Seller", Email: "new@example.com",
			Password: testPassword, Role: "salesperson", TeamID: &team.ID, Position: "Junior",
		})
		require.NoError(t, err)
		assert.Equal(t, "SALESPERSON", dto.Role)
		assert.Equal(t, &team.ID, dto.TeamID)
		assert.Equal(t, "Junior", dto.Position)
		assert.Equal(t, 1, dto.Version)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, users, _, _ := setupUserService()
		users.On("ExistsByEmail", mock.Anything, "dup@example.com").Return(true, nil)

		_, err := svc.Create(ctx, admin, CreateUserInput{
			FirstName: "A", LastName: "B", Email: "dup@example.com", Password: testPassword, Role: "MANAGER",
		})
		assert.Same(t, ErrEmailExists, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _, _, _ := setupUserService()
		_, err := svc.Create(ctx, admin, CreateUserInput{Role: "OWNER"})
		assert.ErrorIs(t, err, shared.NewValidationError(""))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _, _, _ := setupUserService()
		team := uuid.New()
		manager := access.NewPrincipal(uuid.New(), access.RoleManager, &team)
		_, err := svc.Create(ctx, manager, CreateUserInput{Role: "SALESPERSON"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestUserService_Get_HidesOtherUsersFromNonAdmins(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := setupUserService()
	seller := newTestUser(t, access.RoleSalesperson)
	other := newTestUser(t, access.RoleSalesperson)
	users.On("FindByID", mock.Anything, seller.ID).Return(seller, nil)
	users.On("FindByID", mock.Anything, other.ID).Return(other, nil)

	own, err := svc.Get(ctx, seller.Principal(), seller.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, own.ID)

	_, err = svc.Get(ctx, seller.Principal(), other.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUserService_Update_RoleChangeRevokesTokens(t *testing.T) {
	ctx := context.Background()
	svc, users, teams, blacklist := setupUserService()
	user := newTestUser(t, access.RoleSalesperson)
	issuedAt := time.Now().Add(-time.Minute)
	team, err := identity.NewTeam("South", "")
	require.NoError(t, err)

	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	users.On("Update", mock.Anything, user, 1).Return(nil)
	teams.On("FindByID", mock.Anything, team.ID).Return(team, nil)

	role := "MANAGER"
	dto, err := svc.Update(ctx, adminPrincipal(), user.ID, UpdateUserInput{Role: &role, TeamID: &team.ID})
	require.NoError(t, err)
	assert.Equal(t, "MANAGER", dto.Role)
	assert.Equal(t, 2, dto.Version)

	revoked, err := blacklist.IsUserTokenInvalidated(ctx, user.ID.String(), issuedAt)
	require.NoError(t, err)
	assert.True(t, revoked)
	users.AssertExpectations(t)
}

func TestUserService_Update_StaleVersion(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := setupUserService()
	user := newTestUser(t, access.RoleSalesperson)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	stale := 7
	name := "Grace"
	_, err := svc.Update(ctx, adminPrincipal(), user.ID, UpdateUserInput{FirstName: &name, Version: &stale})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	svc, users, _, blacklist := setupUserService()
	admin := adminPrincipal()
	user := newTestUser(t, access.RoleSalesperson)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	users.On("Update", mock.Anything, user, mock.Anything).Return(nil)

	dto, err := svc.Deactivate(ctx, admin, user.ID)
	require.NoError(t, err)
	assert.False(t, dto.Active)
	revoked, _ := blacklist.IsUserTokenInvalidated(ctx, user.ID.String(), time.Now().Add(-time.Second))
	assert.True(t, revoked)

	_, err = svc.Deactivate(ctx, admin, user.ID)
	require.Error(t, err)
	assert.Equal(t, "ALREADY_DEACTIVATED", err.(*shared.DomainError).Code)

	dto, err = svc.Activate(ctx, admin, user.ID)
	require.NoError(t, err)
	assert.True(t, dto.Active)

	_, err = svc.Deactivate(ctx, user.Principal(), user.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden, "only admins toggle the active flag")
}

func TestUserService_AdminCannotDeactivateThemselves(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := setupUserService()
	admin := newTestUser(t, access.RoleAdmin)
	users.On("FindByID", mock.Anything, admin.ID).Return(admin, nil)

	_, err := svc.Deactivate(ctx, admin.Principal(), admin.ID)
	assert.Same(t, ErrSelfManage, err)
	assert.Same(t, ErrSelfManage, svc.Delete(ctx, admin.Principal(), admin.ID))
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := setupUserService()
	user := newTestUser(t, access.RoleManager)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	users.On("Update", mock.Anything, user, 1).Return(nil)

	err := svc.ChangePassword(ctx, user.Principal(), ChangePasswordInput{OldPassword: "wrong-pass1", NewPassword: "another123"})
	require.Error(t, err)
	assert.Equal(t, "INVALID_PASSWORD", err.(*shared.DomainError).Code)

	require.NoError(t, svc.ChangePassword(ctx, user.Principal(), ChangePasswordInput{OldPassword: testPassword, NewPassword: "another123"}))
	assert.True(t, user.VerifyPassword("another123"))
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := setupUserService()
	a := newTestUser(t, access.RoleManager)
	users.On("FindAll", mock.Anything, mock.MatchedBy(func(f identity.UserFilter) bool {
		return f.Role != nil && *f.Role == access.RoleManager && f.Page == 2 && f.PageSize == 1
	})).Return([]*identity.User{a}, int64(3), nil)

	page, err := svc.List(ctx, adminPrincipal(), ListUsersInput{Role: "manager", Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)

	_, err = svc.List(ctx, a.Principal(), ListUsersInput{})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
