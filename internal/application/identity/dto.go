package identity

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by login and refresh.
type AuthResult struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   UserDTO         `json:"user"`
}

// LogoutInput identifies the tokens to revoke. RefreshToken is optional.
type LogoutInput struct {
	AccessClaims *auth.Claims
	RefreshToken string
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	Position    string     `json:"position,omitempty"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserInput contains input for creating a user
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
	TeamID    *uuid.UUID
	Position  string
}

// UpdateUserInput is a partial update; nil fields are left alone.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Position  *string
	Role      *string
	TeamID    *uuid.UUID
	// ClearTeam detaches the user from its team. It wins over TeamID.
	ClearTeam bool
	Active    *bool
	// Version, when set, must match the stored version.
	Version *int
}

// ListUsersInput filters the user listing.
type ListUsersInput struct {
	Keyword   string
	Role      string
	TeamID    *uuid.UUID
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// TeamDTO represents a team.
type TeamDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamInput creates or renames a team.
type TeamInput struct {
	Name        string
	Description string
	Version     *int
}

func toUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role.String(),
		TeamID:      u.TeamID,
		Position:    u.Position,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		Version:     u.Version,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toTeamDTO(t *identity.Team) TeamDTO {
	return TeamDTO{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func subjectOf(u *identity.User) auth.Subject {
	return auth.Subject{UserID: u.ID, Email: u.Email, Role: u.Role, TeamID: u.TeamID}
}
