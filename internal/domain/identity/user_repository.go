package identity

import (
	"context"

	"github.com/crm/backend/internal/domain/access"
	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// Update fails with shared.ErrConcurrencyConflict if the stored version
	// is not expectedVersion.
	Update(ctx context.Context, user *User, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	// FindManagersOfTeam returns the active managers of a team.
	FindManagersOfTeam(ctx context.Context, teamID uuid.UUID) ([]*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	Keyword  string
	Role     *access.Role
	TeamID   *uuid.UUID
	Active   *bool
	Page     int
	PageSize int
	// SortBy is validated against an allowlist by the repository.
	SortBy    string
	SortOrder string
}

// NewUserFilter creates a new UserFilter with default values
func NewUserFilter() UserFilter {
	return UserFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// Offset returns the offset for pagination
func (f UserFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size clamped to [1, 100].
func (f UserFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}
