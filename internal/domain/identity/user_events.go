package identity

import (
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
)

const AggregateTypeUser = "User"

const (
	EventTypeUserCreated         = "UserCreated"
	EventTypeUserDeactivated     = "UserDeactivated"
	EventTypeUserPasswordChanged = "UserPasswordChanged"
	EventTypeUserRoleChanged     = "UserRoleChanged"
)

type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewUserCreatedEvent(u *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, u.ID, u.ID),
		Email:           u.Email,
		Role:            u.Role.String(),
	}
}

type UserDeactivatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

func NewUserDeactivatedEvent(u *User) *UserDeactivatedEvent {
	return &UserDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserDeactivated, AggregateTypeUser, u.ID, u.ID),
		Email:           u.Email,
	}
}

type UserPasswordChangedEvent struct {
	shared.BaseDomainEvent
}

func NewUserPasswordChangedEvent(u *User) *UserPasswordChangedEvent {
	return &UserPasswordChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserPasswordChanged, AggregateTypeUser, u.ID, u.ID),
	}
}

// UserRoleChangedEvent lets the auth layer revoke tokens that still carry the old role.
type UserRoleChangedEvent struct {
	shared.BaseDomainEvent
	OldRole string `json:"old_role"`
	NewRole string `json:"new_role"`
}

func NewUserRoleChangedEvent(u *User, oldRole access.Role) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRoleChanged, AggregateTypeUser, u.ID, u.ID),
		OldRole:         oldRole.String(),
		NewRole:         u.Role.String(),
	}
}
