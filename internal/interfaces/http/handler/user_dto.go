package handler

import (
	appidentity "github.com/crm/backend/internal/application/identity"
	"github.com/google/uuid"
)

// CreateUserRequest registers a user. Only administrators may call it.
type CreateUserRequest struct {
	FirstName string     `json:"first_name" binding:"required,max=100" example:"Grace"`
	LastName  string     `json:"last_name" binding:"required,max=100" example:"Hopper"`
	Email     string     `json:"email" binding:"required,email,max=255" example:"grace@example.com"`
	Password  string     `json:"password" binding:"required,min=8,max=128"`
	Role      string     `json:"role" binding:"required,oneof=ADMIN MANAGER SALESPERSON" example:"SALESPERSON"`
	TeamID    *uuid.UUID `json:"team_id"`
	Position  string     `json:"position" binding:"max=100"`
}

func (r CreateUserRequest) input() appidentity.CreateUserInput {
	return appidentity.CreateUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		Role:      r.Role,
		TeamID:    r.TeamID,
		Position:  r.Position,
	}
}

// UpdateUserRequest is a partial update. Omitted fields keep their value;
// clear_team detaches the user from its team.
type UpdateUserRequest struct {
	FirstName *string    `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string    `json:"last_name" binding:"omitempty,min=1,max=100"`
	Email     *string    `json:"email" binding:"omitempty,email,max=255"`
	Position  *string    `json:"position" binding:"omitempty,max=100"`
	Role      *string    `json:"role" binding:"omitempty,oneof=ADMIN MANAGER SALESPERSON"`
	TeamID    *uuid.UUID `json:"team_id"`
	ClearTeam bool       `json:"clear_team"`
	Active    *bool      `json:"active"`
	Version   *int       `json:"version" binding:"omitempty,min=1"`
}

func (r UpdateUserRequest) input() appidentity.UpdateUserInput {
	return appidentity.UpdateUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Position:  r.Position,
		Role:      r.Role,
		TeamID:    r.TeamID,
		ClearTeam: r.ClearTeam,
		Active:    r.Active,
		Version:   r.Version,
	}
}

// ListUsersRequest filters the user listing.
type ListUsersRequest struct {
	Keyword  string `form:"keyword" binding:"max=100"`
	Role     string `form:"role" binding:"omitempty,oneof=ADMIN MANAGER SALESPERSON"`
	TeamID   string `form:"team_id" binding:"omitempty,uuid"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

func (r ListUsersRequest) input() appidentity.ListUsersInput {
	in := appidentity.ListUsersInput{
		Keyword:   r.Keyword,
		Role:      r.Role,
		Active:    r.Active,
		Page:      r.Page,
		PageSize:  r.PageSize,
		SortBy:    r.SortBy,
		SortOrder: r.SortDir,
	}
	if id, err := uuid.Parse(r.TeamID); err == nil {
		in.TeamID = &id
	}
	return in
}

// TeamRequest creates or renames a team.
type TeamRequest struct {
	Name        string `json:"name" binding:"required,max=100" example:"Enterprise"`
	Description string `json:"description" binding:"max=500"`
	Version     *int   `json:"version" binding:"omitempty,min=1"`
}

func (r TeamRequest) input() appidentity.TeamInput {
	return appidentity.TeamInput{Name: r.Name, Description: r.Description, Version: r.Version}
}
