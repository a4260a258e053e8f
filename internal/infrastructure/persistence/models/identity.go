package models

import (
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// TeamModel maps teams.
type TeamModel struct {
	AggregateModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
}

func (TeamModel) TableName() string { return "teams" }

func (m *TeamModel) ToDomain() *identity.Team {
	return &identity.Team{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Description:       m.Description,
	}
}

func TeamModelFromDomain(t *identity.Team) *TeamModel {
	m := &TeamModel{Name: t.Name, Description: t.Description}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}

// UserModel maps users. Role is stored by name; a name that no longer parses
// loads as the invalid role, which the access gate denies.
type UserModel struct {
	AggregateModel
	FirstName    string      `gorm:"type:varchar(100);not null"`
	LastName     string      `gorm:"type:varchar(100);not null"`
	Email        string      `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string      `gorm:"type:varchar(255);not null"`
	Role         string      `gorm:"type:varchar(20);not null;index"`
	TeamID       *uuid.UUID  `gorm:"type:uuid;index"`
	Position     string      `gorm:"type:varchar(100)"`
	Active       bool        `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *identity.User {
	role, _ := access.ParseRole(m.Role)
	return &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Role:              role,
		TeamID:            m.TeamID,
		Position:          m.Position,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
	}
}

func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role.String(),
		TeamID:       u.TeamID,
		Position:     u.Position,
		Active:       u.Active,
		LastLoginAt:  u.LastLoginAt,
	}
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	return m
}
