package identity

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for password hashes. Tests lower it.
var BcryptCost = 12

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// User is a person who signs in to the CRM.
type User struct {
	shared.BaseAggregateRoot
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         access.Role
	TeamID       *uuid.UUID
	Position     string
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser creates an active user with a hashed password.
func NewUser(firstName, lastName, email, password string, role access.Role) (*User, error) {
	if !role.Valid() {
		return nil, shared.NewValidationError("invalid role")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validateNames(firstName, lastName); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		Active:            true,
	}
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

// Principal returns the access principal for this user.
func (u *User) Principal() access.Principal {
	return access.NewPrincipal(u.ID, u.Role, u.TeamID)
}

// Resource describes the user record for the gate.
func (u *User) Resource() access.Resource {
	return access.Owned(access.KindUser, u.ID, u.TeamID)
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UpdateProfile changes names, email and position.
func (u *User) UpdateProfile(firstName, lastName, email, position string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := validateNames(firstName, lastName); err != nil {
		return err
	}
	if len(position) > 100 {
		return shared.NewValidationError("position cannot exceed 100 characters")
	}
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.Email = email
	u.Position = strings.TrimSpace(position)
	u.Touch()
	u.IncrementVersion()
	return nil
}

// AssignRole changes the user's role and team. Managers and salespeople
// normally belong to a team; admins never do.
func (u *User) AssignRole(role access.Role, teamID *uuid.UUID) error {
	if !role.Valid() {
		return shared.NewValidationError("invalid role")
	}
	if role == access.RoleAdmin {
		teamID = nil
	}
	oldRole := u.Role
	u.Role = role
	u.TeamID = teamID
	u.Touch()
	u.IncrementVersion()
	if oldRole != role {
		u.AddDomainEvent(NewUserRoleChangedEvent(u, oldRole))
	}
	return nil
}

// ChangePassword verifies the current password before setting a new one.
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword replaces the password without checking the old one.
func (u *User) SetPassword(newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserPasswordChangedEvent(u))
	return nil
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) Activate() error {
	if u.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}
	u.Active = true
	u.Touch()
	u.IncrementVersion()
	return nil
}

func (u *User) Deactivate() error {
	if !u.Active {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "User is already deactivated")
	}
	u.Active = false
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserDeactivatedEvent(u))
	return nil
}

// RecordLogin stamps a successful sign-in.
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

// CanLogin reports whether the user may sign in.
func (u *User) CanLogin() bool {
	return u.Active && u.Role.Valid()
}

func validateNames(first, last string) error {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return shared.NewValidationError("first name and last name are required")
	}
	if len(first) > 100 || len(last) > 100 {
		return shared.NewValidationError("names cannot exceed 100 characters")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > 200 {
		return "", shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}
