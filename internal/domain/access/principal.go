package access

import "github.com/google/uuid"

// Principal is the authenticated caller of a request. It is built once from
// validated token claims and passed explicitly to every service call.
type Principal struct {
	UserID uuid.UUID
	Role   Role
	TeamID *uuid.UUID
}

// Anonymous is the principal of a request without a valid credential.
var Anonymous = Principal{}

// NewPrincipal builds a principal from its parts.
func NewPrincipal(userID uuid.UUID, role Role, teamID *uuid.UUID) Principal {
	return Principal{UserID: userID, Role: role, TeamID: teamID}
}

// IsAuthenticated reports whether the principal carries a user identity.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != uuid.Nil
}

// Owns reports whether ownerID is the principal itself.
func (p Principal) Owns(ownerID *uuid.UUID) bool {
	return ownerID != nil && *ownerID == p.UserID
}

// SharesTeam reports whether teamID is the principal's team.
func (p Principal) SharesTeam(teamID *uuid.UUID) bool {
	return p.TeamID != nil && teamID != nil && *p.TeamID == *teamID
}
