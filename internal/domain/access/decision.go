package access

import (
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Scope is the visibility granted by an Allow decision.
type Scope uint8

const (
	ScopeNone Scope = iota
	ScopeSelf
	ScopeTeam
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeTeam:
		return "team"
	case ScopeAll:
		return "all"
	case ScopeNone:
	}
	return "none"
}

// Reason explains a Deny decision.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonUnknownRole
	ReasonForbidden
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonUnknownRole:
		return "unknown role"
	case ReasonForbidden:
		return "forbidden"
	case ReasonNone:
	}
	return ""
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  Reason
}

func allow(scope Scope) Decision {
	return Decision{Allowed: true, Scope: scope}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err maps a denial onto the domain error taxonomy. It returns nil for Allow.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return shared.ErrUnauthorized
	case ReasonUnknownRole:
		return shared.NewDomainError(shared.CodeForbidden, "unknown role")
	case ReasonForbidden, ReasonNone:
	}
	return shared.ErrForbidden
}

// Predicate is the row filter a repository applies for a list query.
// A zero Predicate is unrestricted.
type Predicate struct {
	OwnerID *uuid.UUID
	TeamID  *uuid.UUID
}

// Unrestricted reports whether the predicate filters nothing.
func (p Predicate) Unrestricted() bool {
	return p.OwnerID == nil && p.TeamID == nil
}

// Predicate turns the decision's scope into a row filter for principal p.
// A team scope for a principal without a team narrows to its own rows.
// A denied decision yields a filter that matches only rows owned by uuid.Nil,
// which never exist.
func (d Decision) Predicate(p Principal) Predicate {
	if !d.Allowed {
		none := uuid.Nil
		return Predicate{OwnerID: &none}
	}
	switch d.Scope {
	case ScopeAll:
		return Predicate{}
	case ScopeTeam:
		if p.TeamID != nil {
			team := *p.TeamID
			return Predicate{TeamID: &team}
		}
	case ScopeSelf, ScopeNone:
	}
	self := p.UserID
	return Predicate{OwnerID: &self}
}
