package access

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a principal can hold. The zero value is
// not a valid role; the gate denies it with ReasonUnknownRole.
type Role uint8

const (
	roleInvalid Role = iota
	RoleAdmin
	RoleManager
	RoleSalesperson
)

// Roles lists every valid role in ascending privilege order.
var Roles = []Role{RoleSalesperson, RoleManager, RoleAdmin}

// ParseRole converts the wire name of a role. Unknown names are an error so
// that a typo can never map to a broader role.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "MANAGER":
		return RoleManager, nil
	case "SALESPERSON":
		return RoleSalesperson, nil
	}
	return roleInvalid, fmt.Errorf("unknown role %q", s)
}

// String returns the wire name, or "UNKNOWN" for values outside the set.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleManager:
		return "MANAGER"
	case RoleSalesperson:
		return "SALESPERSON"
	case roleInvalid:
	}
	return "UNKNOWN"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSalesperson:
		return true
	case roleInvalid:
	}
	return false
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
