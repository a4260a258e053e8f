package access

import "github.com/google/uuid"

// Policy is one (role, kind, action) triple the gate can allow for at least
// one resource shape. The HTTP layer loads these into its route enforcer so
// coarse route checks and row-level checks share a single rule set.
type Policy struct {
	Role   Role
	Kind   Kind
	Action Action
}

// Policies enumerates the permission matrix by probing Authorize with a
// collection and with a resource owned by the probing principal.
func Policies() []Policy {
	team := uuid.New()
	var out []Policy
	for _, role := range Roles {
		p := NewPrincipal(uuid.New(), role, &team)
		for _, kind := range Kinds {
			for _, action := range Actions {
				if Authorize(p, Collection(kind), action).Allowed ||
					Authorize(p, Owned(kind, p.UserID, p.TeamID), action).Allowed {
					out = append(out, Policy{Role: role, Kind: kind, Action: action})
				}
			}
		}
	}
	return out
}
