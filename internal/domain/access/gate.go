// Package access decides what a principal may see and do.
//
// Authorize is a pure function over its inputs. It never reads storage, so
// list endpoints ask it for a scope and hand the resulting Predicate to the
// repository, while single-resource endpoints load the row first and pass
// its ownership metadata in.
package access

// Authorize decides whether principal p may perform action a on resource r.
// Anything not explicitly allowed below is denied.
func Authorize(p Principal, r Resource, a Action) Decision {
	if !p.IsAuthenticated() {
		return deny(ReasonUnauthenticated)
	}
	switch p.Role {
	case RoleAdmin:
		return authorizeAdmin(r, a)
	case RoleManager:
		return authorizeManager(p, r, a)
	case RoleSalesperson:
		return authorizeSalesperson(p, r, a)
	case roleInvalid:
	}
	return deny(ReasonUnknownRole)
}

func authorizeAdmin(r Resource, a Action) Decision {
	switch r.Kind {
	case KindAccount, KindNote, KindUser, KindTeam:
		if a == ActionStatusTransition {
			return deny(ReasonForbidden)
		}
		return allow(ScopeAll)
	case KindLead:
		return allow(ScopeAll)
	case KindSale, KindReport:
		if isRead(a) {
			return allow(ScopeAll)
		}
		// Creating a report schedules its archive export.
		if r.Kind == KindReport && a == ActionCreate {
			return allow(ScopeAll)
		}
	case KindOutbox:
		if isRead(a) || a == ActionUpdate {
			return allow(ScopeAll)
		}
	case KindMyClients:
	}
	return deny(ReasonForbidden)
}

func authorizeManager(p Principal, r Resource, a Action) Decision {
	switch r.Kind {
	case KindAccount, KindLead, KindNote:
		if a == ActionStatusTransition && r.Kind != KindLead {
			return deny(ReasonForbidden)
		}
		return ownedOrTeam(p, r, a)
	case KindMyClients:
		if isRead(a) {
			return allow(ScopeSelf)
		}
	case KindSale, KindReport:
		if isRead(a) && (r.isCollection() || p.Owns(r.OwnerID) || p.SharesTeam(r.TeamID)) {
			return allow(ScopeTeam)
		}
	case KindTeam:
		if a == ActionReadList {
			return allow(ScopeAll)
		}
	case KindUser:
		return selfProfile(p, r, a)
	case KindOutbox:
	}
	return deny(ReasonForbidden)
}

func authorizeSalesperson(p Principal, r Resource, a Action) Decision {
	switch r.Kind {
	case KindAccount, KindLead, KindNote:
		if a == ActionStatusTransition && r.Kind != KindLead {
			return deny(ReasonForbidden)
		}
		if a == ActionReadList {
			return allow(ScopeSelf)
		}
		if a == ActionCreate && r.isCollection() {
			return allow(ScopeSelf)
		}
		if p.Owns(r.OwnerID) {
			return allow(ScopeSelf)
		}
	case KindMyClients:
		if isRead(a) {
			return allow(ScopeSelf)
		}
	case KindSale:
		if a == ActionReadList || (a == ActionReadOne && p.Owns(r.OwnerID)) {
			return allow(ScopeSelf)
		}
	case KindUser:
		return selfProfile(p, r, a)
	case KindReport, KindTeam, KindOutbox:
	}
	return deny(ReasonForbidden)
}

// ownedOrTeam grants a manager access to business records owned by
// themselves or by anyone on their team.
func ownedOrTeam(p Principal, r Resource, a Action) Decision {
	if a == ActionReadList {
		return allow(ScopeTeam)
	}
	if a == ActionCreate && r.isCollection() {
		return allow(ScopeTeam)
	}
	if p.Owns(r.OwnerID) || p.SharesTeam(r.TeamID) {
		return allow(ScopeTeam)
	}
	return deny(ReasonForbidden)
}

// selfProfile lets any non-admin read and edit their own user record.
func selfProfile(p Principal, r Resource, a Action) Decision {
	if (a == ActionReadOne || a == ActionUpdate) && p.Owns(r.OwnerID) {
		return allow(ScopeSelf)
	}
	return deny(ReasonForbidden)
}

func isRead(a Action) bool {
	return a == ActionReadList || a == ActionReadOne
}
