package access

import "github.com/google/uuid"

// Kind identifies the type of resource being accessed.
type Kind string

const (
	KindAccount   Kind = "account"
	KindLead      Kind = "lead"
	KindNote      Kind = "note"
	KindSale      Kind = "sale"
	KindUser      Kind = "user"
	KindTeam      Kind = "team"
	KindReport    Kind = "report"
	KindMyClients Kind = "my_clients"
	KindOutbox    Kind = "outbox"
)

// Kinds lists every resource kind known to the gate.
var Kinds = []Kind{
	KindAccount, KindLead, KindNote, KindSale, KindUser,
	KindTeam, KindReport, KindMyClients, KindOutbox,
}

// Action is the operation requested on a resource.
type Action string

const (
	ActionReadList         Action = "read-list"
	ActionReadOne          Action = "read-one"
	ActionCreate           Action = "create"
	ActionUpdate           Action = "update"
	ActionDelete           Action = "delete"
	ActionStatusTransition Action = "status-transition"
)

// Actions lists every action known to the gate.
var Actions = []Action{
	ActionReadList, ActionReadOne, ActionCreate,
	ActionUpdate, ActionDelete, ActionStatusTransition,
}

// Resource carries the ownership metadata of the thing being accessed.
// OwnerID and TeamID are nil for collections and for global resources.
type Resource struct {
	Kind    Kind
	OwnerID *uuid.UUID
	TeamID  *uuid.UUID
}

// Collection describes a list or create request on a kind.
func Collection(kind Kind) Resource {
	return Resource{Kind: kind}
}

// Owned describes a single resource owned by ownerID whose owner belongs to teamID.
func Owned(kind Kind, ownerID uuid.UUID, teamID *uuid.UUID) Resource {
	return Resource{Kind: kind, OwnerID: &ownerID, TeamID: teamID}
}

func (r Resource) isCollection() bool {
	return r.OwnerID == nil
}
