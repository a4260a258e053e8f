// Package datascope turns an access.Predicate into GORM conditions.
//
// The access gate decides how much of a collection a principal may see
// (everything, its team's rows, or its own rows). Repositories describe
// where ownership lives for each table and let Scope add the WHERE clause:
//
//	db.Scopes(datascope.Scope(filter.Scope, datascope.AccountColumns))
package datascope

import (
	"github.com/crm/backend/internal/domain/access"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Columns names the owner and team columns of a scoped query. Team may live
// on a joined table.
type Columns struct {
	Owner string
	Team  string
}

var (
	// AccountColumns expects accounts joined to their owner as "owners".
	AccountColumns = Columns{Owner: "accounts.owner_id", Team: "owners.team_id"}
	// LeadColumns expects leads joined to accounts and owners.
	LeadColumns = Columns{Owner: "accounts.owner_id", Team: "owners.team_id"}
	// SaleColumns reads the snapshot taken when the deal closed.
	SaleColumns = Columns{Owner: "sales.owner_id", Team: "sales.team_id"}
)

// Scope returns a GORM scope applying p. An unrestricted predicate adds
// nothing. A predicate owned by uuid.Nil matches no rows.
func Scope(p access.Predicate, cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, p, cols)
	}
}

// Apply adds the predicate's conditions to db.
func Apply(db *gorm.DB, p access.Predicate, cols Columns) *gorm.DB {
	if p.OwnerID != nil {
		if *p.OwnerID == uuid.Nil {
			return db.Where("1 = 0")
		}
		db = db.Where(cols.Owner+" = ?", *p.OwnerID)
	}
	if p.TeamID != nil {
		db = db.Where(cols.Team+" = ?", *p.TeamID)
	}
	return db
}
