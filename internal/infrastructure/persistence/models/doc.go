// Package models contains the GORM persistence models. Domain types carry no
// ORM tags; each model converts to and from its domain counterpart.
//
// Ownership of leads and notes is not stored on their rows. It is resolved
// through the parent account and the owner's current team when a row is
// loaded, via read-only join columns.
package models
