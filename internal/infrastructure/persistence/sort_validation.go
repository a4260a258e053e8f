package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes to ASC or DESC, defaulting to DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField's column if it is on the allowlist,
// otherwise defaultField. Allowlists map API field names to qualified
// columns so sorting works on joined queries.
func ValidateSortField(sortField string, allowed map[string]string, defaultField string) string {
	if col, ok := allowed[strings.TrimSpace(sortField)]; ok {
		return col
	}
	return defaultField
}

func orderClause(sortField, sortOrder string, allowed map[string]string, defaultField string) string {
	return ValidateSortField(sortField, allowed, defaultField) + " " + ValidateSortOrder(sortOrder)
}

var UserSortFields = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"email":         "email",
	"first_name":    "first_name",
	"last_name":     "last_name",
	"role":          "role",
	"last_login_at": "last_login_at",
}

var AccountSortFields = map[string]string{
	"created_at": "accounts.created_at",
	"updated_at": "accounts.updated_at",
	"email":      "accounts.email",
	"first_name": "accounts.first_name",
	"last_name":  "accounts.last_name",
	"status":     "accounts.status",
}

var LeadSortFields = map[string]string{
	"created_at":      "leads.created_at",
	"updated_at":      "leads.updated_at",
	"status":          "leads.status",
	"estimated_value": "leads.estimated_value",
	"probability":     "leads.probability",
}

var SaleSortFields = map[string]string{
	"closed_at": "sales.closed_at",
	"amount":    "sales.amount",
}
