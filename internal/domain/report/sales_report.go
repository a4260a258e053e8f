package report

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is a calendar month in UTC.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod validates a 4-digit year and a month in 1..12.
func NewPeriod(year, month int) (Period, error) {
	if year < 1000 || year > 9999 {
		return Period{}, shared.NewValidationError("year must have 4 digits")
	}
	if month < 1 || month > 12 {
		return Period{}, shared.NewValidationError("month must be between 1 and 12")
	}
	return Period{Year: year, Month: month}, nil
}

// Start is the first instant of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month; the range is half-open.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls in [Start, End).
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start()) && t.Before(p.End())
}

// SalespersonPerformance is one row of the individual report.
type SalespersonPerformance struct {
	Rank          int             `json:"rank"`
	SalespersonID uuid.UUID       `json:"salesperson_id"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Email         string          `json:"email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DealsCount    int64           `json:"deals_count"`
}

// TeamPerformance is one row of the team report. TeamSize counts the
// distinct salespeople who closed at least one deal in the period.
type TeamPerformance struct {
	Rank        int             `json:"rank"`
	TeamID      uuid.UUID       `json:"team_id"`
	TeamName    string          `json:"team_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DealsCount  int64           `json:"deals_count"`
	TeamSize    int64           `json:"team_size"`
}

// SalesReportFilter restricts the aggregation.
type SalesReportFilter struct {
	Period Period
	// TeamID limits rows to sales booked for one team.
	TeamID *uuid.UUID
}

// SalesReportRepository aggregates the sales ledger.
type SalesReportRepository interface {
	GetSalespersonPerformance(ctx context.Context, filter SalesReportFilter) ([]SalespersonPerformance, error)
	GetTeamPerformance(ctx context.Context, filter SalesReportFilter) ([]TeamPerformance, error)
}

// RankSalespeople orders rows by total descending, ties by id ascending, and
// numbers them from 1.
func RankSalespeople(rows []SalespersonPerformance) {
	slices.SortStableFunc(rows, func(a, b SalespersonPerformance) int {
		if c := b.TotalAmount.Cmp(a.TotalAmount); c != 0 {
			return c
		}
		return strings.Compare(a.SalespersonID.String(), b.SalespersonID.String())
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// RankTeams applies the same ordering to team rows.
func RankTeams(rows []TeamPerformance) {
	slices.SortStableFunc(rows, func(a, b TeamPerformance) int {
		if c := b.TotalAmount.Cmp(a.TotalAmount); c != 0 {
			return c
		}
		return strings.Compare(a.TeamID.String(), b.TeamID.String())
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}
