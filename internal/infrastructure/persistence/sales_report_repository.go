package persistence

import (
	"context"

	"github.com/crm/backend/internal/domain/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSalesReportRepository aggregates the sales ledger for a calendar month.
// Amounts and team membership come from the snapshot each sale took when it
// closed, so later reassignments do not rewrite history. Rows come back
// unordered with Rank unset; ranking belongs to the report service.
type GormSalesReportRepository struct {
	db *gorm.DB
}

func NewGormSalesReportRepository(db *gorm.DB) *GormSalesReportRepository {
	return &GormSalesReportRepository{db: db}
}

type salespersonRow struct {
	SalespersonID uuid.UUID
	FirstName     string
	LastName      string
	Email         string
	TotalAmount   decimal.Decimal
	DealsCount    int64
}

type teamRow struct {
	TeamID      uuid.UUID
	TeamName    string
	TotalAmount decimal.Decimal
	DealsCount  int64
	TeamSize    int64
}

func (r *GormSalesReportRepository) inPeriod(ctx context.Context, filter report.SalesReportFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table("sales").
		Where("sales.closed_at >= ? AND sales.closed_at < ?", filter.Period.Start(), filter.Period.End())
	if filter.TeamID != nil {
		q = q.Where("sales.team_id = ?", *filter.TeamID)
	}
	return q
}

func (r *GormSalesReportRepository) GetSalespersonPerformance(ctx context.Context, filter report.SalesReportFilter) ([]report.SalespersonPerformance, error) {
	var rows []salespersonRow
	err := r.inPeriod(ctx, filter).
		Select(`sales.owner_id AS salesperson_id,
			users.first_name, users.last_name, users.email,
			SUM(sales.amount) AS total_amount,
			COUNT(*) AS deals_count`).
		Joins("JOIN users ON users.id = sales.owner_id").
		Group("sales.owner_id, users.first_name, users.last_name, users.email").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, nil)
	}

	out := make([]report.SalespersonPerformance, len(rows))
	for i, row := range rows {
		out[i] = report.SalespersonPerformance{
			SalespersonID: row.SalespersonID,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			Email:         row.Email,
			TotalAmount:   row.TotalAmount,
			DealsCount:    row.DealsCount,
		}
	}
	return out, nil
}

// GetTeamPerformance skips sales closed by users without a team.
func (r *GormSalesReportRepository) GetTeamPerformance(ctx context.Context, filter report.SalesReportFilter) ([]report.TeamPerformance, error) {
	var rows []teamRow
	err := r.inPeriod(ctx, filter).
		Select(`sales.team_id,
			teams.name AS team_name,
			SUM(sales.amount) AS total_amount,
			COUNT(*) AS deals_count,
			COUNT(DISTINCT sales.owner_id) AS team_size`).
		Joins("JOIN teams ON teams.id = sales.team_id").
		Group("sales.team_id, teams.name").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, nil)
	}

	out := make([]report.TeamPerformance, len(rows))
	for i, row := range rows {
		out[i] = report.TeamPerformance{
			TeamID:      row.TeamID,
			TeamName:    row.TeamName,
			TotalAmount: row.TotalAmount,
			DealsCount:  row.DealsCount,
			TeamSize:    row.TeamSize,
		}
	}
	return out, nil
}

var _ report.SalesReportRepository = (*GormSalesReportRepository)(nil)
