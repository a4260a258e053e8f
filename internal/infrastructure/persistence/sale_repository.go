package persistence

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository reads the sales ledger. Inserts happen only inside
// GormLeadRepository.ApplyTransition.
type GormSaleRepository struct {
	db *gorm.DB
}

func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Sale, error) {
	var m models.SaleModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, crm.ErrSaleNotFound)
	}
	return m.ToDomain(), nil
}

func (r *GormSaleRepository) FindByLeadID(ctx context.Context, leadID uuid.UUID) (*crm.Sale, error) {
	var m models.SaleModel
	if err := r.db.WithContext(ctx).Take(&m, "lead_id = ?", leadID).Error; err != nil {
		return nil, translate(err, crm.ErrSaleNotFound)
	}
	return m.ToDomain(), nil
}

func (r *GormSaleRepository) FindAll(ctx context.Context, filter crm.SaleFilter) ([]*crm.Sale, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Scopes(datascope.Scope(filter.Scope, datascope.SaleColumns))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, nil)
	}

	var rows []models.SaleModel
	err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, SaleSortFields, "sales.closed_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err, nil)
	}
	out := make([]*crm.Sale, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

var _ crm.SaleRepository = (*GormSaleRepository)(nil)
