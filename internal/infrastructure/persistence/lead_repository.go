package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const leadSelect = "leads.*, accounts.owner_id AS owner_id, owners.team_id AS owner_team_id"

// GormLeadRepository implements crm.LeadRepository. Domain events raised by
// a transition are written to the outbox inside the same transaction.
type GormLeadRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

func NewGormLeadRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormLeadRepository {
	return &GormLeadRepository{db: db, outbox: outbox}
}

func (r *GormLeadRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.LeadModel{}).
		Joins("JOIN accounts ON accounts.id = leads.account_id").
		Joins("JOIN users owners ON owners.id = accounts.owner_id")
}

func (r *GormLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Lead, error) {
	var m models.LeadModel
	if err := r.joined(ctx).Select(leadSelect).Where("leads.id = ?", id).Take(&m).Error; err != nil {
		return nil, translate(err, crm.ErrLeadNotFound)
	}
	return m.ToDomain(), nil
}

func (r *GormLeadRepository) FindAll(ctx context.Context, filter crm.LeadFilter) ([]*crm.Lead, int64, error) {
	query := r.joined(ctx).Scopes(datascope.Scope(filter.Scope, datascope.LeadColumns))
	if filter.AccountID != nil {
		query = query.Where("leads.account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		query = query.Where("leads.status = ?", filter.Status.String())
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(leads.description) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, nil)
	}

	var rows []models.LeadModel
	err := query.Select(leadSelect).
		Order(orderClause(filter.OrderBy, filter.OrderDir, LeadSortFields, "leads.created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err, nil)
	}

	out := make([]*crm.Lead, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

func (r *GormLeadRepository) Create(ctx context.Context, lead *crm.Lead) error {
	return translate(r.db.WithContext(ctx).Create(models.LeadModelFromDomain(lead)).Error, nil)
}

// Update writes the editable fields. Status is left alone; it only changes
// through ApplyTransition.
func (r *GormLeadRepository) Update(ctx context.Context, lead *crm.Lead, expectedVersion int) error {
	return updateVersioned(r.db.WithContext(ctx), &models.LeadModel{}, lead.ID, expectedVersion, map[string]any{
		"description":     lead.Description,
		"estimated_value": lead.EstimatedValue,
		"probability":     lead.Probability,
		"version":         lead.Version,
		"updated_at":      lead.UpdatedAt,
	}, crm.ErrLeadNotFound)
}

func (r *GormLeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.LeadModel{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return crm.ErrLeadNotFound
	}
	return nil
}

func (r *GormLeadRepository) HasClosedLeads(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeadModel{}).
		Where("account_id = ? AND status IN ?", accountID, terminalStatusNames()).
		Count(&count).Error
	if err != nil {
		return false, translate(err, nil)
	}
	return count > 0, nil
}

func (r *GormLeadRepository) ApplyTransition(ctx context.Context, lead *crm.Lead, expectedVersion int, sale *crm.Sale) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := updateVersioned(tx, &models.LeadModel{}, lead.ID, expectedVersion, map[string]any{
			"status":     lead.Status.String(),
			"version":    lead.Version,
			"updated_at": lead.UpdatedAt,
		}, crm.ErrLeadNotFound)
		if err != nil {
			return err
		}

		if sale != nil {
			if err := tx.Create(models.SaleModelFromDomain(sale)).Error; err != nil {
				// The unique lead_id index catches a second close that
				// slipped past the version check.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrConcurrencyConflict
				}
				return translate(err, nil)
			}
		}

		if r.outbox != nil {
			if err := r.outbox.SaveEvents(ctx, tx, lead.GetDomainEvents()...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	lead.ClearDomainEvents()
	return nil
}

func terminalStatusNames() []string {
	var names []string
	for _, s := range crm.LeadStatuses {
		if s.IsTerminal() {
			names = append(names, s.String())
		}
	}
	return names
}

var _ crm.LeadRepository = (*GormLeadRepository)(nil)
