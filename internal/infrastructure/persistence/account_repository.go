package persistence

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const accountSelect = "accounts.*, owners.team_id AS owner_team_id"

// GormAccountRepository implements crm.AccountRepository.
type GormAccountRepository struct {
	db *gorm.DB
}

func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// joined resolves the owner's team through users.
func (r *GormAccountRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Joins("JOIN users owners ON owners.id = accounts.owner_id")
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Account, error) {
	var m models.AccountModel
	err := r.joined(ctx).Select(accountSelect).Where("accounts.id = ?", id).Take(&m).Error
	if err != nil {
		return nil, translate(err, crm.ErrAccountNotFound)
	}
	return m.ToDomain(), nil
}

func (r *GormAccountRepository) FindAll(ctx context.Context, filter crm.AccountFilter) ([]*crm.Account, int64, error) {
	query := r.joined(ctx).Scopes(datascope.Scope(filter.Scope, datascope.AccountColumns))

	if filter.OwnerID != nil {
		query = query.Where("accounts.owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		query = query.Where("accounts.status = ?", string(*filter.Status))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where(
			"LOWER(accounts.first_name) LIKE ? OR LOWER(accounts.last_name) LIKE ? OR LOWER(accounts.email) LIKE ? OR LOWER(accounts.company_name) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, nil)
	}

	var rows []models.AccountModel
	err := query.Select(accountSelect).
		Order(orderClause(filter.OrderBy, filter.OrderDir, AccountSortFields, "accounts.created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err, nil)
	}

	out := make([]*crm.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

func (r *GormAccountRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, translate(err, nil)
	}
	return count > 0, nil
}

func (r *GormAccountRepository) Create(ctx context.Context, account *crm.Account) error {
	return translate(r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error, nil)
}

func (r *GormAccountRepository) Update(ctx context.Context, account *crm.Account, expectedVersion int) error {
	m := models.AccountModelFromDomain(account)
	return updateVersioned(r.db.WithContext(ctx), &models.AccountModel{}, account.ID, expectedVersion, map[string]any{
		"first_name":       m.FirstName,
		"last_name":        m.LastName,
		"email":            m.Email,
		"phone":            m.Phone,
		"status":           m.Status,
		"company_name":     m.CompanyName,
		"company_industry": m.CompanyIndustry,
		"owner_id":         m.OwnerID,
		"version":          m.Version,
		"updated_at":       m.UpdatedAt,
	}, crm.ErrAccountNotFound)
}

// Delete removes the account with its notes and open leads in one
// transaction. Callers must refuse accounts that carry closed leads.
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.NoteModel{}).Error; err != nil {
			return translate(err, nil)
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.LeadModel{}).Error; err != nil {
			return translate(err, nil)
		}
		res := tx.Delete(&models.AccountModel{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, nil)
		}
		if res.RowsAffected == 0 {
			return crm.ErrAccountNotFound
		}
		return nil
	})
}

var _ crm.AccountRepository = (*GormAccountRepository)(nil)
