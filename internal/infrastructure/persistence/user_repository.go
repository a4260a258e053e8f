package persistence

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errUserNotFound = shared.NewNotFoundError("user")

// GormUserRepository implements identity.UserRepository using GORM.
// User events go to the outbox in the same transaction as the row.
type GormUserRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormUserRepository {
	return &GormUserRepository{db: db, outbox: outbox}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return r.withEvents(ctx, user, func(tx *gorm.DB) error {
		return translate(tx.Create(models.UserModelFromDomain(user)).Error, nil)
	})
}

func (r *GormUserRepository) withEvents(ctx context.Context, user *identity.User, write func(tx *gorm.DB) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := write(tx); err != nil {
			return err
		}
		if r.outbox == nil {
			return nil
		}
		return r.outbox.SaveEvents(ctx, tx, user.GetDomainEvents()...)
	})
	if err != nil {
		return err
	}
	user.ClearDomainEvents()
	return nil
}

// Update saves the user if the stored row is still at expectedVersion
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User, expectedVersion int) error {
	m := models.UserModelFromDomain(user)
	return r.withEvents(ctx, user, func(tx *gorm.DB) error {
		return updateVersioned(tx, &models.UserModel{}, user.ID, expectedVersion, r.columns(m), errUserNotFound)
	})
}

func (r *GormUserRepository) columns(m *models.UserModel) map[string]any {
	return map[string]any{
		"first_name":    m.FirstName,
		"last_name":     m.LastName,
		"email":         m.Email,
		"password_hash": m.PasswordHash,
		"role":          m.Role,
		"team_id":       m.TeamID,
		"position":      m.Position,
		"active":        m.Active,
		"last_login_at": m.LastLoginAt,
		"version":       m.Version,
		"updated_at":    m.UpdatedAt,
	}
}

// Delete deletes a user by ID. Users who still own accounts are refused
// by the foreign key.
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.UserModel{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return errUserNotFound
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, errUserNotFound)
	}
	return m.ToDomain(), nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if email == "" {
		return nil, errUserNotFound
	}
	var m models.UserModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&m).Error; err != nil {
		return nil, translate(err, errUserNotFound)
	}
	return m.ToDomain(), nil
}

// FindAll returns users matching the filter with pagination
func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UserModel{})

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", filter.Role.String())
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, nil)
	}

	var rows []models.UserModel
	err := query.
		Order(orderClause(filter.SortBy, filter.SortOrder, UserSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err, nil)
	}

	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, total, nil
}

// FindManagersOfTeam returns the active managers of a team
func (r *GormUserRepository) FindManagersOfTeam(ctx context.Context, teamID uuid.UUID) ([]*identity.User, error) {
	var rows []models.UserModel
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND role = ? AND active = ?", teamID, access.RoleManager.String(), true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, nil
}

// ExistsByEmail checks if an email already exists
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error; err != nil {
		return false, translate(err, nil)
	}
	return count > 0, nil
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
