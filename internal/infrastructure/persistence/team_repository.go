package persistence

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errTeamNotFound = shared.NewNotFoundError("team")

// GormTeamRepository implements identity.TeamRepository.
type GormTeamRepository struct {
	db *gorm.DB
}

func NewGormTeamRepository(db *gorm.DB) *GormTeamRepository {
	return &GormTeamRepository{db: db}
}

func (r *GormTeamRepository) Create(ctx context.Context, team *identity.Team) error {
	return translate(r.db.WithContext(ctx).Create(models.TeamModelFromDomain(team)).Error, nil)
}

func (r *GormTeamRepository) Update(ctx context.Context, team *identity.Team, expectedVersion int) error {
	return updateVersioned(r.db.WithContext(ctx), &models.TeamModel{}, team.ID, expectedVersion, map[string]any{
		"name":        team.Name,
		"description": team.Description,
		"version":     team.Version,
		"updated_at":  team.UpdatedAt,
	}, errTeamNotFound)
}

func (r *GormTeamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.TeamModel{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return errTeamNotFound
	}
	return nil
}

func (r *GormTeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Team, error) {
	var m models.TeamModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, errTeamNotFound)
	}
	return m.ToDomain(), nil
}

func (r *GormTeamRepository) FindAll(ctx context.Context) ([]*identity.Team, error) {
	var rows []models.TeamModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, nil)
	}
	teams := make([]*identity.Team, len(rows))
	for i := range rows {
		teams[i] = rows[i].ToDomain()
	}
	return teams, nil
}

func (r *GormTeamRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TeamModel{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error
	if err != nil {
		return false, translate(err, nil)
	}
	return count > 0, nil
}

func (r *GormTeamRepository) CountMembers(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("team_id = ?", id).Count(&count).Error
	if err != nil {
		return 0, translate(err, nil)
	}
	return count, nil
}

var _ identity.TeamRepository = (*GormTeamRepository)(nil)
