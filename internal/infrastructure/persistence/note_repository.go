package persistence

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const noteSelect = "notes.*, accounts.owner_id AS owner_id, owners.team_id AS owner_team_id"

// GormNoteRepository implements crm.NoteRepository.
type GormNoteRepository struct {
	db *gorm.DB
}

func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	return &GormNoteRepository{db: db}
}

func (r *GormNoteRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.NoteModel{}).
		Select(noteSelect).
		Joins("JOIN accounts ON accounts.id = notes.account_id").
		Joins("JOIN users owners ON owners.id = accounts.owner_id")
}

func (r *GormNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Note, error) {
	var m models.NoteModel
	if err := r.joined(ctx).Where("notes.id = ?", id).Take(&m).Error; err != nil {
		return nil, translate(err, crm.ErrNoteNotFound)
	}
	return m.ToDomain(), nil
}

func (r *GormNoteRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*crm.Note, error) {
	var rows []models.NoteModel
	err := r.joined(ctx).
		Where("notes.account_id = ?", accountID).
		Order("notes.note_date DESC").
		Order("notes.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	out := make([]*crm.Note, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func (r *GormNoteRepository) Create(ctx context.Context, note *crm.Note) error {
	return translate(r.db.WithContext(ctx).Create(models.NoteModelFromDomain(note)).Error, nil)
}

func (r *GormNoteRepository) Update(ctx context.Context, note *crm.Note) error {
	res := r.db.WithContext(ctx).Model(&models.NoteModel{}).
		Where("id = ?", note.ID).
		Updates(map[string]any{
			"content":    note.Content,
			"type":       string(note.Type),
			"note_date":  note.NoteDate,
			"updated_at": note.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return crm.ErrNoteNotFound
	}
	return nil
}

func (r *GormNoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.NoteModel{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return crm.ErrNoteNotFound
	}
	return nil
}

var _ crm.NoteRepository = (*GormNoteRepository)(nil)
