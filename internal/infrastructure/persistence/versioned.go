package persistence

import (
	"errors"
	"fmt"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// updateVersioned writes fields to the row with the given id only if its
// version is still expected. Zero rows affected means either the row is gone
// (notFound) or another writer got there first (ErrConcurrencyConflict).
func updateVersioned(tx *gorm.DB, model any, id uuid.UUID, expected int, fields map[string]any, notFound error) error {
	res := tx.Model(model).
		Where("id = ? AND version = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return translate(res.Error, notFound)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return shared.ErrConcurrencyConflict
}

// translate maps driver errors onto domain errors.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewDomainError(shared.CodeInvalidState, "record is still referenced")
	}
	return fmt.Errorf("database: %w", err)
}
