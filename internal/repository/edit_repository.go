package repository

import (
	"fmt"

	"gorm.io/gorm"

	"framecoach/internal/model"
)

type EditRepository struct {
	db *gorm.DB
}

func NewEditRepository(db *gorm.DB) *EditRepository {
	return &EditRepository{db: db}
}

func (r *EditRepository) Create(edit *model.Edit) error {
	if err := r.db.Create(edit).Error; err != nil {
		return fmt.Errorf("create edit failed: %w", err)
	}
	return nil
}

func (r *EditRepository) ListByHash(contentHash string) ([]model.Edit, error) {
	var edits []model.Edit
	err := r.db.Where("content_hash = ?", contentHash).Order("created_at DESC").Find(&edits).Error
	if err != nil {
		return nil, fmt.Errorf("list edits failed: %w", err)
	}
	return edits, nil
}

// DeleteByHash clears prior revisions before a re-run for the same photo.
func (r *EditRepository) DeleteByHash(contentHash string) error {
	if err := r.db.Where("content_hash = ?", contentHash).Delete(&model.Edit{}).Error; err != nil {
		return fmt.Errorf("delete edits failed: %w", err)
	}
	return nil
}
