package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"framecoach/internal/model"
)

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Upsert stores an analysis, replacing a prior record for the same requester
// and content hash (re-analysis of the same bytes refreshes the row).
func (r *AnalysisRepository) Upsert(analysis *model.Analysis) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "requester_key"}, {Name: "content_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"filename", "perceptual_hash", "critique", "exif_json", "image_path", "created_at",
		}),
	}).Create(analysis).Error
	if err != nil {
		return fmt.Errorf("upsert analysis failed: %w", err)
	}
	return nil
}

// GetByHash returns the most recent analysis for a content hash, regardless
// of requester. Identical bytes mean an identical critique.
func (r *AnalysisRepository) GetByHash(contentHash string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := r.db.Where("content_hash = ?", contentHash).Order("created_at DESC").First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis by hash failed: %w", err)
	}
	return &analysis, nil
}

func (r *AnalysisRepository) ListByRequester(requesterKey string, limit int) ([]model.Analysis, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var analyses []model.Analysis
	err := r.db.Where("requester_key = ?", requesterKey).Order("created_at DESC").Limit(limit).Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("list analyses failed: %w", err)
	}
	return analyses, nil
}

// ListRecentHashed returns recent rows that carry a perceptual hash, for the
// near-duplicate fallback scan.
func (r *AnalysisRepository) ListRecentHashed(limit int) ([]model.Analysis, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var analyses []model.Analysis
	err := r.db.Where("perceptual_hash <> ''").Order("created_at DESC").Limit(limit).Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("list hashed analyses failed: %w", err)
	}
	return analyses, nil
}

// DeleteByIDAndRequester removes one analysis, only when owned by the
// requester. Reports whether a row was deleted.
func (r *AnalysisRepository) DeleteByIDAndRequester(id uint, requesterKey string) (bool, error) {
	result := r.db.Where("id = ? AND requester_key = ?", id, requesterKey).Delete(&model.Analysis{})
	if result.Error != nil {
		return false, fmt.Errorf("delete analysis failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
