package repository

import (
	"context"
	"fmt"
	"time"

	"shelfsight/server/internal/database"
	"shelfsight/server/internal/models"

	"gorm.io/gorm"
)

// DefaultListLimit caps ListAnalyses when no positive limit is given.
const DefaultListLimit = 20

// SaveAnalysis stores an analysis together with its tally and funnel rows.
func SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	if err := database.DB.WithContext(ctx).Create(analysis).Error; err != nil {
		return fmt.Errorf("save analysis %s: %w", analysis.ID, err)
	}
	return nil
}

// GetAnalysis loads one analysis with its rows in insertion order. A missing
// id yields an error wrapping gorm.ErrRecordNotFound.
func GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	var analysis models.Analysis
	err := database.DB.WithContext(ctx).
		Preload("Interactions", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Funnels", func(db *gorm.DB) *gorm.DB { return db.Order("shelf_id") }).
		First(&analysis, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return &analysis, nil
}

// ListAnalyses returns the most recent analyses without their rows.
func ListAnalyses(ctx context.Context, limit int) ([]models.Analysis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	analyses := make([]models.Analysis, 0)
	err := database.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysesBefore removes every analysis created before cutoff along
// with its rows and returns the number of analyses removed.
func DeleteAnalysesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := func() *gorm.DB {
			return tx.Model(&models.Analysis{}).Select("id").Where("created_at < ?", cutoff)
		}

		if err := tx.Where("analysis_id IN (?)", stale()).Delete(&models.ShelfInteraction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("analysis_id IN (?)", stale()).Delete(&models.ShelfFunnel{}).Error; err != nil {
			return err
		}
		res := tx.Where("created_at < ?", cutoff).Delete(&models.Analysis{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete analyses before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
