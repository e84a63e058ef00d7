package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"legaldesk/internal/model"
)

type ContextCacheRepository struct {
	base
}

func NewContextCacheRepository(db *gorm.DB) *ContextCacheRepository {
	return &ContextCacheRepository{base: newBase(db)}
}

func (r *ContextCacheRepository) GetByCaseID(ctx context.Context, caseID string) (*model.CaseContextCache, error) {
	var entry model.CaseContextCache
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("case_id = ?", caseID).First(&entry).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get context cache failed: %w", err)
	}
	return &entry, nil
}

// Upsert writes the aggregate for caseID; concurrent writers are
// last-write-wins.
func (r *ContextCacheRepository) Upsert(ctx context.Context, caseID string, data []byte, at time.Time) error {
	entry := model.CaseContextCache{
		ID:          uuid.NewString(),
		CaseID:      caseID,
		ContextData: datatypes.JSON(data),
		LastUpdated: at,
	}
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"context_data", "last_updated"}),
		}).Create(&entry).Error
	})
	if err != nil {
		return fmt.Errorf("upsert context cache failed: %w", err)
	}
	return nil
}

func (r *ContextCacheRepository) DeleteByCaseID(ctx context.Context, caseID string) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("case_id = ?", caseID).Delete(&model.CaseContextCache{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete context cache failed: %w", err)
	}
	return nil
}
