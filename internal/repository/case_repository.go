package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legaldesk/internal/model"
)

type CaseRepository struct {
	base
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{base: newBase(db)}
}

func (r *CaseRepository) Create(ctx context.Context, c *model.Case) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(c).Error
	})
	if err != nil {
		return fmt.Errorf("create case failed: %w", err)
	}
	return nil
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*model.Case, error) {
	var c model.Case
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&c).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get case failed: %w", err)
	}
	return &c, nil
}

// List returns archived or non-archived cases, newest first.
func (r *CaseRepository) List(ctx context.Context, archived bool, limit int) ([]model.Case, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var cases []model.Case
	err := r.run(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&model.Case{})
		if archived {
			q = q.Where("status = ?", model.CaseStatusArchived)
		} else {
			q = q.Where("status <> ?", model.CaseStatusArchived)
		}
		return q.Order("created_at DESC").Limit(limit).Find(&cases).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list cases failed: %w", err)
	}
	return cases, nil
}

// Update applies fields to the case and returns the fresh row, or nil when
// no case matched. A non-empty requireStatus restricts the update to cases
// currently in that status.
func (r *CaseRepository) Update(ctx context.Context, id string, fields map[string]any, requireStatus string) (*model.Case, error) {
	var affected int64
	err := r.run(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&model.Case{}).Where("id = ?", id)
		if requireStatus != "" {
			q = q.Where("status = ?", requireStatus)
		}
		res := q.Updates(fields)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, fmt.Errorf("update case failed: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// DeleteCascade removes the case and everything it owns in one transaction.
// It reports false when the case did not exist.
func (r *CaseRepository) DeleteCascade(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			owned := []any{
				&model.ChatMessage{},
				&model.ChatSession{},
				&model.PhotoComment{},
				&model.OCRResult{},
				&model.Photo{},
				&model.AdditionalFile{},
				&model.CaseContextCache{},
			}
			for _, m := range owned {
				if err := tx.Where("case_id = ?", id).Delete(m).Error; err != nil {
					return err
				}
			}
			res := tx.Where("id = ?", id).Delete(&model.Case{})
			if res.Error != nil {
				return res.Error
			}
			deleted = res.RowsAffected > 0
			if !deleted {
				return gorm.ErrRecordNotFound
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete case failed: %w", err)
	}
	return deleted, nil
}
