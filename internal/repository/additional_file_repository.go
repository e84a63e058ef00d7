package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legaldesk/internal/model"
)

type AdditionalFileRepository struct {
	base
}

func NewAdditionalFileRepository(db *gorm.DB) *AdditionalFileRepository {
	return &AdditionalFileRepository{base: newBase(db)}
}

func (r *AdditionalFileRepository) Create(ctx context.Context, file *model.AdditionalFile) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(file).Error
	})
	if err != nil {
		return fmt.Errorf("create additional file failed: %w", err)
	}
	return nil
}

func (r *AdditionalFileRepository) GetByID(ctx context.Context, id string) (*model.AdditionalFile, error) {
	var file model.AdditionalFile
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&file).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get additional file failed: %w", err)
	}
	return &file, nil
}

func (r *AdditionalFileRepository) ListByCaseID(ctx context.Context, caseID string) ([]model.AdditionalFile, error) {
	var files []model.AdditionalFile
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("case_id = ?", caseID).Order("created_at DESC").Find(&files).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list additional files failed: %w", err)
	}
	return files, nil
}

func (r *AdditionalFileRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&model.AdditionalFile{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete additional file failed: %w", err)
	}
	return nil
}
