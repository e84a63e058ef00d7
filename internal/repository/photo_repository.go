package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legaldesk/internal/model"
)

type PhotoRepository struct {
	base
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{base: newBase(db)}
}

func (r *PhotoRepository) Create(ctx context.Context, photo *model.Photo) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(photo).Error
	})
	if err != nil {
		return fmt.Errorf("create photo failed: %w", err)
	}
	return nil
}

func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*model.Photo, error) {
	var photo model.Photo
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&photo).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get photo failed: %w", err)
	}
	return &photo, nil
}

func (r *PhotoRepository) ListByCaseID(ctx context.Context, caseID string) ([]model.Photo, error) {
	var photos []model.Photo
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("case_id = ?", caseID).Order("display_order ASC").Order("created_at ASC").Find(&photos).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list photos failed: %w", err)
	}
	return photos, nil
}

// NextDisplayOrder returns max(display_order)+1 within the case, 1 for the
// first photo.
func (r *PhotoRepository) NextDisplayOrder(ctx context.Context, caseID string) (int, error) {
	var next int
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.Photo{}).
			Where("case_id = ?", caseID).
			Select("COALESCE(MAX(display_order), 0) + 1").
			Scan(&next).Error
	})
	if err != nil {
		return 0, fmt.Errorf("next display order failed: %w", err)
	}
	if next < 1 {
		next = 1
	}
	return next, nil
}

type CommentRepository struct {
	base
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{base: newBase(db)}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.PhotoComment) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(comment).Error
	})
	if err != nil {
		return fmt.Errorf("create comment failed: %w", err)
	}
	return nil
}

func (r *CommentRepository) ListByPhotoID(ctx context.Context, photoID string) ([]model.PhotoComment, error) {
	var comments []model.PhotoComment
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("photo_id = ?", photoID).Order("created_at ASC").Find(&comments).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list comments failed: %w", err)
	}
	return comments, nil
}
