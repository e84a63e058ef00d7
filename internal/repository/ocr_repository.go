package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"legaldesk/internal/model"
)

// ErrPhotoGone is returned by BeginProcessing when the photo no longer
// exists, typically because its case was deleted.
var ErrPhotoGone = errors.New("photo no longer exists")

// OCRFields is the structured data persisted with a completed result.
type OCRFields struct {
	Dates   []string
	Numbers []string
	Names   []string
	Amounts []string
}

type OCRRepository struct {
	base
}

func NewOCRRepository(db *gorm.DB) *OCRRepository {
	return &OCRRepository{base: newBase(db)}
}

func (r *OCRRepository) GetByPhotoID(ctx context.Context, photoID string) (*model.OCRResult, error) {
	var result model.OCRResult
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("photo_id = ?", photoID).First(&result).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ocr result failed: %w", err)
	}
	return &result, nil
}

func (r *OCRRepository) ListByPhotoIDs(ctx context.Context, photoIDs []string) ([]model.OCRResult, error) {
	if len(photoIDs) == 0 {
		return []model.OCRResult{}, nil
	}

	var results []model.OCRResult
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("photo_id IN ?", photoIDs).Find(&results).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list ocr results failed: %w", err)
	}
	return results, nil
}

// BeginProcessing moves the photo's result into processing, creating it when
// absent. A previous failure message is cleared. Nothing is written when the
// photo is gone.
func (r *OCRRepository) BeginProcessing(ctx context.Context, photoID, caseID string) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			return beginProcessing(tx, photoID, caseID)
		})
	})
	if errors.Is(err, ErrPhotoGone) {
		return err
	}
	if err != nil {
		return fmt.Errorf("begin ocr processing failed: %w", err)
	}
	return nil
}

func beginProcessing(tx *gorm.DB, photoID, caseID string) error {
	var photos int64
	if err := tx.Model(&model.Photo{}).Where("id = ?", photoID).Count(&photos).Error; err != nil {
		return err
	}
	if photos == 0 {
		return ErrPhotoGone
	}

	var existing int64
	if err := tx.Model(&model.OCRResult{}).Where("photo_id = ?", photoID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return tx.Model(&model.OCRResult{}).
			Where("photo_id = ?", photoID).
			Updates(map[string]any{
				"processing_status": model.OCRStatusProcessing,
				"error_message":     nil,
			}).Error
	}
	return tx.Create(&model.OCRResult{
		ID:               uuid.NewString(),
		PhotoID:          photoID,
		CaseID:           caseID,
		ProcessingStatus: model.OCRStatusProcessing,
		ExtractedDates:   datatypes.JSONSlice[string]{},
		ExtractedNumbers: datatypes.JSONSlice[string]{},
		ExtractedNames:   datatypes.JSONSlice[string]{},
		ExtractedAmounts: datatypes.JSONSlice[string]{},
	}).Error
}

func (r *OCRRepository) Complete(ctx context.Context, photoID, rawText string, fields OCRFields, confidence float64) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.OCRResult{}).
			Where("photo_id = ?", photoID).
			Updates(map[string]any{
				"processing_status": model.OCRStatusCompleted,
				"raw_text":          rawText,
				"extracted_dates":   jsonList(fields.Dates),
				"extracted_numbers": jsonList(fields.Numbers),
				"extracted_names":   jsonList(fields.Names),
				"extracted_amounts": jsonList(fields.Amounts),
				"confidence_score":  confidence,
				"error_message":     nil,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("complete ocr result failed: %w", err)
	}
	return nil
}

func (r *OCRRepository) Fail(ctx context.Context, photoID, message string) error {
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.OCRResult{}).
			Where("photo_id = ?", photoID).
			Updates(map[string]any{
				"processing_status": model.OCRStatusFailed,
				"error_message":     message,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("fail ocr result failed: %w", err)
	}
	return nil
}

func jsonList(values []string) datatypes.JSONSlice[string] {
	if values == nil {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.JSONSlice[string](values)
}
