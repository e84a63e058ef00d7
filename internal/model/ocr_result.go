package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OCRStatusPending    = "pending"
	OCRStatusProcessing = "processing"
	OCRStatusCompleted  = "completed"
	OCRStatusFailed     = "failed"
)

// OCRResult holds the recognition outcome for exactly one photo. The field
// lists are stored as JSON arrays and are never NULL.
type OCRResult struct {
	ID               string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	PhotoID          string                      `gorm:"type:varchar(36);not null;uniqueIndex" json:"photo_id"`
	CaseID           string                      `gorm:"type:varchar(36);not null;index" json:"case_id"`
	ProcessingStatus string                      `gorm:"size:16;not null;default:pending" json:"processing_status"`
	RawText          *string                     `gorm:"type:text" json:"raw_text"`
	ExtractedDates   datatypes.JSONSlice[string] `json:"extracted_dates"`
	ExtractedNumbers datatypes.JSONSlice[string] `json:"extracted_numbers"`
	ExtractedNames   datatypes.JSONSlice[string] `json:"extracted_names"`
	ExtractedAmounts datatypes.JSONSlice[string] `json:"extracted_amounts"`
	ConfidenceScore  float64                     `json:"confidence_score"`
	ErrorMessage     *string                     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

func (OCRResult) TableName() string {
	return "photo_ocr_results"
}
