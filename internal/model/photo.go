package model

import "time"

// Photo is an uploaded page or document image owned by one case.
type Photo struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaseID       string    `gorm:"type:varchar(36);not null;index:idx_case_photos_order,priority:1" json:"case_id"`
	FileName     string    `gorm:"size:512;not null" json:"file_name"`
	OriginalName string    `gorm:"size:512;not null" json:"original_name"`
	FileType     string    `gorm:"size:128" json:"file_type"`
	FileSize     int64     `json:"file_size"`
	FilePath     string    `gorm:"size:1024" json:"file_path"`
	DisplayOrder int       `gorm:"not null;index:idx_case_photos_order,priority:2" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Photo) TableName() string {
	return "case_photos"
}

type PhotoComment struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PhotoID     string    `gorm:"type:varchar(36);not null;index" json:"photo_id"`
	CaseID      string    `gorm:"type:varchar(36);not null;index" json:"case_id"`
	CommentText string    `gorm:"type:text;not null" json:"comment_text"`
	AuthorName  string    `gorm:"size:128" json:"author_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PhotoComment) TableName() string {
	return "photo_comments"
}

type AdditionalFile struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaseID       string    `gorm:"type:varchar(36);not null;index" json:"case_id"`
	FileName     string    `gorm:"size:512;not null" json:"file_name"`
	OriginalName string    `gorm:"size:512;not null" json:"original_name"`
	FileType     string    `gorm:"size:128" json:"file_type"`
	FileSize     int64     `json:"file_size"`
	FilePath     string    `gorm:"size:1024" json:"file_path"`
	Description  string    `gorm:"type:text" json:"description"`
	IsImportant  bool      `gorm:"not null;default:false" json:"is_important"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AdditionalFile) TableName() string {
	return "case_additional_files"
}
