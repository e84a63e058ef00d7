package model

import "time"

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	CaseStatusActive    = "active"
	CaseStatusPaused    = "paused"
	CaseStatusCompleted = "completed"
	CaseStatusArchived  = "archived"
)

type Case struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaseNumber  string    `gorm:"size:64;not null;uniqueIndex" json:"case_number"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	ClientName  string    `gorm:"size:256;not null" json:"client_name"`
	Description string    `gorm:"type:text" json:"description"`
	CaseType    string    `gorm:"size:128" json:"case_type"`
	Priority    string    `gorm:"size:16;not null;default:medium" json:"priority"`
	Status      string    `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Case) TableName() string {
	return "cases"
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ValidCaseStatus(s string) bool {
	switch s {
	case CaseStatusActive, CaseStatusPaused, CaseStatusCompleted, CaseStatusArchived:
		return true
	}
	return false
}
