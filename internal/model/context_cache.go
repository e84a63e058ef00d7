package model

import (
	"time"

	"gorm.io/datatypes"
)

type CaseContextCache struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaseID      string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"case_id"`
	ContextData datatypes.JSON `json:"context_data"`
	LastUpdated time.Time      `gorm:"not null;index" json:"last_updated"`
}

func (CaseContextCache) TableName() string {
	return "case_context_cache"
}
