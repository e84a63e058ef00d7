package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MessageTypeUser = "user"
	MessageTypeAI   = "ai"
)

// ChatSession is a conversation thread of one case. ActiveCaseID equals
// CaseID while the session is active and is NULL once closed; its unique
// index allows a single active session per case.
type ChatSession struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaseID       string    `gorm:"type:varchar(36);not null;index" json:"case_id"`
	SessionName  string    `gorm:"size:256;not null" json:"session_name"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	ActiveCaseID *string   `gorm:"type:varchar(36);uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "ai_chat_sessions"
}

type ChatMessage struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID   string         `gorm:"type:varchar(36);not null;index:idx_chat_messages_session,priority:1" json:"session_id"`
	CaseID      string         `gorm:"type:varchar(36);not null;index" json:"case_id"`
	MessageType string         `gorm:"size:8;not null" json:"message_type"`
	MessageText string         `gorm:"type:text;not null" json:"message_text"`
	ContextUsed datatypes.JSON `json:"context_used,omitempty"`
	CreatedAt   time.Time      `gorm:"index:idx_chat_messages_session,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "ai_chat_messages"
}

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{
		&Case{},
		&Photo{},
		&PhotoComment{},
		&AdditionalFile{},
		&OCRResult{},
		&CaseContextCache{},
		&ChatSession{},
		&ChatMessage{},
	}
}
