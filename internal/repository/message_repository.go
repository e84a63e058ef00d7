package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"legaldesk/internal/model"
)

// CaseMessage is a chat message joined with the name of its session.
type CaseMessage struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	CaseID      string    `json:"case_id"`
	MessageType string    `json:"message_type"`
	MessageText string    `json:"message_text"`
	CreatedAt   time.Time `json:"created_at"`
	SessionName string    `json:"session_name"`
}

type MessageRepository struct {
	base
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{base: newBase(db)}
}

// CreateBatch inserts the messages atomically.
func (r *MessageRepository) CreateBatch(ctx context.Context, messages []model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&messages).Error
		})
	})
	if err != nil {
		return fmt.Errorf("create messages failed: %w", err)
	}
	return nil
}

// ListRecentBySessionID returns at most limit latest messages of the
// session, oldest first.
func (r *MessageRepository) ListRecentBySessionID(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	var messages []model.ChatMessage
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("session_id = ?", sessionID).
			Order("created_at DESC").
			Limit(limit).
			Find(&messages).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListByCaseID returns every message of the case in chronological order.
func (r *MessageRepository) ListByCaseID(ctx context.Context, caseID string) ([]CaseMessage, error) {
	var messages []CaseMessage
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Table("ai_chat_messages AS m").
			Select("m.id, m.session_id, m.case_id, m.message_type, m.message_text, m.created_at, s.session_name").
			Joins("JOIN ai_chat_sessions AS s ON s.id = m.session_id").
			Where("m.case_id = ?", caseID).
			Order("m.created_at ASC").
			Scan(&messages).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list case messages failed: %w", err)
	}
	return messages, nil
}
