package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"legaldesk/internal/model"
)

type SessionRepository struct {
	base
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{base: newBase(db)}
}

func (r *SessionRepository) GetActiveByCaseID(ctx context.Context, caseID string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("active_case_id = ?", caseID).First(&session).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active session failed: %w", err)
	}
	return &session, nil
}

// GetOrCreateActive returns the case's active session, inserting one named
// name when none exists. Concurrent callers converge on the same row through
// the unique active_case_id column. It returns (nil, nil) when the case does
// not exist.
func (r *SessionRepository) GetOrCreateActive(ctx context.Context, caseID, name string) (*model.ChatSession, error) {
	session, err := r.GetActiveByCaseID(ctx, caseID)
	if err != nil || session != nil {
		return session, err
	}

	var caseCount int64
	err = r.run(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.Case{}).Where("id = ?", caseID).Count(&caseCount).Error
	})
	if err != nil {
		return nil, fmt.Errorf("check case failed: %w", err)
	}
	if caseCount == 0 {
		return nil, nil
	}

	activeCaseID := caseID
	candidate := model.ChatSession{
		ID:           uuid.NewString(),
		CaseID:       caseID,
		SessionName:  name,
		IsActive:     true,
		ActiveCaseID: &activeCaseID,
	}
	err = r.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "active_case_id"}},
			DoNothing: true,
		}).Create(&candidate).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}

	session, err = r.GetActiveByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("create session failed: active session for case %s vanished", caseID)
	}
	return session, nil
}

func (r *SessionRepository) ListByCaseID(ctx context.Context, caseID string) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("case_id = ?", caseID).Order("created_at DESC").Find(&sessions).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// CloseActive deactivates the case's active session and reports whether one
// was open.
func (r *SessionRepository) CloseActive(ctx context.Context, caseID string) (bool, error) {
	var affected int64
	err := r.run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&model.ChatSession{}).
			Where("active_case_id = ?", caseID).
			Updates(map[string]any{
				"is_active":      false,
				"active_case_id": nil,
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("close session failed: %w", err)
	}
	return affected > 0, nil
}
