// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"legaldesk/internal/model"
	"legaldesk/internal/platform/database"
)

// NewDB opens a migrated in-memory sqlite database closed with the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(context.Background(), "sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// SeedCase inserts an active case and returns it.
func SeedCase(t *testing.T, db *gorm.DB, title string) *model.Case {
	t.Helper()

	c := &model.Case{
		ID:         uuid.NewString(),
		CaseNumber: fmt.Sprintf("CASE-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		Title:      title,
		ClientName: "Иванов Иван Иванович",
		Priority:   model.PriorityMedium,
		Status:     model.CaseStatusActive,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedPhoto inserts a photo of caseID at the given display order.
func SeedPhoto(t *testing.T, db *gorm.DB, caseID string, order int) *model.Photo {
	t.Helper()

	id := uuid.NewString()
	p := &model.Photo{
		ID:           id,
		CaseID:       caseID,
		FileName:     id + "-scan.jpg",
		OriginalName: "scan.jpg",
		FileType:     "image/jpeg",
		FileSize:     3,
		FilePath:     "/uploads/" + id + "-scan.jpg",
		DisplayOrder: order,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
