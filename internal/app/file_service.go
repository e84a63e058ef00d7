package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legaldesk/internal/apperr"
	"legaldesk/internal/blob"
	"legaldesk/internal/cache"
	"legaldesk/internal/model"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/repository"
)

type FileUploadResult struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId"`
	Message string `json:"message"`
}

// AdditionalFileInput carries the form fields sent with an additional file.
type AdditionalFileInput struct {
	CaseID      string
	Description string
	IsImportant bool
}

// FileService manages supplementary case files. They are not recognised and
// do not appear in the case context.
type FileService struct {
	cases    *repository.CaseRepository
	files    *repository.AdditionalFileRepository
	contexts *cache.ContextCache
	blobs    blob.Store
	logger   *zap.Logger

	now func() time.Time
}

func NewFileService(
	cases *repository.CaseRepository,
	files *repository.AdditionalFileRepository,
	contexts *cache.ContextCache,
	blobs blob.Store,
) *FileService {
	return &FileService{
		cases:    cases,
		files:    files,
		contexts: contexts,
		blobs:    blobs,
		logger:   logger.Named("files"),
		now:      time.Now,
	}
}

func (s *FileService) Upload(ctx context.Context, in AdditionalFileInput, file *FileUpload) (*FileUploadResult, error) {
	if file == nil || strings.TrimSpace(in.CaseID) == "" {
		return nil, apperr.Validation("File and caseId are required")
	}
	c, err := s.cases.GetByID(ctx, in.CaseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("Case not found")
	}

	fileID := uuid.NewString()
	fileName := fileID + "-" + blob.SanitizeName(file.Name)
	if err := s.blobs.Save(ctx, blob.AdditionalPrefix+fileName, file.Data, file.ContentType); err != nil {
		return nil, fmt.Errorf("store additional file failed: %w", err)
	}

	originalName := file.Name
	if originalName == "" {
		originalName = "file"
	}
	now := s.now()
	row := &model.AdditionalFile{
		ID:           fileID,
		CaseID:       in.CaseID,
		FileName:     fileName,
		OriginalName: originalName,
		FileType:     file.ContentType,
		FileSize:     int64(len(file.Data)),
		FilePath:     "/uploads/" + blob.AdditionalPrefix + fileName,
		Description:  in.Description,
		IsImportant:  in.IsImportant,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.files.Create(ctx, row); err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.CaseID)

	s.logger.Info("additional file uploaded", zap.String("file_id", fileID), zap.String("case_id", in.CaseID))
	return &FileUploadResult{
		Success: true,
		FileID:  fileID,
		Message: "Additional file uploaded successfully",
	}, nil
}

// List returns the case's additional files, newest first.
func (s *FileService) List(ctx context.Context, caseID string) ([]model.AdditionalFile, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	files, err := s.files.ListByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []model.AdditionalFile{}
	}
	return files, nil
}

func (s *FileService) Download(ctx context.Context, fileID string) (*Content, error) {
	row, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.NotFound("File not found")
	}

	data, err := blob.ReadAll(ctx, s.blobs, blob.AdditionalPrefix+row.FileName)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, apperr.NotFound("File not found on disk")
		}
		return nil, err
	}
	return &Content{Name: row.OriginalName, ContentType: row.FileType, Data: data}, nil
}

// Delete removes the record first; the stored binary is removed best
// effort.
func (s *FileService) Delete(ctx context.Context, fileID string) error {
	row, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if row == nil {
		return apperr.NotFound("File not found")
	}
	if err := s.files.DeleteByID(ctx, fileID); err != nil {
		return err
	}
	s.invalidate(ctx, row.CaseID)

	if err := s.blobs.Delete(ctx, blob.AdditionalPrefix+row.FileName); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("delete stored file failed", zap.String("file_id", fileID), zap.Error(err))
	}
	return nil
}

func (s *FileService) invalidate(ctx context.Context, caseID string) {
	if err := s.contexts.Invalidate(ctx, caseID); err != nil {
		s.logger.Warn("invalidate case context failed", zap.String("case_id", caseID), zap.Error(err))
	}
}
