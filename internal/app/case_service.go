package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
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

const caseListLimit = 100

type CaseInput struct {
	Title       string `json:"title"`
	ClientName  string `json:"client_name"`
	Description string `json:"description"`
	CaseType    string `json:"case_type"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

func (in CaseInput) validate() (priority, status string, err error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.ClientName) == "" {
		return "", "", apperr.Validation("title and client_name are required")
	}
	priority = in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return "", "", apperr.Validation("invalid priority: " + priority)
	}
	status = in.Status
	if status == "" {
		status = model.CaseStatusActive
	}
	if !model.ValidCaseStatus(status) {
		return "", "", apperr.Validation("invalid status: " + status)
	}
	return priority, status, nil
}

type CaseService struct {
	cases    *repository.CaseRepository
	photos   *repository.PhotoRepository
	files    *repository.AdditionalFileRepository
	contexts *cache.ContextCache
	blobs    blob.Store
	logger   *zap.Logger

	now func() time.Time

	numberMu   sync.Mutex
	lastNumber int64
}

func NewCaseService(
	cases *repository.CaseRepository,
	photos *repository.PhotoRepository,
	files *repository.AdditionalFileRepository,
	contexts *cache.ContextCache,
	blobs blob.Store,
) *CaseService {
	return &CaseService{
		cases:    cases,
		photos:   photos,
		files:    files,
		contexts: contexts,
		blobs:    blobs,
		logger:   logger.Named("cases"),
		now:      time.Now,
	}
}

func (s *CaseService) List(ctx context.Context) ([]model.Case, error) {
	return s.list(ctx, false)
}

func (s *CaseService) ListArchived(ctx context.Context) ([]model.Case, error) {
	return s.list(ctx, true)
}

func (s *CaseService) list(ctx context.Context, archived bool) ([]model.Case, error) {
	cases, err := s.cases.List(ctx, archived, caseListLimit)
	if err != nil {
		return nil, err
	}
	if cases == nil {
		cases = []model.Case{}
	}
	return cases, nil
}

// Create stores a new active case. The status in the input is ignored.
func (s *CaseService) Create(ctx context.Context, in CaseInput) (*model.Case, error) {
	in.Status = ""
	priority, _, err := in.validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Case{
		ID:          uuid.NewString(),
		CaseNumber:  s.nextCaseNumber(now),
		Title:       in.Title,
		ClientName:  in.ClientName,
		Description: in.Description,
		CaseType:    in.CaseType,
		Priority:    priority,
		Status:      model.CaseStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("case created", zap.String("case_id", c.ID), zap.String("case_number", c.CaseNumber))
	return c, nil
}

// Get returns the full case context.
func (s *CaseService) Get(ctx context.Context, caseID string) (*cache.CaseContext, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	return s.contexts.Get(ctx, caseID)
}

// Update replaces every editable field of the case.
func (s *CaseService) Update(ctx context.Context, caseID string, in CaseInput) (*model.Case, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	priority, status, err := in.validate()
	if err != nil {
		return nil, err
	}

	updated, err := s.cases.Update(ctx, caseID, map[string]any{
		"title":       in.Title,
		"client_name": in.ClientName,
		"description": in.Description,
		"case_type":   in.CaseType,
		"priority":    priority,
		"status":      status,
		"updated_at":  s.now(),
	}, "")
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Case not found")
	}
	s.invalidate(ctx, caseID)
	return updated, nil
}

func (s *CaseService) Archive(ctx context.Context, caseID string) (*model.Case, error) {
	return s.setStatus(ctx, caseID, model.CaseStatusArchived, "", "Case not found")
}

// Restore reactivates an archived case; other cases are reported as not
// found.
func (s *CaseService) Restore(ctx context.Context, caseID string) (*model.Case, error) {
	return s.setStatus(ctx, caseID, model.CaseStatusActive, model.CaseStatusArchived, "Case not found or not archived")
}

func (s *CaseService) setStatus(ctx context.Context, caseID, status, requireStatus, notFound string) (*model.Case, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	updated, err := s.cases.Update(ctx, caseID, map[string]any{
		"status":     status,
		"updated_at": s.now(),
	}, requireStatus)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound(notFound)
	}
	s.invalidate(ctx, caseID)
	return updated, nil
}

// Delete removes the case with everything it owns. Stored binaries are
// removed after the rows; failures there are only logged.
func (s *CaseService) Delete(ctx context.Context, caseID string) error {
	if strings.TrimSpace(caseID) == "" {
		return apperr.Validation("Case ID is required")
	}

	photos, err := s.photos.ListByCaseID(ctx, caseID)
	if err != nil {
		return err
	}
	files, err := s.files.ListByCaseID(ctx, caseID)
	if err != nil {
		return err
	}

	deleted, err := s.cases.DeleteCascade(ctx, caseID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("Case not found")
	}

	keys := make([]string, 0, len(photos)+len(files))
	for _, p := range photos {
		keys = append(keys, p.FileName)
	}
	for _, f := range files {
		keys = append(keys, blob.AdditionalPrefix+f.FileName)
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("delete stored file failed", zap.String("key", key), zap.Error(err))
		}
	}
	s.logger.Info("case deleted", zap.String("case_id", caseID), zap.Int("files", len(keys)))
	return nil
}

// nextCaseNumber renders CASE-<unix millis>, bumped past the last number
// issued by this process so two cases created within one millisecond differ.
func (s *CaseService) nextCaseNumber(now time.Time) string {
	s.numberMu.Lock()
	defer s.numberMu.Unlock()

	n := now.UnixMilli()
	if n <= s.lastNumber {
		n = s.lastNumber + 1
	}
	s.lastNumber = n
	return fmt.Sprintf("CASE-%d", n)
}

func (s *CaseService) invalidate(ctx context.Context, caseID string) {
	if err := s.contexts.Invalidate(ctx, caseID); err != nil {
		s.logger.Warn("invalidate case context failed", zap.String("case_id", caseID), zap.Error(err))
	}
}
