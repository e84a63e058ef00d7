package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legaldesk/internal/apperr"
	"legaldesk/internal/blob"
	"legaldesk/internal/cache"
	"legaldesk/internal/model"
	"legaldesk/internal/ocr"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/repository"
)

const defaultCommentAuthor = "Адвокат"

// FileUpload is one multipart file read into memory.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type PhotoUploadResult struct {
	Success bool   `json:"success"`
	PhotoID string `json:"photoId"`
	Message string `json:"message"`
}

type OCRStatus struct {
	Status           string   `json:"status"`
	Progress         int      `json:"progress"`
	ExtractedText    *string  `json:"extractedText"`
	ExtractedDates   []string `json:"extractedDates,omitempty"`
	ExtractedNumbers []string `json:"extractedNumbers,omitempty"`
	ExtractedNames   []string `json:"extractedNames,omitempty"`
	ExtractedAmounts []string `json:"extractedAmounts,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	Error            *string  `json:"error,omitempty"`
}

type OCRDetails struct {
	ID               string   `json:"id"`
	OriginalName     string   `json:"original_name"`
	RawText          *string  `json:"raw_text"`
	ExtractedDates   []string `json:"extracted_dates"`
	ExtractedNumbers []string `json:"extracted_numbers"`
	ExtractedNames   []string `json:"extracted_names"`
	ExtractedAmounts []string `json:"extracted_amounts"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	ProcessingStatus *string  `json:"processing_status"`
}

// Content is a stored binary ready to be written to a response.
type Content struct {
	Name        string
	ContentType string
	Data        []byte
}

type CommentInput struct {
	CommentText string `json:"comment_text"`
	AuthorName  string `json:"author_name"`
}

type PhotoService struct {
	cases      *repository.CaseRepository
	photos     *repository.PhotoRepository
	comments   *repository.CommentRepository
	results    *repository.OCRRepository
	contexts   *cache.ContextCache
	blobs      blob.Store
	dispatcher ocr.Dispatcher
	logger     *zap.Logger

	now func() time.Time
}

func NewPhotoService(
	cases *repository.CaseRepository,
	photos *repository.PhotoRepository,
	comments *repository.CommentRepository,
	results *repository.OCRRepository,
	contexts *cache.ContextCache,
	blobs blob.Store,
	dispatcher ocr.Dispatcher,
) *PhotoService {
	return &PhotoService{
		cases:      cases,
		photos:     photos,
		comments:   comments,
		results:    results,
		contexts:   contexts,
		blobs:      blobs,
		dispatcher: dispatcher,
		logger:     logger.Named("photos"),
		now:        time.Now,
	}
}

// Upload stores the file, records the photo and starts OCR in the
// background. The response does not wait for recognition.
func (s *PhotoService) Upload(ctx context.Context, caseID string, file *FileUpload) (*PhotoUploadResult, error) {
	if file == nil || strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("File and caseId are required")
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("Case not found")
	}

	photoID := uuid.NewString()
	fileName := photoID + "-" + blob.SanitizeName(file.Name)
	if err := s.blobs.Save(ctx, fileName, file.Data, file.ContentType); err != nil {
		return nil, fmt.Errorf("store photo failed: %w", err)
	}

	order, err := s.photos.NextDisplayOrder(ctx, caseID)
	if err != nil {
		return nil, err
	}

	originalName := file.Name
	if originalName == "" {
		originalName = "file"
	}
	now := s.now()
	photo := &model.Photo{
		ID:           photoID,
		CaseID:       caseID,
		FileName:     fileName,
		OriginalName: originalName,
		FileType:     file.ContentType,
		FileSize:     int64(len(file.Data)),
		FilePath:     "/uploads/" + fileName,
		DisplayOrder: order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, err
	}
	s.invalidate(ctx, caseID)

	job := ocr.Job{
		PhotoID:     photoID,
		CaseID:      caseID,
		StoredName:  fileName,
		ContentType: file.ContentType,
		Data:        file.Data,
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.logger.Error("dispatch ocr job failed", zap.String("photo_id", photoID), zap.Error(err))
	}

	s.logger.Info("photo uploaded",
		zap.String("photo_id", photoID),
		zap.String("case_id", caseID),
		zap.Int("display_order", order),
		zap.Int64("size", photo.FileSize),
	)
	return &PhotoUploadResult{
		Success: true,
		PhotoID: photoID,
		Message: "Photo uploaded, OCR processing started",
	}, nil
}

// OCRStatus reports recognition progress; a photo without a result is
// pending.
func (s *PhotoService) OCRStatus(ctx context.Context, photoID string) (*OCRStatus, error) {
	r, err := s.results.GetByPhotoID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &OCRStatus{Status: model.OCRStatusPending, Progress: 0}, nil
	}

	progress := 0
	switch r.ProcessingStatus {
	case model.OCRStatusCompleted:
		progress = 100
	case model.OCRStatusProcessing:
		progress = 50
	}
	confidence := r.ConfidenceScore
	return &OCRStatus{
		Status:           r.ProcessingStatus,
		Progress:         progress,
		ExtractedText:    r.RawText,
		ExtractedDates:   nonNilStrings(r.ExtractedDates),
		ExtractedNumbers: nonNilStrings(r.ExtractedNumbers),
		ExtractedNames:   nonNilStrings(r.ExtractedNames),
		ExtractedAmounts: nonNilStrings(r.ExtractedAmounts),
		Confidence:       &confidence,
		Error:            r.ErrorMessage,
	}, nil
}

func (s *PhotoService) OCRDetails(ctx context.Context, photoID string) (*OCRDetails, error) {
	photo, err := s.photo(ctx, photoID)
	if err != nil {
		return nil, err
	}
	r, err := s.results.GetByPhotoID(ctx, photoID)
	if err != nil {
		return nil, err
	}

	out := &OCRDetails{ID: photo.ID, OriginalName: photo.OriginalName}
	if r != nil {
		status := r.ProcessingStatus
		confidence := r.ConfidenceScore
		out.RawText = r.RawText
		out.ExtractedDates = nonNilStrings(r.ExtractedDates)
		out.ExtractedNumbers = nonNilStrings(r.ExtractedNumbers)
		out.ExtractedNames = nonNilStrings(r.ExtractedNames)
		out.ExtractedAmounts = nonNilStrings(r.ExtractedAmounts)
		out.ConfidenceScore = &confidence
		out.ProcessingStatus = &status
	}
	return out, nil
}

// View returns the stored binary, or an SVG placeholder describing the photo
// when the binary is gone.
func (s *PhotoService) View(ctx context.Context, photoID string) (*Content, error) {
	photo, err := s.photo(ctx, photoID)
	if err != nil {
		return nil, err
	}

	data, err := blob.ReadAll(ctx, s.blobs, photo.FileName)
	if err == nil {
		return &Content{Name: photo.OriginalName, ContentType: photo.FileType, Data: data}, nil
	}
	if !errors.Is(err, blob.ErrNotFound) {
		return nil, err
	}

	s.logger.Warn("photo file missing, serving placeholder", zap.String("photo_id", photoID), zap.String("key", photo.FileName))
	return &Content{
		Name:        photo.OriginalName,
		ContentType: "image/svg+xml",
		Data:        []byte(placeholderSVG(photo)),
	}, nil
}

func (s *PhotoService) AddComment(ctx context.Context, photoID string, in CommentInput) (*model.PhotoComment, error) {
	if strings.TrimSpace(in.CommentText) == "" {
		return nil, apperr.Validation("comment_text is required")
	}
	photo, err := s.photo(ctx, photoID)
	if err != nil {
		return nil, err
	}

	author := in.AuthorName
	if author == "" {
		author = defaultCommentAuthor
	}
	now := s.now()
	comment := &model.PhotoComment{
		ID:          uuid.NewString(),
		PhotoID:     photo.ID,
		CaseID:      photo.CaseID,
		CommentText: in.CommentText,
		AuthorName:  author,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *PhotoService) ListComments(ctx context.Context, photoID string) ([]model.PhotoComment, error) {
	if _, err := s.photo(ctx, photoID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPhotoID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.PhotoComment{}
	}
	return comments, nil
}

func (s *PhotoService) photo(ctx context.Context, photoID string) (*model.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, apperr.NotFound("Photo not found")
	}
	return photo, nil
}

func (s *PhotoService) invalidate(ctx context.Context, caseID string) {
	if err := s.contexts.Invalidate(ctx, caseID); err != nil {
		s.logger.Warn("invalidate case context failed", zap.String("case_id", caseID), zap.Error(err))
	}
}

func placeholderSVG(p *model.Photo) string {
	return fmt.Sprintf(`<svg width="400" height="300" xmlns="http://www.w3.org/2000/svg">
  <rect width="400" height="300" fill="#ef4444"/>
  <rect x="50" y="50" width="300" height="200" fill="white" rx="10"/>
  <text x="200" y="120" text-anchor="middle" font-family="Arial, sans-serif" font-size="14" fill="#374151">%s</text>
  <text x="200" y="140" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" fill="#6b7280">%.1f KB</text>
  <text x="200" y="160" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" fill="#6b7280">%s</text>
  <text x="200" y="180" text-anchor="middle" font-family="Arial, sans-serif" font-size="10" fill="#ef4444">Файл не найден на диске</text>
  <circle cx="200" cy="200" r="20" fill="#ef4444"/>
</svg>`,
		html.EscapeString(p.OriginalName),
		float64(p.FileSize)/1024,
		p.CreatedAt.Format("02.01.2006"),
	)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
