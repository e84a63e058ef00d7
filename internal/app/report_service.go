package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"legaldesk/internal/apperr"
	"legaldesk/internal/model"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/report"
	"legaldesk/internal/repository"
)

// PDFRenderer turns a case and its transcriptions into a PDF document.
type PDFRenderer interface {
	Render(c *model.Case, docs []report.Document) ([]byte, error)
}

type ReportService struct {
	cases    *repository.CaseRepository
	photos   *repository.PhotoRepository
	results  *repository.OCRRepository
	renderer PDFRenderer
	logger   *zap.Logger
}

func NewReportService(
	cases *repository.CaseRepository,
	photos *repository.PhotoRepository,
	results *repository.OCRRepository,
	renderer PDFRenderer,
) *ReportService {
	return &ReportService{
		cases:    cases,
		photos:   photos,
		results:  results,
		renderer: renderer,
		logger:   logger.Named("report"),
	}
}

// TranscriptionPDF renders every recognised photo of the case in display
// order.
func (s *ReportService) TranscriptionPDF(ctx context.Context, caseID string) (*Content, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("Case not found")
	}

	photos, err := s.photos.ListByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	results, err := s.results.ListByPhotoIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byPhoto := make(map[string]model.OCRResult, len(results))
	for _, r := range results {
		byPhoto[r.PhotoID] = r
	}

	var docs []report.Document
	for _, p := range photos {
		r, ok := byPhoto[p.ID]
		if !ok || r.RawText == nil {
			continue
		}
		docs = append(docs, report.Document{
			OriginalName: p.OriginalName,
			UploadedAt:   p.CreatedAt,
			Confidence:   r.ConfidenceScore,
			Text:         *r.RawText,
			Dates:        r.ExtractedDates,
			Numbers:      r.ExtractedNumbers,
			Names:        r.ExtractedNames,
			Amounts:      r.ExtractedAmounts,
		})
	}
	if len(docs) == 0 {
		return nil, apperr.NotFound("No OCR results found for this case")
	}

	data, err := s.renderer.Render(c, docs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info("transcription pdf rendered", zap.String("case_id", caseID), zap.Int("documents", len(docs)), zap.Int("bytes", len(data)))
	return &Content{
		Name:        report.FileName(c),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
