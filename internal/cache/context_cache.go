package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"legaldesk/internal/apperr"
	"legaldesk/internal/extract"
	"legaldesk/internal/metrics"
	"legaldesk/internal/model"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/repository"
)

// DefaultFreshness is how long a stored aggregate is served without a
// rebuild.
const DefaultFreshness = time.Hour

// CaseContext is the per-case read model served to the UI and the chat
// prompt.
type CaseContext struct {
	Case    *model.Case    `json:"case"`
	Photos  []PhotoContext `json:"photos"`
	Summary Summary        `json:"summary"`
}

// PhotoContext is a photo with its OCR result; the OCR fields are null when
// the photo has no result row.
type PhotoContext struct {
	model.Photo
	RawText          *string  `json:"raw_text"`
	ExtractedDates   []string `json:"extracted_dates"`
	ExtractedNumbers []string `json:"extracted_numbers"`
	ExtractedNames   []string `json:"extracted_names"`
	ExtractedAmounts []string `json:"extracted_amounts"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	ProcessingStatus *string  `json:"processing_status"`
}

type Summary struct {
	TotalPhotos      int      `json:"total_photos"`
	ProcessedPhotos  int      `json:"processed_photos"`
	ExtractedDates   []string `json:"extracted_dates"`
	ExtractedNumbers []string `json:"extracted_numbers"`
	ExtractedNames   []string `json:"extracted_names"`
	ExtractedAmounts []string `json:"extracted_amounts"`
}

// ContextCache serves CaseContext from case_context_cache while the entry is
// younger than the freshness window and rebuilds it from storage otherwise.
type ContextCache struct {
	cases     *repository.CaseRepository
	photos    *repository.PhotoRepository
	ocr       *repository.OCRRepository
	entries   *repository.ContextCacheRepository
	freshness time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now func() time.Time
}

func NewContextCache(
	cases *repository.CaseRepository,
	photos *repository.PhotoRepository,
	ocr *repository.OCRRepository,
	entries *repository.ContextCacheRepository,
	freshness time.Duration,
	m *metrics.Metrics,
) *ContextCache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &ContextCache{
		cases:     cases,
		photos:    photos,
		ocr:       ocr,
		entries:   entries,
		freshness: freshness,
		metrics:   m,
		logger:    logger.Named("context_cache"),
		now:       time.Now,
	}
}

// Get returns the case aggregate. It fails with a NotFound error when the
// case does not exist.
func (c *ContextCache) Get(ctx context.Context, caseID string) (*CaseContext, error) {
	if cached := c.lookup(ctx, caseID); cached != nil {
		return cached, nil
	}

	built, err := c.build(ctx, caseID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(built)
	if err != nil {
		c.logger.Warn("marshal case context failed", zap.String("case_id", caseID), zap.Error(err))
		return built, nil
	}
	if err := c.entries.Upsert(ctx, caseID, payload, c.now()); err != nil {
		c.logger.Warn("write case context failed", zap.String("case_id", caseID), zap.Error(err))
	}
	return built, nil
}

// Invalidate drops the stored aggregate so the next Get rebuilds it.
func (c *ContextCache) Invalidate(ctx context.Context, caseID string) error {
	if err := c.entries.DeleteByCaseID(ctx, caseID); err != nil {
		return err
	}
	c.logger.Debug("case context invalidated", zap.String("case_id", caseID))
	return nil
}

func (c *ContextCache) lookup(ctx context.Context, caseID string) *CaseContext {
	entry, err := c.entries.GetByCaseID(ctx, caseID)
	if err != nil {
		c.logger.Warn("read case context failed", zap.String("case_id", caseID), zap.Error(err))
		c.metrics.RecordContextLookup(metrics.LookupMiss)
		return nil
	}
	if entry == nil {
		c.metrics.RecordContextLookup(metrics.LookupMiss)
		return nil
	}
	if c.now().Sub(entry.LastUpdated) >= c.freshness {
		c.metrics.RecordContextLookup(metrics.LookupStale)
		return nil
	}

	var cached CaseContext
	if err := json.Unmarshal(entry.ContextData, &cached); err != nil || cached.Case == nil {
		c.logger.Warn("discarding unreadable case context", zap.String("case_id", caseID), zap.Error(err))
		c.metrics.RecordContextLookup(metrics.LookupMiss)
		return nil
	}
	c.metrics.RecordContextLookup(metrics.LookupHit)
	return &cached
}

func (c *ContextCache) build(ctx context.Context, caseID string) (*CaseContext, error) {
	caseRow, err := c.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if caseRow == nil {
		return nil, apperr.NotFound("Case not found")
	}

	photos, err := c.photos.ListByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	results, err := c.ocr.ListByPhotoIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byPhoto := make(map[string]model.OCRResult, len(results))
	for _, r := range results {
		byPhoto[r.PhotoID] = r
	}

	out := &CaseContext{
		Case:   caseRow,
		Photos: make([]PhotoContext, 0, len(photos)),
		Summary: Summary{
			TotalPhotos:      len(photos),
			ExtractedDates:   []string{},
			ExtractedNumbers: []string{},
			ExtractedNames:   []string{},
			ExtractedAmounts: []string{},
		},
	}

	for _, p := range photos {
		pc := PhotoContext{Photo: p}
		if r, ok := byPhoto[p.ID]; ok {
			status := r.ProcessingStatus
			confidence := r.ConfidenceScore
			pc.RawText = r.RawText
			pc.ExtractedDates = nonNil(r.ExtractedDates)
			pc.ExtractedNumbers = nonNil(r.ExtractedNumbers)
			pc.ExtractedNames = nonNil(r.ExtractedNames)
			pc.ExtractedAmounts = nonNil(r.ExtractedAmounts)
			pc.ConfidenceScore = &confidence
			pc.ProcessingStatus = &status

			s := &out.Summary
			s.ExtractedDates = extract.Merge(s.ExtractedDates, pc.ExtractedDates)
			s.ExtractedNumbers = extract.Merge(s.ExtractedNumbers, pc.ExtractedNumbers)
			s.ExtractedNames = extract.Merge(s.ExtractedNames, pc.ExtractedNames)
			s.ExtractedAmounts = extract.Merge(s.ExtractedAmounts, pc.ExtractedAmounts)
		}
		if pc.RawText != nil {
			out.Summary.ProcessedPhotos++
		}
		out.Photos = append(out.Photos, pc)
	}
	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
