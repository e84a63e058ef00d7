// Package ocr runs text recognition for uploaded photos in the background
// and records the outcome on the photo's OCR result.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"legaldesk/internal/ai"
	"legaldesk/internal/blob"
	"legaldesk/internal/extract"
	"legaldesk/internal/metrics"
	"legaldesk/internal/pkg/imageprep"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/pkg/pdfextract"
	"legaldesk/internal/repository"
)

const (
	sourceTextLayer = "text_layer"
	sourceVision    = "vision"

	textLayerConfidence = 1.0
)

// Job identifies one uploaded file to recognise. Data travels only
// in-process; queued jobs reload it from the blob store.
type Job struct {
	PhotoID     string `json:"photo_id"`
	CaseID      string `json:"case_id"`
	StoredName  string `json:"stored_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Invalidator drops derived per-case state after an OCR result changes.
type Invalidator interface {
	Invalidate(ctx context.Context, caseID string) error
}

type Runner struct {
	results     *repository.OCRRepository
	recognizer  ai.Recognizer
	blobs       blob.Store
	invalidator Invalidator
	maxEdge     int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewRunner(
	results *repository.OCRRepository,
	recognizer ai.Recognizer,
	blobs blob.Store,
	invalidator Invalidator,
	maxEdge int,
	m *metrics.Metrics,
) *Runner {
	return &Runner{
		results:     results,
		recognizer:  recognizer,
		blobs:       blobs,
		invalidator: invalidator,
		maxEdge:     maxEdge,
		metrics:     m,
		logger:      logger.Named("ocr"),
	}
}

type recognition struct {
	text       string
	confidence float64
	source     string
}

// Run drives the result through processing to completed or failed. It never
// returns an error: storage failures are logged because the photo or case
// may have been deleted meanwhile.
func (r *Runner) Run(ctx context.Context, job Job) {
	log := r.logger.With(zap.String("photo_id", job.PhotoID), zap.String("case_id", job.CaseID))

	if err := r.results.BeginProcessing(ctx, job.PhotoID, job.CaseID); err != nil {
		if errors.Is(err, repository.ErrPhotoGone) {
			log.Info("photo deleted before ocr started, skipping")
			return
		}
		log.Error("start ocr processing failed", zap.Error(err))
		return
	}

	start := time.Now()
	rec, err := r.recognize(ctx, job)
	if err != nil {
		log.Warn("ocr failed", zap.Error(err))
		r.metrics.RecordOCR("failed", "", 0)
		if err := r.results.Fail(ctx, job.PhotoID, err.Error()); err != nil {
			log.Error("record ocr failure failed", zap.Error(err))
			return
		}
		r.invalidate(ctx, log, job.CaseID)
		return
	}

	fields := extract.Extract(rec.text)
	err = r.results.Complete(ctx, job.PhotoID, rec.text, repository.OCRFields{
		Dates:   fields.Dates,
		Numbers: fields.Numbers,
		Names:   fields.Names,
		Amounts: fields.Amounts,
	}, rec.confidence)
	if err != nil {
		log.Error("record ocr result failed", zap.Error(err))
		return
	}
	r.metrics.RecordOCR("completed", rec.source, time.Since(start))
	r.invalidate(ctx, log, job.CaseID)

	log.Info("ocr completed",
		zap.String("source", rec.source),
		zap.Int("text_len", len(rec.text)),
		zap.Int("dates", len(fields.Dates)),
		zap.Int("names", len(fields.Names)),
	)
}

func (r *Runner) invalidate(ctx context.Context, log *zap.Logger, caseID string) {
	if r.invalidator == nil {
		return
	}
	if err := r.invalidator.Invalidate(ctx, caseID); err != nil {
		log.Warn("invalidate case context failed", zap.Error(err))
	}
}

func (r *Runner) recognize(ctx context.Context, job Job) (rec recognition, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("ocr panic: %v", p)
		}
	}()

	data := job.Data
	if data == nil {
		if r.blobs == nil {
			return rec, errors.New("file content unavailable")
		}
		data, err = blob.ReadAll(ctx, r.blobs, job.StoredName)
		if err != nil {
			return rec, fmt.Errorf("load file failed: %w", err)
		}
	}
	if len(data) == 0 {
		return rec, errors.New("empty file")
	}

	mimeType := job.ContentType
	if pdfextract.IsPDF(data, job.ContentType) {
		text, pdfErr := pdfextract.ExtractText(data)
		if pdfErr == nil && strings.TrimSpace(text) != "" {
			return recognition{text: text, confidence: textLayerConfidence, source: sourceTextLayer}, nil
		}
		if pdfErr != nil {
			r.logger.Debug("pdf text layer unreadable", zap.String("photo_id", job.PhotoID), zap.Error(pdfErr))
		}
		mimeType = "application/pdf"
	} else {
		resized, changed, prepErr := imageprep.Downscale(data, r.maxEdge)
		switch {
		case prepErr != nil:
			r.logger.Debug("image left as uploaded", zap.String("photo_id", job.PhotoID), zap.Error(prepErr))
		case changed:
			data = resized
			mimeType = "image/jpeg"
		}
	}

	if r.recognizer == nil {
		return rec, ai.ErrMissingCredentials
	}
	out, err := r.recognizer.DetectText(ctx, data, mimeType)
	if err != nil {
		return rec, err
	}
	if out == nil {
		return rec, errors.New("no text detected")
	}
	return recognition{text: out.Text, confidence: out.Confidence, source: sourceVision}, nil
}
