package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"

	"legaldesk/internal/ai"
	"legaldesk/internal/blob"
	"legaldesk/internal/model"
	"legaldesk/internal/repository"
	"legaldesk/internal/testutil"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	text     string
	err      error
	panicMsg string
	calls    int
	lastMime string
	lastSize int
}

func (f *fakeRecognizer) DetectText(_ context.Context, image []byte, mimeType string) (*ai.Recognition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMime = mimeType
	f.lastSize = len(image)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Recognition{Text: f.text, Confidence: ai.RecognitionConfidence}, nil
}

type recognizerFunc func(ctx context.Context, image []byte, mimeType string) (*ai.Recognition, error)

func (f recognizerFunc) DetectText(ctx context.Context, image []byte, mimeType string) (*ai.Recognition, error) {
	return f(ctx, image, mimeType)
}

type recordingInvalidator struct {
	mu    sync.Mutex
	cases []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, caseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases = append(r.cases, caseID)
	return nil
}

type runnerFixture struct {
	runner      *Runner
	results     *repository.OCRRepository
	recognizer  *fakeRecognizer
	invalidator *recordingInvalidator
	blobs       *blob.LocalStore
	db          *gorm.DB
	caseID      string
	photoID     string
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	db := testutil.NewDB(t)
	c := testutil.SeedCase(t, db, "OCR")
	p := testutil.SeedPhoto(t, db, c.ID, 1)

	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	f := &runnerFixture{
		results:     repository.NewOCRRepository(db),
		recognizer:  &fakeRecognizer{},
		invalidator: &recordingInvalidator{},
		blobs:       store,
		db:          db,
		caseID:      c.ID,
		photoID:     p.ID,
	}
	f.runner = NewRunner(f.results, f.recognizer, store, f.invalidator, 64, nil)
	return f
}

func (f *runnerFixture) result(t *testing.T) *model.OCRResult {
	t.Helper()
	got, err := f.results.GetByPhotoID(context.Background(), f.photoID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func (f *runnerFixture) job(data []byte, contentType string) Job {
	return Job{PhotoID: f.photoID, CaseID: f.caseID, StoredName: f.photoID + "-scan.jpg", ContentType: contentType, Data: data}
}

func TestRunner_CaseDeletedBeforeStart(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.text = "Дело № 1"
	ctx := context.Background()

	deleted, err := repository.NewCaseRepository(f.db).DeleteCascade(ctx, f.caseID)
	require.NoError(t, err)
	require.True(t, deleted)

	f.runner.Run(ctx, f.job([]byte("jpeg-bytes"), "image/jpeg"))

	var left int64
	require.NoError(t, f.db.Model(&model.OCRResult{}).Where("case_id = ?", f.caseID).Count(&left).Error)
	assert.Zero(t, left)
	assert.Zero(t, f.recognizer.calls)
	assert.Empty(t, f.invalidator.cases)
}

func TestRunner_CaseDeletedDuringRecognition(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.text = "Дело № 1"
	ctx := context.Background()
	cases := repository.NewCaseRepository(f.db)

	f.runner.recognizer = recognizerFunc(func(ctx context.Context, image []byte, mimeType string) (*ai.Recognition, error) {
		_, err := cases.DeleteCascade(ctx, f.caseID)
		require.NoError(t, err)
		return f.recognizer.DetectText(ctx, image, mimeType)
	})

	f.runner.Run(ctx, f.job([]byte("jpeg-bytes"), "image/jpeg"))

	var left int64
	require.NoError(t, f.db.Model(&model.OCRResult{}).Where("case_id = ?", f.caseID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestRunner_Success(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.text = "Дело № 55/10 от 01.02.2023"

	f.runner.Run(context.Background(), f.job([]byte("jpeg-bytes"), "image/jpeg"))

	got := f.result(t)
	assert.Equal(t, model.OCRStatusCompleted, got.ProcessingStatus)
	require.NotNil(t, got.RawText)
	assert.Equal(t, "Дело № 55/10 от 01.02.2023", *got.RawText)
	assert.Equal(t, []string{"01.02.2023"}, []string(got.ExtractedDates))
	assert.Contains(t, []string(got.ExtractedNumbers), "№ 55/10")
	assert.Contains(t, []string(got.ExtractedNumbers), "Дело № 55/10")
	assert.InDelta(t, 0.9, got.ConfidenceScore, 1e-9)
	assert.Nil(t, got.ErrorMessage)
	assert.Equal(t, []string{f.caseID}, f.invalidator.cases)
	assert.Equal(t, "image/jpeg", f.recognizer.lastMime)
}

func TestRunner_ProviderFailure(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.err = errors.New("quota exceeded")

	f.runner.Run(context.Background(), f.job([]byte("x"), "image/jpeg"))

	got := f.result(t)
	assert.Equal(t, model.OCRStatusFailed, got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "quota exceeded", *got.ErrorMessage)
	assert.Nil(t, got.RawText)
}

func TestRunner_MissingCredentials(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.err = ai.ErrMissingCredentials

	f.runner.Run(context.Background(), f.job([]byte("x"), "image/jpeg"))

	got := f.result(t)
	assert.Equal(t, model.OCRStatusFailed, got.ProcessingStatus)
	assert.Equal(t, "AI API key not configured", *got.ErrorMessage)
}

func TestRunner_PanicBecomesFailure(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.panicMsg = "decoder exploded"

	assert.NotPanics(t, func() {
		f.runner.Run(context.Background(), f.job([]byte("x"), "image/jpeg"))
	})
	got := f.result(t)
	assert.Equal(t, model.OCRStatusFailed, got.ProcessingStatus)
	assert.Contains(t, *got.ErrorMessage, "decoder exploded")
}

func TestRunner_RetryReusesRecord(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.err = errors.New("temporary")
	f.runner.Run(context.Background(), f.job([]byte("x"), "image/jpeg"))
	first := f.result(t)

	f.recognizer.err = nil
	f.recognizer.text = "готово"
	f.runner.Run(context.Background(), f.job([]byte("x"), "image/jpeg"))
	second := f.result(t)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.OCRStatusCompleted, second.ProcessingStatus)
	assert.Nil(t, second.ErrorMessage)
}

func TestRunner_LoadsQueuedJobFromBlobStore(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.text = "из файла"
	job := f.job(nil, "image/jpeg")
	require.NoError(t, f.blobs.Save(context.Background(), job.StoredName, []byte("stored"), "image/jpeg"))

	f.runner.Run(context.Background(), job)

	assert.Equal(t, model.OCRStatusCompleted, f.result(t).ProcessingStatus)
	assert.Equal(t, len("stored"), f.recognizer.lastSize)
}

func TestRunner_MissingBlobFails(t *testing.T) {
	f := newRunnerFixture(t)
	f.runner.Run(context.Background(), f.job(nil, "image/jpeg"))

	got := f.result(t)
	assert.Equal(t, model.OCRStatusFailed, got.ProcessingStatus)
	assert.Zero(t, f.recognizer.calls)
}

func TestRunner_PDFTextLayerSkipsProvider(t *testing.T) {
	f := newRunnerFixture(t)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Arial", "", 12)
	doc.Cell(40, 10, "Contract 12.03.2024")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	f.runner.Run(context.Background(), f.job(buf.Bytes(), "application/pdf"))

	got := f.result(t)
	assert.Equal(t, model.OCRStatusCompleted, got.ProcessingStatus)
	assert.InDelta(t, 1.0, got.ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"12.03.2024"}, []string(got.ExtractedDates))
	assert.Zero(t, f.recognizer.calls)
}

func TestRunner_DownscalesLargeImages(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.text = "ok"

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 256, 128))))

	f.runner.Run(context.Background(), f.job(buf.Bytes(), "image/png"))

	assert.Equal(t, "image/jpeg", f.recognizer.lastMime)
	assert.Equal(t, model.OCRStatusCompleted, f.result(t).ProcessingStatus)
}

func TestInProcessDispatcher(t *testing.T) {
	f := newRunnerFixture(t)
	f.recognizer.text = "фон"
	d := NewInProcessDispatcher(f.runner)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, f.job([]byte("x"), "image/jpeg")))
	cancel()
	d.Wait()

	assert.Equal(t, model.OCRStatusCompleted, f.result(t).ProcessingStatus)
}
