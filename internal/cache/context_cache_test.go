package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"legaldesk/internal/apperr"
	"legaldesk/internal/metrics"
	"legaldesk/internal/model"
	"legaldesk/internal/repository"
	"legaldesk/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	cache   *ContextCache
	ocr     *repository.OCRRepository
	entries *repository.ContextCacheRepository
	metrics *metrics.Metrics
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		db:      db,
		ocr:     repository.NewOCRRepository(db),
		entries: repository.NewContextCacheRepository(db),
		metrics: m,
		clock:   time.Now(),
	}
	f.cache = NewContextCache(
		repository.NewCaseRepository(db),
		repository.NewPhotoRepository(db),
		f.ocr,
		f.entries,
		time.Hour,
		m,
	)
	f.cache.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) lookups(result string) float64 {
	return promtest.ToFloat64(f.metrics.ContextLookups.WithLabelValues(result))
}

func TestContextCache_BuildsAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := testutil.SeedCase(t, f.db, "Наследство")
	second := testutil.SeedPhoto(t, f.db, c.ID, 2)
	first := testutil.SeedPhoto(t, f.db, c.ID, 1)
	pending := testutil.SeedPhoto(t, f.db, c.ID, 3)

	require.NoError(t, f.ocr.BeginProcessing(ctx, first.ID, c.ID))
	require.NoError(t, f.ocr.Complete(ctx, first.ID, "Дело № 55/10 от 01.02.2023", repository.OCRFields{
		Dates:   []string{"01.02.2023"},
		Numbers: []string{"№ 55/10", "Дело № 55/10"},
	}, 0.9))
	require.NoError(t, f.ocr.BeginProcessing(ctx, second.ID, c.ID))
	require.NoError(t, f.ocr.Complete(ctx, second.ID, "повторно 01.02.2023", repository.OCRFields{
		Dates: []string{"01.02.2023", "03.04.2024"},
	}, 0.9))
	require.NoError(t, f.ocr.BeginProcessing(ctx, pending.ID, c.ID))

	got, err := f.cache.Get(ctx, c.ID)
	require.NoError(t, err)

	require.Len(t, got.Photos, 3)
	assert.Equal(t, first.ID, got.Photos[0].ID)
	assert.Equal(t, second.ID, got.Photos[1].ID)
	assert.Nil(t, got.Photos[2].RawText)
	require.NotNil(t, got.Photos[2].ProcessingStatus)
	assert.Equal(t, model.OCRStatusProcessing, *got.Photos[2].ProcessingStatus)

	assert.Equal(t, 3, got.Summary.TotalPhotos)
	assert.Equal(t, 2, got.Summary.ProcessedPhotos)
	assert.Equal(t, []string{"01.02.2023", "03.04.2024"}, got.Summary.ExtractedDates)
	assert.Equal(t, []string{"№ 55/10", "Дело № 55/10"}, got.Summary.ExtractedNumbers)
	assert.Equal(t, []string{}, got.Summary.ExtractedNames)

	entry, err := f.entries.GetByCaseID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1.0, f.lookups(metrics.LookupMiss))
}

func TestContextCache_PhotoWithoutOCRHasNullFields(t *testing.T) {
	f := newFixture(t)
	c := testutil.SeedCase(t, f.db, "Без OCR")
	testutil.SeedPhoto(t, f.db, c.ID, 1)

	got, err := f.cache.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, 1)
	assert.Nil(t, got.Photos[0].ExtractedDates)
	assert.Nil(t, got.Photos[0].ProcessingStatus)
	assert.Equal(t, 0, got.Summary.ProcessedPhotos)
}

func TestContextCache_FreshHitIsServedVerbatim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Кэш")

	stored := `{"case":{"id":"` + c.ID + `","title":"из кэша"},"photos":[],"summary":{"total_photos":42}}`
	require.NoError(t, f.entries.Upsert(ctx, c.ID, []byte(stored), f.clock.Add(-59*time.Minute)))

	got, err := f.cache.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "из кэша", got.Case.Title)
	assert.Equal(t, 42, got.Summary.TotalPhotos)
	assert.Equal(t, 1.0, f.lookups(metrics.LookupHit))
}

func TestContextCache_StaleEntryIsRebuilt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Свежее")

	stored := `{"case":{"id":"` + c.ID + `","title":"старое"},"photos":[],"summary":{}}`
	require.NoError(t, f.entries.Upsert(ctx, c.ID, []byte(stored), f.clock.Add(-61*time.Minute)))

	got, err := f.cache.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Свежее", got.Case.Title)
	assert.Equal(t, 1.0, f.lookups(metrics.LookupStale))

	entry, err := f.entries.GetByCaseID(ctx, c.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, f.clock, entry.LastUpdated, time.Second)
}

func TestContextCache_InvalidateForcesRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "До")

	_, err := f.cache.Get(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.Case{}).Where("id = ?", c.ID).Update("title", "После").Error)
	got, err := f.cache.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "До", got.Case.Title, "fresh entry hides direct writes")

	require.NoError(t, f.cache.Invalidate(ctx, c.ID))
	got, err = f.cache.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "После", got.Case.Title)
}

func TestContextCache_UnknownCase(t *testing.T) {
	f := newFixture(t)
	_, err := f.cache.Get(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestContextCache_WriteFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	c := testutil.SeedCase(t, f.db, "Без кэша")
	require.NoError(t, f.db.Migrator().DropTable(&model.CaseContextCache{}))

	got, err := f.cache.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.Case.ID)
}
