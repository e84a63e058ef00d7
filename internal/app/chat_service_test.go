package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"legaldesk/internal/ai"
	"legaldesk/internal/apperr"
	"legaldesk/internal/cache"
	"legaldesk/internal/model"
	"legaldesk/internal/repository"
	"legaldesk/internal/testutil"
)

type fakeGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	systems []string
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.systems = append(g.systems, system)
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type chatFixture struct {
	db        *gorm.DB
	service   *ChatService
	generator *fakeGenerator
	ocr       *repository.OCRRepository
}

func newChatFixture(t *testing.T, history HistoryCache) *chatFixture {
	t.Helper()
	db := testutil.NewDB(t)
	ocrRepo := repository.NewOCRRepository(db)
	contexts := cache.NewContextCache(
		repository.NewCaseRepository(db),
		repository.NewPhotoRepository(db),
		ocrRepo,
		repository.NewContextCacheRepository(db),
		time.Hour,
		nil,
	)
	gen := &fakeGenerator{answer: "Рекомендую подать иск."}
	svc := NewChatService(
		repository.NewSessionRepository(db),
		repository.NewMessageRepository(db),
		contexts,
		gen,
		history,
		10,
		nil,
	)
	return &chatFixture{db: db, service: svc, generator: gen, ocr: ocrRepo}
}

func TestChatService_SendMessageWithoutDocuments(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Развод")

	res, err := f.service.SendMessage(ctx, c.ID, "  Какие шансы?  ")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Рекомендую подать иск.", res.Response)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 0, res.ContextUsed.PhotosCount)
	assert.Equal(t, 0, res.ContextUsed.ProcessedPhotos)
	assert.Equal(t, summaryNoDocuments, res.ContextUsed.DocumentSummary)

	prompt := f.generator.lastPrompt()
	assert.Contains(t, prompt, "ДОКУМЕНТЫ (0 шт.)")
	assert.Contains(t, prompt, "- Название: Развод")
	assert.Contains(t, prompt, "- Даты: Не найдены")
	assert.Contains(t, prompt, "ВОПРОС ПОЛЬЗОВАТЕЛЯ: Какие шансы?")
	assert.NotContains(t, prompt, "ИСТОРИЯ ДИАЛОГА")
	assert.Equal(t, systemInstruction, f.generator.systems[0])

	history, err := f.service.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.MessageTypeUser, history[0].MessageType)
	assert.Equal(t, "Какие шансы?", history[0].MessageText)
	assert.Equal(t, model.MessageTypeAI, history[1].MessageType)
	assert.True(t, history[1].CreatedAt.After(history[0].CreatedAt))
	assert.NotEmpty(t, history[0].SessionName)
}

func TestChatService_ReusesSessionAndCarriesHistory(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Наследство")

	first, err := f.service.SendMessage(ctx, c.ID, "первый вопрос")
	require.NoError(t, err)
	second, err := f.service.SendMessage(ctx, c.ID, "второй вопрос")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	prompt := f.generator.lastPrompt()
	assert.Contains(t, prompt, "ИСТОРИЯ ДИАЛОГА:\nuser: первый вопрос\nai: Рекомендую подать иск.\n")

	sessions, err := f.service.Sessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestChatService_CloseSessionStartsNewOne(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Аренда")

	first, err := f.service.SendMessage(ctx, c.ID, "вопрос")
	require.NoError(t, err)

	closed, err := f.service.CloseSession(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, closed)

	second, err := f.service.SendMessage(ctx, c.ID, "новый вопрос")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.NotContains(t, f.generator.lastPrompt(), "ИСТОРИЯ ДИАЛОГА")

	sessions, err := f.service.Sessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestChatService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty message", func(t *testing.T) {
		f := newChatFixture(t, nil)
		_, err := f.service.SendMessage(ctx, "case", "   ")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, "message is required", apperr.Message(err))
	})

	t.Run("orchestrate without case", func(t *testing.T) {
		f := newChatFixture(t, nil)
		_, err := f.service.Orchestrate(ctx, "", "", "вопрос")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Empty(t, f.generator.prompts)
	})

	t.Run("unknown case", func(t *testing.T) {
		f := newChatFixture(t, nil)
		_, err := f.service.SendMessage(ctx, "missing", "вопрос")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("missing credentials", func(t *testing.T) {
		f := newChatFixture(t, nil)
		f.generator.err = ai.ErrMissingCredentials
		c := testutil.SeedCase(t, f.db, "Кредит")

		_, err := f.service.SendMessage(ctx, c.ID, "вопрос")
		assert.True(t, apperr.Is(err, apperr.KindUpstream))
		assert.Equal(t, "AI API key not configured", apperr.Message(err))

		history, err := f.service.History(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newChatFixture(t, nil)
		f.generator.err = errors.New("boom")
		c := testutil.SeedCase(t, f.db, "Кредит")

		_, err := f.service.SendMessage(ctx, c.ID, "вопрос")
		assert.True(t, apperr.Is(err, apperr.KindUpstream))
		assert.Contains(t, apperr.Message(err), "AI chat failed")
	})
}

func TestChatService_PromptIncludesDocuments(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Трудовой спор")

	p := testutil.SeedPhoto(t, f.db, c.ID, 1)
	require.NoError(t, f.db.Model(&model.Photo{}).Where("id = ?", p.ID).
		Update("original_name", "Договор аренды.jpg").Error)
	testutil.SeedPhoto(t, f.db, c.ID, 2)

	require.NoError(t, f.ocr.BeginProcessing(ctx, p.ID, c.ID))
	require.NoError(t, f.ocr.Complete(ctx, p.ID, "ДОГОВОР № 12\n\nот 01.02.2023\nсумма 5000 руб.\nещё строка",
		repository.OCRFields{Dates: []string{"01.02.2023"}, Amounts: []string{"5000 руб."}}, 0.9))

	res, err := f.service.SendMessage(ctx, c.ID, "что в договоре?")
	require.NoError(t, err)

	assert.Equal(t, 2, res.ContextUsed.PhotosCount)
	assert.Equal(t, 1, res.ContextUsed.ProcessedPhotos)
	assert.Equal(t, []string{"01.02.2023"}, res.ContextUsed.ExtractedData.ExtractedDates)
	assert.Contains(t, res.ContextUsed.DocumentSummary, "Загружено 2 документов (1 обработано):")
	assert.Contains(t, res.ContextUsed.DocumentSummary, "Договоры (1 шт.):")
	assert.Contains(t, res.ContextUsed.DocumentSummary, "ДОГОВОР № 12 | от 01.02.2023 | сумма 5000 руб.")

	prompt := f.generator.lastPrompt()
	assert.Contains(t, prompt, "ДОКУМЕНТЫ (2 шт.)")
	assert.Contains(t, prompt, "   - Статус OCR: Обработан")
	assert.Contains(t, prompt, "   - Статус OCR: Не обработан")
	assert.Contains(t, prompt, "- Суммы: 5000 руб.")
	assert.Contains(t, prompt, "- Имена: Не найдены")
}

func TestDocumentSummary(t *testing.T) {
	text := "строка"
	photos := []cache.PhotoContext{
		{Photo: model.Photo{OriginalName: "Паспорт.png"}, RawText: &text},
		{Photo: model.Photo{OriginalName: "scan.jpg"}, RawText: &text},
		{Photo: model.Photo{OriginalName: "повестка в суд.jpg"}, RawText: &text},
		{Photo: model.Photo{OriginalName: "справка о доходах.pdf"}},
	}

	assert.Equal(t, summaryNoDocuments, documentSummary(nil))
	assert.Equal(t, summaryNotReady, documentSummary(photos[3:]))

	out := documentSummary(photos)
	assert.True(t, strings.HasPrefix(out, "Загружено 4 документов (3 обработано):"))
	idCards := strings.Index(out, "Удостоверения личности (1 шт.)")
	other := strings.Index(out, "Документ (1 шт.)")
	court := strings.Index(out, "Судебные документы (1 шт.)")
	require.True(t, idCards >= 0 && other >= 0 && court >= 0, out)
	assert.Less(t, idCards, other)
	assert.Less(t, other, court)
	assert.NotContains(t, out, "Справки о доходах")
}

func TestKeyInfo(t *testing.T) {
	empty := "  \n "
	text := "a\n\nb\nc\nd"
	assert.Equal(t, keyInfoNoData, keyInfo(nil))
	assert.Equal(t, keyInfoNoData, keyInfo(&empty))
	assert.Equal(t, "a | b | c", keyInfo(&text))
}

func TestChatService_HistoryCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	history := cache.NewSessionHistory(client, 10, time.Minute, 5*time.Second)

	f := newChatFixture(t, history)
	ctx := context.Background()
	c := testutil.SeedCase(t, f.db, "Ипотека")

	first, err := f.service.SendMessage(ctx, c.ID, "первый")
	require.NoError(t, err)

	dirty, err := history.Dirty(ctx, first.SessionID)
	require.NoError(t, err)
	assert.True(t, dirty)

	mr.FastForward(6 * time.Second)
	_, err = f.service.SendMessage(ctx, c.ID, "второй")
	require.NoError(t, err)
	assert.Contains(t, f.generator.lastPrompt(), "user: первый")

	mr.FastForward(6 * time.Second)
	_, err = f.service.Orchestrate(ctx, c.ID, first.SessionID, "третий")
	require.NoError(t, err)

	cached, hit, err := history.Recent(ctx, first.SessionID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Len(t, cached, 4)
	assert.Contains(t, f.generator.lastPrompt(), "user: второй")
}
