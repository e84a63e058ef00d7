package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"legaldesk/internal/ai"
	"legaldesk/internal/apperr"
	"legaldesk/internal/cache"
	"legaldesk/internal/metrics"
	"legaldesk/internal/model"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/repository"
)

const defaultHistoryLimit = 10

// HistoryCache is the Redis-backed view of recent session messages.
type HistoryCache interface {
	Recent(ctx context.Context, sessionID string) ([]model.ChatMessage, bool, error)
	Store(ctx context.Context, sessionID string, messages []model.ChatMessage) error
	Invalidate(ctx context.Context, sessionID string) error
}

// ContextUsed is stored with both messages of a turn and returned to the
// client.
type ContextUsed struct {
	PhotosCount     int           `json:"photos_count"`
	ProcessedPhotos int           `json:"processed_photos"`
	ExtractedData   cache.Summary `json:"extracted_data"`
	DocumentSummary string        `json:"document_summary"`
}

type ChatReply struct {
	Response    string      `json:"response"`
	ContextUsed ContextUsed `json:"context_used"`
}

type SendMessageResult struct {
	Success     bool        `json:"success"`
	Response    string      `json:"response"`
	SessionID   string      `json:"session_id"`
	ContextUsed ContextUsed `json:"context_used"`
}

type ChatService struct {
	sessions     *repository.SessionRepository
	messages     *repository.MessageRepository
	contexts     *cache.ContextCache
	generator    ai.Generator
	historyCache HistoryCache
	historyLimit int
	metrics      *metrics.Metrics
	logger       *zap.Logger

	now func() time.Time
}

func NewChatService(
	sessions *repository.SessionRepository,
	messages *repository.MessageRepository,
	contexts *cache.ContextCache,
	generator ai.Generator,
	historyCache HistoryCache,
	historyLimit int,
	m *metrics.Metrics,
) *ChatService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &ChatService{
		sessions:     sessions,
		messages:     messages,
		contexts:     contexts,
		generator:    generator,
		historyCache: historyCache,
		historyLimit: historyLimit,
		metrics:      m,
		logger:       logger.Named("chat"),
		now:          time.Now,
	}
}

// Orchestrate answers message within the session using the case context and
// the recent session history. It does not persist anything.
func (s *ChatService) Orchestrate(ctx context.Context, caseID, sessionID, message string) (*ChatReply, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required for AI chat")
	}

	cc, err := s.contexts.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	history, err := s.recentHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := documentSummary(cc.Photos)
	prompt := staticPrompt(cc, summary) + "\n\n" + dynamicPrompt(history, message)

	s.logger.Debug("chat context",
		zap.String("case_id", caseID),
		zap.Int("photos", cc.Summary.TotalPhotos),
		zap.Int("processed", cc.Summary.ProcessedPhotos),
		zap.Int("history", len(history)),
	)

	if s.generator == nil {
		s.metrics.RecordChat("error")
		return nil, apperr.Upstream(ai.ErrMissingCredentials.Error(), nil)
	}
	answer, err := s.generator.Generate(ctx, systemInstruction, prompt)
	if err != nil {
		s.metrics.RecordChat("error")
		if errors.Is(err, ai.ErrMissingCredentials) {
			return nil, apperr.Upstream(ai.ErrMissingCredentials.Error(), nil)
		}
		return nil, apperr.Upstream("AI chat failed", err)
	}
	s.metrics.RecordChat("ok")

	return &ChatReply{
		Response: answer,
		ContextUsed: ContextUsed{
			PhotosCount:     cc.Summary.TotalPhotos,
			ProcessedPhotos: cc.Summary.ProcessedPhotos,
			ExtractedData:   cc.Summary,
			DocumentSummary: summary,
		},
	}, nil
}

// SendMessage runs one chat turn on the case's active session and stores the
// question and the answer.
func (s *ChatService) SendMessage(ctx context.Context, caseID, message string) (*SendMessageResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}

	session, err := s.sessions.GetOrCreateActive(ctx, caseID, s.sessionName())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.NotFound("Case not found")
	}

	reply, err := s.Orchestrate(ctx, caseID, session.ID, message)
	if err != nil {
		return nil, err
	}

	contextJSON, err := json.Marshal(reply.ContextUsed)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("marshal context_used failed: %w", err))
	}

	askedAt := s.now()
	answeredAt := s.now()
	if !answeredAt.After(askedAt) {
		answeredAt = askedAt.Add(time.Millisecond)
	}
	turn := []model.ChatMessage{
		{
			ID:          uuid.NewString(),
			SessionID:   session.ID,
			CaseID:      caseID,
			MessageType: model.MessageTypeUser,
			MessageText: message,
			ContextUsed: datatypes.JSON(contextJSON),
			CreatedAt:   askedAt,
		},
		{
			ID:          uuid.NewString(),
			SessionID:   session.ID,
			CaseID:      caseID,
			MessageType: model.MessageTypeAI,
			MessageText: reply.Response,
			ContextUsed: datatypes.JSON(contextJSON),
			CreatedAt:   answeredAt,
		},
	}

	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, session.ID); err != nil {
			s.logger.Warn("invalidate session history failed", zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	if err := s.messages.CreateBatch(ctx, turn); err != nil {
		return nil, err
	}

	return &SendMessageResult{
		Success:     true,
		Response:    reply.Response,
		SessionID:   session.ID,
		ContextUsed: reply.ContextUsed,
	}, nil
}

// History returns every message of the case with its session name, oldest
// first.
func (s *ChatService) History(ctx context.Context, caseID string) ([]repository.CaseMessage, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	messages, err := s.messages.ListByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []repository.CaseMessage{}
	}
	return messages, nil
}

func (s *ChatService) Sessions(ctx context.Context, caseID string) ([]model.ChatSession, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperr.Validation("Case ID is required")
	}
	sessions, err := s.sessions.ListByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	return sessions, nil
}

// CloseSession ends the active session so the next message opens a new one.
func (s *ChatService) CloseSession(ctx context.Context, caseID string) (bool, error) {
	if strings.TrimSpace(caseID) == "" {
		return false, apperr.Validation("Case ID is required")
	}
	return s.sessions.CloseActive(ctx, caseID)
}

func (s *ChatService) recentHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	if sessionID == "" {
		return nil, nil
	}

	if s.historyCache != nil {
		if cached, hit, err := s.historyCache.Recent(ctx, sessionID); err == nil && hit {
			return trimMessages(cached, s.historyLimit), nil
		}
	}

	messages, err := s.messages.ListRecentBySessionID(ctx, sessionID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.Store(ctx, sessionID, messages); err != nil {
			s.logger.Debug("cache history failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return messages, nil
}

func (s *ChatService) sessionName() string {
	return "Сессия " + s.now().Format("02.01.2006 15:04")
}

func trimMessages(messages []model.ChatMessage, limit int) []model.ChatMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
