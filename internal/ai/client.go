// Package ai talks to an OpenAI-compatible provider for chat generation and
// for text recognition on document images.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"legaldesk/internal/pkg/logger"
)

// ErrMissingCredentials is returned before any network call when no API key
// is configured.
var ErrMissingCredentials = errors.New("AI API key not configured")

// RecognitionConfidence is reported for every successful vision call; the
// provider does not return a score.
const RecognitionConfidence = 0.9

const recognitionPrompt = `Проанализируй это изображение и извлеки весь текст, который на нем написан.
Верни только чистый текст без дополнительных комментариев.
Если это документ, извлеки все даты, номера документов, суммы денег, имена людей и другую важную информацию.`

// Generator produces a text answer for a system instruction and a prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Recognizer turns an image into text.
type Recognizer interface {
	DetectText(ctx context.Context, image []byte, mimeType string) (*Recognition, error)
}

type Recognition struct {
	Text       string
	Confidence float64
}

type Config struct {
	BaseURL     string
	APIKey      string
	ChatModel   string
	VisionModel string
	Timeout     time.Duration
}

type Client struct {
	client      *openai.Client
	chatModel   string
	visionModel string
	hasKey      bool
	logger      *zap.Logger
}

// NewClient builds the provider client. A nil httpClient gets one with
// cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = httpClient

	log := logger.Named("ai")
	if apiKey == "" {
		log.Warn("LLM API key not set, OCR and chat will fail")
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
		hasKey:      apiKey != "",
		logger:      log,
	}
}

func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if !c.hasKey {
		return "", ErrMissingCredentials
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty llm choices")
	}

	c.logger.Debug("chat completion generated",
		zap.String("model", c.chatModel),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// DetectText sends the image inline as a base64 data URL.
func (c *Client) DetectText(ctx context.Context, image []byte, mimeType string) (*Recognition, error) {
	if !c.hasKey {
		return nil, ErrMissingCredentials
	}
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: recognitionPrompt,
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty vision choices")
	}

	return &Recognition{
		Text:       resp.Choices[0].Message.Content,
		Confidence: RecognitionConfidence,
	}, nil
}
