package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"legaldesk/internal/model"
)

// SessionHistory keeps the latest messages of each chat session in Redis so
// the prompt builder can skip storage on consecutive turns.
//
// Every new turn sets a short-lived dirty marker and drops the cached window.
// While the marker lives, reads miss and writes are skipped, so a reader that
// loaded storage before the turn was committed cannot put a stale window back.
type SessionHistory struct {
	client   *redisv9.Client
	window   int
	ttl      time.Duration
	dirtyTTL time.Duration
}

func NewSessionHistory(client *redisv9.Client, window int, ttl, dirtyTTL time.Duration) *SessionHistory {
	if window <= 0 {
		window = 10
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if dirtyTTL <= 0 {
		dirtyTTL = 5 * time.Second
	}
	return &SessionHistory{
		client:   client,
		window:   window,
		ttl:      ttl,
		dirtyTTL: dirtyTTL,
	}
}

// Recent returns the cached window oldest first. ok is false when nothing is
// cached or the session is dirty.
func (h *SessionHistory) Recent(ctx context.Context, sessionID string) (messages []model.ChatMessage, ok bool, err error) {
	pipe := h.client.Pipeline()
	dirty := pipe.Exists(ctx, dirtyKey(sessionID))
	cached := pipe.Get(ctx, windowKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redisv9.Nil) {
		return nil, false, fmt.Errorf("redis read session history failed: %w", err)
	}
	if dirty.Val() > 0 {
		return nil, false, nil
	}

	raw, err := cached.Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis read session history failed: %w", err)
	}
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("decode session history failed: %w", err)
	}
	return messages, true, nil
}

// Store caches the last window messages unless the session is dirty. A turn
// landing between the check and the write aborts the write.
func (h *SessionHistory) Store(ctx context.Context, sessionID string, messages []model.ChatMessage) error {
	if len(messages) > h.window {
		messages = messages[len(messages)-h.window:]
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode session history failed: %w", err)
	}

	marker := dirtyKey(sessionID)
	err = h.client.Watch(ctx, func(tx *redisv9.Tx) error {
		n, err := tx.Exists(ctx, marker).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, windowKey(sessionID), payload, h.ttl)
			return nil
		})
		return err
	}, marker)
	if errors.Is(err, redisv9.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis store session history failed: %w", err)
	}
	return nil
}

// Invalidate marks the session dirty and drops its window in one round trip.
func (h *SessionHistory) Invalidate(ctx context.Context, sessionID string) error {
	_, err := h.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, dirtyKey(sessionID), "1", h.dirtyTTL)
		pipe.Del(ctx, windowKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate session history failed: %w", err)
	}
	return nil
}

func (h *SessionHistory) Dirty(ctx context.Context, sessionID string) (bool, error) {
	n, err := h.client.Exists(ctx, dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check session dirty failed: %w", err)
	}
	return n > 0, nil
}

func windowKey(sessionID string) string {
	return "legaldesk:session:" + sessionID + ":window"
}

func dirtyKey(sessionID string) string {
	return "legaldesk:session:" + sessionID + ":dirty"
}
