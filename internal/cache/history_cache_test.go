package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldesk/internal/model"
)

func newSessionHistory(t *testing.T, window int) (*SessionHistory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionHistory(client, window, time.Minute, 5*time.Second), mr
}

func turn(n int) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.ChatMessage{
			ID:          fmt.Sprintf("m%d", i),
			SessionID:   "s1",
			MessageType: model.MessageTypeUser,
			MessageText: fmt.Sprintf("вопрос %d", i),
		})
	}
	return out
}

func TestSessionHistory_StoreAndRecent(t *testing.T) {
	h, mr := newSessionHistory(t, 10)
	ctx := context.Background()

	_, hit, err := h.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit)

	messages := []model.ChatMessage{
		{ID: "m1", SessionID: "s1", MessageType: model.MessageTypeUser, MessageText: "Привет"},
		{ID: "m2", SessionID: "s1", MessageType: model.MessageTypeAI, MessageText: "Здравствуйте"},
	}
	require.NoError(t, h.Store(ctx, "s1", messages))

	got, hit, err := h.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "Здравствуйте", got[1].MessageText)

	mr.FastForward(2 * time.Minute)
	_, hit, err = h.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSessionHistory_KeepsLatestWindow(t *testing.T) {
	h, _ := newSessionHistory(t, 3)
	ctx := context.Background()

	require.NoError(t, h.Store(ctx, "s1", turn(5)))

	got, hit, err := h.Recent(ctx, "s1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m4", got[2].ID)
}

func TestSessionHistory_Invalidate(t *testing.T) {
	h, mr := newSessionHistory(t, 10)
	ctx := context.Background()

	require.NoError(t, h.Store(ctx, "s1", turn(2)))
	require.NoError(t, h.Invalidate(ctx, "s1"))

	dirty, err := h.Dirty(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, dirty)
	_, hit, err := h.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit)

	// writes are dropped while the marker lives
	require.NoError(t, h.Store(ctx, "s1", turn(1)))
	assert.False(t, mr.Exists(windowKey("s1")))

	mr.FastForward(6 * time.Second)
	dirty, err = h.Dirty(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, h.Store(ctx, "s1", turn(4)))
	got, hit, err := h.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, got, 4)
}

func TestSessionHistory_SessionsAreIsolated(t *testing.T) {
	h, _ := newSessionHistory(t, 10)
	ctx := context.Background()

	require.NoError(t, h.Store(ctx, "s1", turn(2)))
	require.NoError(t, h.Invalidate(ctx, "s2"))

	_, hit, err := h.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, hit)
}
