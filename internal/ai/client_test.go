package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://llm.test/v1"

func newMockedClient(t *testing.T, apiKey string) (*Client, *http.Client) {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return NewClient(Config{
		BaseURL:     testBaseURL,
		APIKey:      apiKey,
		ChatModel:   "chat-model",
		VisionModel: "vision-model",
	}, httpClient), httpClient
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
	}
}

func TestGenerate(t *testing.T) {
	client, _ := newMockedClient(t, "key")

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			return httpmock.NewJsonResponse(http.StatusOK, completion("Ответ"))
		})

	got, err := client.Generate(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Ответ", got)
	assert.Equal(t, "chat-model", captured["model"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["content"])
	assert.Equal(t, "prompt", messages[1].(map[string]any)["content"])
}

func TestGenerate_ProviderError(t *testing.T) {
	client, _ := newMockedClient(t, "key")
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":{"message":"boom"}}`))

	_, err := client.Generate(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestMissingCredentials(t *testing.T) {
	client, _ := newMockedClient(t, " ")

	_, err := client.Generate(context.Background(), "s", "p")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = client.DetectText(context.Background(), []byte{1}, "image/png")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestDetectText(t *testing.T) {
	client, _ := newMockedClient(t, "key")

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			return httpmock.NewJsonResponse(http.StatusOK, completion("Дело № 1"))
		})

	got, err := client.DetectText(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Дело № 1", got.Text)
	assert.InDelta(t, RecognitionConfidence, got.Confidence, 1e-9)
	assert.Equal(t, "vision-model", captured["model"])

	parts := captured["messages"].([]any)[0].(map[string]any)["content"].([]any)
	image := parts[0].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,aW1n", image["url"])
}
