package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"score\": 1}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL, Model: "claude-test", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)

	result, err := client.GenerateResponse(context.Background(), "grade this", "you are a judge", 0)
	require.NoError(t, err)

	assert.Equal(t, `{"score": 1}`, result.Content)
	assert.Equal(t, 20, result.PromptTokens)
	assert.Equal(t, 5, result.CompletionTokens)
	assert.Equal(t, 25, result.TotalTokens)
	assert.Equal(t, "you are a judge", gotBody["system"])
	assert.Equal(t, "claude-test", gotBody["model"])
}

func TestNewAnthropicClient_Validation(t *testing.T) {
	_, err := NewAnthropicClient(&Config{APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewAnthropicClient(&Config{Model: "m"}, zap.NewNop())
	assert.Error(t, err)
}
