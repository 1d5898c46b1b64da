package llmservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

type chatRequest struct {
	Model               string            `json:"model"`
	Messages            []json.RawMessage `json:"messages"`
	Temperature         float64           `json:"temperature"`
	MaxTokens           int               `json:"max_tokens"`
	MaxCompletionTokens int               `json:"max_completion_tokens"`
}

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-3.5-turbo",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Paris is the capital."}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newFakeOpenAI(t *testing.T, status int, body string, seen *chatRequest, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err == nil && seen != nil {
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    "openai",
		BaseURL:     baseURL,
		Key:         "sk-test",
		Model:       models.DefaultModel,
		Temperature: models.DefaultTemperature,
		MaxTokens:   models.DefaultMaxTokens,
	}
}

func TestClient_Generate(t *testing.T) {
	var seen chatRequest
	var hits int32
	srv := newFakeOpenAI(t, http.StatusOK, completionBody, &seen, &hits)

	answer, err := NewClient(testConfig(srv.URL)).Generate(context.Background(), "Based on the uploaded documents:\nX\n\nQ?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", answer)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "gpt-3.5-turbo", seen.Model)
	assert.InDelta(t, 0.7, seen.Temperature, 1e-9)
	assert.Equal(t, 1000, max(seen.MaxTokens, seen.MaxCompletionTokens))
	require.Len(t, seen.Messages, 1)

	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(seen.Messages[0], &msg))
	assert.JSONEq(t, `"user"`, string(msg["role"]))
	assert.Contains(t, string(msg["content"]), `Based on the uploaded documents:\nX\n\nQ?`)
}

func TestClient_GenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`},
		{"quota", http.StatusTooManyRequests, `{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota"}}`},
		{"no choices", http.StatusOK, `{"id": "x", "object": "chat.completion", "choices": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := newFakeOpenAI(t, tt.status, tt.body, nil, &hits)

			_, err := NewClient(testConfig(srv.URL)).Generate(context.Background(), "Q?")
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.KindModel))
			// no retries
			assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
		})
	}
}

func TestClient_MissingKeyFailsOnlyWhenCalled(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	var hits int32
	srv := newFakeOpenAI(t, http.StatusOK, completionBody, nil, &hits)

	cfg := testConfig(srv.URL)
	cfg.Key = ""
	client := NewClient(cfg)

	_, err := client.Generate(context.Background(), "Q?")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindModel))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_UnknownProvider(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Provider = "bard"

	_, err := NewClient(cfg).Generate(context.Background(), "Q?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}
