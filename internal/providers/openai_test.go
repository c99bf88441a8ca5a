package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eaglechat-server/internal/common/errors"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(srv.URL, 5*time.Second, nil)
}

func TestOpenAIClient_Generate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req openaiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-5", req.Model)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"model": "gpt-5",
				"choices": [{"message": {"role": "assistant", "content": "Hi!"}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 9, "completion_tokens": 2, "total_tokens": 11}
			}`))
		})

		resp, err := client.Generate(context.Background(), "test-key", &GenerateRequest{
			Model:     "gpt-5",
			Messages:  []Message{{Role: "user", Content: "Hi"}},
			MaxTokens: 4096,
		})
		require.NoError(t, err)
		assert.Equal(t, "Hi!", resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, 11, resp.Usage.TotalTokens)
	})

	t.Run("rate limit is retryable", func(t *testing.T) {
		client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Generate(context.Background(), "test-key", &GenerateRequest{Model: "m", MaxTokens: 1})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
		assert.True(t, errors.IsRetryable(err))
	})

	t.Run("empty choices is fatal", func(t *testing.T) {
		client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"model": "gpt-5", "choices": []}`))
		})

		_, err := client.Generate(context.Background(), "test-key", &GenerateRequest{Model: "m", MaxTokens: 1})
		require.Error(t, err)
		assert.False(t, errors.IsRetryable(err))
	})
}

func TestOpenAIClient_ValidateKey(t *testing.T) {
	t.Run("rate limited counts as valid", func(t *testing.T) {
		client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		assert.NoError(t, client.ValidateKey(context.Background(), "candidate"))
	})

	t.Run("unauthorized fails", func(t *testing.T) {
		client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		err := client.ValidateKey(context.Background(), "candidate")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeAuth))
	})
}
