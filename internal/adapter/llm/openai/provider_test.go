package openai_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	llmhttp "github.com/evanmcb/autoreview/internal/adapter/llm/http"
	provider "github.com/evanmcb/autoreview/internal/adapter/llm/openai"
	"github.com/evanmcb/autoreview/internal/usecase/review"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *provider.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return provider.NewProviderWithConfig(config, "gpt-4o")
}

func TestAssessSuccess(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-2024-08-06",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "Well tested change."}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
		}`))
	})

	assert.Equal(t, "openai", p.Name())

	assessment, err := p.Assess(context.Background(), review.ProviderRequest{Prompt: "review", MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, "openai", assessment.Provider)
	assert.Equal(t, "gpt-4o-2024-08-06", assessment.Model)
	assert.Equal(t, "Well tested change.", assessment.Summary)
}

func TestAssessMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantType  llmhttp.ErrorType
		retryable bool
	}{
		{"rate_limit", 429, llmhttp.ErrTypeRateLimit, true},
		{"server_error", 500, llmhttp.ErrTypeServiceUnavailable, true},
		{"auth", 401, llmhttp.ErrTypeAuthentication, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "x"}}`))
			})

			_, err := p.Assess(context.Background(), review.ProviderRequest{Prompt: "review"})
			require.Error(t, err)

			var perr *llmhttp.Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, tt.retryable, perr.Retryable)
		})
	}
}

func TestAssessEmptyChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`))
	})

	_, err := p.Assess(context.Background(), review.ProviderRequest{Prompt: "review"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
