package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/evanmcb/autoreview/internal/config"
	"github.com/evanmcb/autoreview/internal/usecase/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProviderDefaultsToStatic(t *testing.T) {
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"static": {Enabled: true, Model: "static-v1"},
		},
	}

	p, err := buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())
}

func TestBuildProviderChainsEnabledProviders(t *testing.T) {
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Enabled: true, Model: "claude-sonnet-4-20250514", APIKey: "sk-test"},
			"static":    {Enabled: true, Model: "static-v1"},
		},
	}

	p, err := buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic+static", p.Name())
}

func TestBuildProviderHonorsFallbackOrder(t *testing.T) {
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Enabled: true, Model: "m", APIKey: "sk-test"},
			"openai":    {Enabled: true, Model: "gpt-4o", APIKey: "sk-test"},
		},
		Review: config.ReviewConfig{Fallback: []string{"openai", "anthropic"}},
	}

	p, err := buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai+anthropic", p.Name())
}

func TestBuildProviderUsesCustomBaseURL(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"content": [{"type": "text", "text": "fine"}],
			"model": "m",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Enabled: true, Model: "m", APIKey: "sk-test", BaseURL: server.URL},
		},
	}

	p, err := buildProvider(cfg)
	require.NoError(t, err)

	assessment, err := p.Assess(context.Background(), review.ProviderRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "fine", assessment.Summary)
	assert.Equal(t, 1, hits)
}

// recordingLogger captures log fields for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []map[string]interface{}
}

func (l *recordingLogger) log(fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fields)
}

func (l *recordingLogger) LogDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(fields)
}

func (l *recordingLogger) LogInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(fields)
}

func (l *recordingLogger) LogWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(fields)
}

func (l *recordingLogger) LogError(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(fields)
}

func TestLogProviderConfigurationRedactsKeys(t *testing.T) {
	logger := &recordingLogger{}
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Enabled: true, Model: "m", APIKey: "sk-ant-secret-1234"},
			"openai":    {Enabled: false, Model: "gpt-4o", APIKey: "sk-oai-secret"},
		},
	}
	cfg.Observability.Logging.RedactAPIKeys = true

	logProviderConfiguration(context.Background(), logger, cfg)

	require.Len(t, logger.entries, 1, "disabled providers are not logged")
	assert.Equal(t, "anthropic", logger.entries[0]["provider"])
	assert.Equal(t, "[REDACTED-1234]", logger.entries[0]["apiKey"])
}

func TestLogProviderConfigurationRedactionOptOut(t *testing.T) {
	logger := &recordingLogger{}
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Enabled: true, Model: "m", APIKey: "sk-ant-secret-1234"},
		},
	}
	cfg.Observability.Logging.RedactAPIKeys = false

	logProviderConfiguration(context.Background(), logger, cfg)

	require.Len(t, logger.entries, 1)
	assert.Equal(t, "sk-ant-secret-1234", logger.entries[0]["apiKey"])
}

func TestBuildProviderRequiresAPIKey(t *testing.T) {
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Enabled: true, Model: "m"},
		},
	}

	_, err := buildProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestBuildProviderRequiresAtLeastOne(t *testing.T) {
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"static": {Enabled: false},
		},
	}

	_, err := buildProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers enabled")
}
