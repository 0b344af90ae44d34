// Package openai is the provider adapter for the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"

	llmhttp "github.com/evanmcb/autoreview/internal/adapter/llm/http"
	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/usecase/review"
	openai "github.com/sashabaranov/go-openai"
)

const providerName = "openai"

const defaultSystemPrompt = "You are a senior engineer reviewing a code change. " +
	"Write a concise assessment of the change using the diff and the " +
	"static-analysis findings you are given."

// Provider adapts the OpenAI client to the orchestrator's Provider
// port. It makes a single attempt per call; retries and circuit
// breaking are owned by the caller.
type Provider struct {
	client *openai.Client
	model  string
	system string
}

// NewProvider constructs an OpenAI Provider.
func NewProvider(apiKey, model string) *Provider {
	return NewProviderWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewProviderWithBaseURL constructs a Provider against a custom API
// endpoint, e.g. a proxy or a compatible self-hosted gateway.
func NewProviderWithBaseURL(apiKey, baseURL, model string) *Provider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return NewProviderWithConfig(config, model)
}

// NewProviderWithConfig constructs a Provider from an explicit client
// config. Used to point at a compatible endpoint or a test server.
func NewProviderWithConfig(config openai.ClientConfig, model string) *Provider {
	return &Provider{
		client: openai.NewClientWithConfig(config),
		model:  model,
		system: defaultSystemPrompt,
	}
}

// Name identifies the provider for breaker keying and logging.
func (p *Provider) Name() string { return providerName }

// Assess submits the review prompt and returns the model's assessment.
func (p *Provider) Assess(ctx context.Context, req review.ProviderRequest) (domain.Assessment, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.system},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxCompletionTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("openai: %w", mapError(err))
	}

	if len(resp.Choices) == 0 {
		return domain.Assessment{}, fmt.Errorf("openai: no choices in response")
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return domain.Assessment{
		Provider: providerName,
		Model:    model,
		Summary:  resp.Choices[0].Message.Content,
	}, nil
}

// mapError converts client errors into the shared taxonomy so the
// retry classifier can tell transient from terminal.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llmhttp.FromStatusCode(providerName, apiErr.HTTPStatusCode, apiErr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return llmhttp.NewTimeoutError(providerName, err.Error())
}
