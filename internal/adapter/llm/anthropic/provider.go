package anthropic

import (
	"context"
	"fmt"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/usecase/review"
)

const providerName = "anthropic"

const defaultSystemPrompt = "You are a senior engineer reviewing a code change. " +
	"Write a concise assessment of the change using the diff and the " +
	"static-analysis findings you are given."

// Provider adapts the Anthropic client to the orchestrator's Provider
// port.
type Provider struct {
	client *Client
	model  string
	system string
}

// NewProvider constructs an Anthropic Provider.
func NewProvider(client *Client, model string) *Provider {
	return &Provider{
		client: client,
		model:  model,
		system: defaultSystemPrompt,
	}
}

// Name identifies the provider for breaker keying and logging.
func (p *Provider) Name() string { return providerName }

// Assess submits the review prompt and returns the model's assessment.
func (p *Provider) Assess(ctx context.Context, req review.ProviderRequest) (domain.Assessment, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp, err := p.client.Call(ctx, req.Prompt, CallOptions{
		MaxTokens: maxTokens,
		System:    p.system,
	})
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("anthropic: %w", err)
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return domain.Assessment{
		Provider: providerName,
		Model:    model,
		Summary:  resp.Text,
	}, nil
}
