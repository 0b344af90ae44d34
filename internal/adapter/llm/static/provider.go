// Package static provides an offline provider that returns a canned
// assessment. Useful for demos and for exercising the pipeline without
// live API calls.
package static

import (
	"context"
	"fmt"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/usecase/review"
)

const providerName = "static"

// Provider implements the orchestrator's Provider port without any
// network access.
type Provider struct {
	model string
}

// NewProvider constructs a static Provider.
func NewProvider(model string) *Provider {
	if model == "" {
		model = "static-v1"
	}
	return &Provider{model: model}
}

// Name identifies the provider for breaker keying and logging.
func (p *Provider) Name() string { return providerName }

// Assess returns a fixed assessment that summarizes the prompt size.
func (p *Provider) Assess(ctx context.Context, req review.ProviderRequest) (domain.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Assessment{}, err
	}
	return domain.Assessment{
		Provider: providerName,
		Model:    p.model,
		Summary: fmt.Sprintf(
			"Offline review: no model was consulted. Prompt was %d characters; see the tool findings for details.",
			len(req.Prompt)),
	}, nil
}
