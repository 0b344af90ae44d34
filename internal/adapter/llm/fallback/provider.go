// Package fallback chains providers so an outage of the primary does
// not degrade the review when a secondary can still answer.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/usecase/review"
)

// Provider tries each wrapped provider in order and returns the first
// successful assessment. It makes one attempt per provider; the
// caller's retry loop wraps the whole chain, so a transient error on
// the last provider is still retried from the top.
type Provider struct {
	providers []review.Provider
	name      string
}

// New constructs a fallback chain. At least one provider is required.
func New(providers ...review.Provider) (*Provider, error) {
	if len(providers) == 0 {
		return nil, errors.New("fallback: at least one provider is required")
	}
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return &Provider{
		providers: providers,
		name:      strings.Join(names, "+"),
	}, nil
}

// Name identifies the chain for breaker keying and logging. It is the
// wrapped provider names joined with "+", so distinct chains get
// distinct breakers.
func (p *Provider) Name() string { return p.name }

// Assess tries each provider in order. Context cancellation stops the
// chain immediately; any other error moves on to the next provider.
func (p *Provider) Assess(ctx context.Context, req review.ProviderRequest) (domain.Assessment, error) {
	var errs []error
	for _, provider := range p.providers {
		if err := ctx.Err(); err != nil {
			return domain.Assessment{}, err
		}

		assessment, err := provider.Assess(ctx, req)
		if err == nil {
			return assessment, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Assessment{}, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
	}
	return domain.Assessment{}, fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}
