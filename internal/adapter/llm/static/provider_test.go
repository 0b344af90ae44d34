package static_test

import (
	"context"
	"testing"

	"github.com/evanmcb/autoreview/internal/adapter/llm/static"
	"github.com/evanmcb/autoreview/internal/usecase/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := static.NewProvider("static-v1")
	assert.Equal(t, "static", p.Name())

	assessment, err := p.Assess(context.Background(), review.ProviderRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "static", assessment.Provider)
	assert.Equal(t, "static-v1", assessment.Model)
	assert.NotEmpty(t, assessment.Summary)
}

func TestStaticProviderHonorsContext(t *testing.T) {
	p := static.NewProvider("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Assess(ctx, review.ProviderRequest{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
