package llm_test

import (
	"strings"
	"testing"

	"github.com/evanmcb/autoreview/internal/adapter/llm"
	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, llm.EstimateTokens(""))

	short := llm.EstimateTokens("hello world")
	assert.Greater(t, short, 0)
	assert.Less(t, short, 10)

	long := llm.EstimateTokens(strings.Repeat("some source code under review ", 100))
	assert.Greater(t, long, short)
}

func TestEstimateTokensScalesWithInput(t *testing.T) {
	base := llm.EstimateTokens(strings.Repeat("word ", 50))
	double := llm.EstimateTokens(strings.Repeat("word ", 100))
	assert.InDelta(t, 2*base, double, float64(base)/2)
}
