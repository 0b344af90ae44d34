package markdown_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanmcb/autoreview/internal/adapter/output/markdown"
	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *domain.ReviewResult {
	return &domain.ReviewResult{
		ID:         "run-1",
		Repository: "acme/api",
		BaseRef:    "main",
		TargetRef:  "feature",
		Languages:  map[string]float64{"go": 0.8, "python": 0.2},
		ToolResults: []domain.ToolResult{
			{
				Tool: "secret-scan", Version: "1.1.0", Category: domain.CategorySecurity,
				Metrics: domain.ToolMetrics{Duration: 120 * time.Millisecond},
				Findings: []domain.Finding{{
					Tool: "secret-scan", File: "cfg.go", LineStart: 4, LineEnd: 4,
					Severity: domain.SeverityCritical, Category: domain.CategorySecurity,
					Message: "api key committed", Suggestion: "rotate it",
					Evidence: "key := \"sk-...\"",
				}},
			},
			{
				Tool: "todo-tracker", Version: "1.0.0",
				Err: &domain.ToolError{Tool: "todo-tracker", Message: "timed out", TimedOut: true},
			},
		},
		Findings: []domain.Finding{{
			Tool: "secret-scan", File: "cfg.go", LineStart: 4, LineEnd: 4,
			Severity: domain.SeverityCritical, Category: domain.CategorySecurity,
			Message: "api key committed", Suggestion: "rotate it",
			Evidence: "key := \"sk-...\"",
		}},
		Assessment: &domain.Assessment{Provider: "anthropic", Model: "claude-sonnet-4", Summary: "Solid change."},
	}
}

func TestRender(t *testing.T) {
	out := markdown.Render(sampleResult())

	assert.Contains(t, out, "# Code Review Report")
	assert.Contains(t, out, "- Repository: acme/api")
	assert.Contains(t, out, "- Change: main..feature")
	assert.Contains(t, out, "- Languages: go (80%), python (20%)")
	assert.Contains(t, out, "Solid change.")
	assert.Contains(t, out, "### api key committed (Critical)")
	assert.Contains(t, out, "- File: cfg.go:4-4")
	assert.Contains(t, out, "- Suggestion: rotate it")
	assert.Contains(t, out, "todo-tracker@1.0.0: failed: timed out")
	assert.NotContains(t, out, "degraded")
}

func TestRenderDegraded(t *testing.T) {
	result := sampleResult()
	result.Assessment = nil
	result.Degraded = true
	result.ProviderError = "provider temporarily unavailable"

	out := markdown.Render(result)
	assert.Contains(t, out, "- Status: degraded (provider temporarily unavailable)")
	assert.Contains(t, out, "No model assessment is available")
	assert.Contains(t, out, "### api key committed", "findings survive degraded runs")
}

func TestRenderNoFindings(t *testing.T) {
	result := sampleResult()
	result.Findings = nil

	out := markdown.Render(result)
	assert.Contains(t, out, "No findings reported.")
}

func TestWriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	w := markdown.NewWriter(func() string { return "20260826T120000" })

	path, err := w.Write(sampleResult(), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "acme-api_feature_20260826T120000.md"), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "# Code Review Report"))
}
