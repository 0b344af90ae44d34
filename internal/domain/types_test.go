package domain_test

import (
	"testing"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFindingDeterministicID(t *testing.T) {
	input := domain.FindingInput{
		Tool:      "secret-scan",
		File:      "internal/server/auth.go",
		LineStart: 10,
		LineEnd:   12,
		Severity:  domain.SeverityHigh,
		Category:  domain.CategorySecurity,
		Message:   "hardcoded credential",
	}

	first := domain.NewFinding(input)
	second := domain.NewFinding(input)

	assert.Equal(t, first.ID, second.ID, "same input must yield same ID")
	assert.NotEmpty(t, first.ID)

	input.LineStart = 11
	third := domain.NewFinding(input)
	assert.NotEqual(t, first.ID, third.ID, "different input must yield different ID")
}

func TestReviewContextFingerprint(t *testing.T) {
	rc := &domain.ReviewContext{
		ID: "r1",
		Files: []domain.FileChange{
			{Path: "main.go", Status: domain.FileStatusModified, Patch: "+x := 1"},
		},
	}
	same := &domain.ReviewContext{
		ID: "r2", // identity fields are not part of the fingerprint
		Files: []domain.FileChange{
			{Path: "main.go", Status: domain.FileStatusModified, Patch: "+x := 1"},
		},
	}
	other := &domain.ReviewContext{
		Files: []domain.FileChange{
			{Path: "main.go", Status: domain.FileStatusModified, Patch: "+x := 2"},
		},
	}

	assert.Equal(t, rc.Fingerprint(), same.Fingerprint())
	assert.NotEqual(t, rc.Fingerprint(), other.Fingerprint())
}

func TestSortFindings(t *testing.T) {
	findings := []domain.Finding{
		{File: "b.go", LineStart: 5, Tool: "todo-tracker"},
		{File: "a.go", LineStart: 9, Tool: "secret-scan"},
		{File: "a.go", LineStart: 2, Tool: "todo-tracker"},
		{File: "a.go", LineStart: 2, Tool: "secret-scan"},
	}

	domain.SortFindings(findings)

	require.Len(t, findings, 4)
	assert.Equal(t, "a.go", findings[0].File)
	assert.Equal(t, 2, findings[0].LineStart)
	assert.Equal(t, "secret-scan", findings[0].Tool)
	assert.Equal(t, "todo-tracker", findings[1].Tool)
	assert.Equal(t, 9, findings[2].LineStart)
	assert.Equal(t, "b.go", findings[3].File)
}

func TestLineSpanEnd(t *testing.T) {
	span := domain.LineSpan{Start: 10, Lines: []string{"a", "b", "c"}}
	assert.Equal(t, 12, span.End())

	empty := domain.LineSpan{Start: 4}
	assert.Equal(t, 4, empty.End())
}

func TestFileChangeAddedLineCount(t *testing.T) {
	f := domain.FileChange{
		Added: []domain.LineSpan{
			{Start: 1, Lines: []string{"x"}},
			{Start: 10, Lines: []string{"y", "z"}},
		},
	}
	assert.Equal(t, 3, f.AddedLineCount())
}

func TestToolErrorMessage(t *testing.T) {
	err := &domain.ToolError{Tool: "docs-link", Message: "lookup failed"}
	assert.Contains(t, err.Error(), "docs-link")
	assert.Contains(t, err.Error(), "failed")

	timeout := &domain.ToolError{Tool: "docs-link", Message: "deadline exceeded", TimedOut: true}
	assert.Contains(t, timeout.Error(), "timed out")
}
