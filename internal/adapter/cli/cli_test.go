package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanmcb/autoreview/internal/adapter/cli"
	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/tool"
	"github.com/evanmcb/autoreview/internal/usecase/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReviewer struct {
	result    *domain.ReviewResult
	err       error
	branch    string
	branchErr error

	gotBase   string
	gotTarget string
	gotDiff   string
}

func (f *fakeReviewer) ReviewRefs(ctx context.Context, baseRef, targetRef string) (*domain.ReviewResult, error) {
	f.gotBase = baseRef
	f.gotTarget = targetRef
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeReviewer) ReviewDiff(ctx context.Context, baseRef, targetRef, diff string) (*domain.ReviewResult, error) {
	f.gotBase = baseRef
	f.gotTarget = targetRef
	f.gotDiff = diff
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeReviewer) CurrentBranch(ctx context.Context) (string, error) {
	return f.branch, f.branchErr
}

type fakeHistory struct {
	runs []review.RunRecord
}

func (f *fakeHistory) ListRuns(ctx context.Context, limit int) ([]review.RunRecord, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func sampleResult() *domain.ReviewResult {
	return &domain.ReviewResult{
		ID:         "run-1",
		Repository: "acme/api",
		BaseRef:    "main",
		TargetRef:  "feature",
		Assessment: &domain.Assessment{Provider: "static", Model: "static-v1", Summary: "fine"},
	}
}

func execute(t *testing.T, deps cli.Dependencies, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	deps.Args = cli.Arguments{OutWriter: &out, ErrWriter: &errOut}
	if deps.Tools == nil {
		deps.Tools = func() []tool.Descriptor { return nil }
	}
	root := cli.NewRootCommand(deps)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestReviewCommandRunsReview(t *testing.T) {
	reviewer := &fakeReviewer{result: sampleResult()}
	out, errOut, err := execute(t, cli.Dependencies{Reviewer: reviewer},
		"review", "feature", "--base", "develop", "--stdout")

	require.NoError(t, err)
	assert.Equal(t, "develop", reviewer.gotBase)
	assert.Equal(t, "feature", reviewer.gotTarget)
	assert.Contains(t, out, "# Code Review Report")
	assert.Empty(t, errOut)
}

func TestReviewCommandDetectsTarget(t *testing.T) {
	reviewer := &fakeReviewer{result: sampleResult(), branch: "feature"}
	_, _, err := execute(t, cli.Dependencies{Reviewer: reviewer}, "review", "--stdout")

	require.NoError(t, err)
	assert.Equal(t, "feature", reviewer.gotTarget)
}

func TestReviewCommandReadsDiffFile(t *testing.T) {
	diffPath := filepath.Join(t.TempDir(), "change.diff")
	require.NoError(t, os.WriteFile(diffPath, []byte("diff --git a/x b/x\n"), 0o644))

	reviewer := &fakeReviewer{result: sampleResult()}
	out, _, err := execute(t, cli.Dependencies{Reviewer: reviewer},
		"review", "--diff-file", diffPath, "--stdout")

	require.NoError(t, err)
	assert.Equal(t, "diff --git a/x b/x\n", reviewer.gotDiff)
	assert.Equal(t, "diff", reviewer.gotTarget)
	assert.Contains(t, out, "acme/api")
}

func TestReviewCommandReadsDiffFromStdin(t *testing.T) {
	reviewer := &fakeReviewer{result: sampleResult()}
	var out, errOut bytes.Buffer
	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: reviewer,
		Tools:    func() []tool.Descriptor { return nil },
		Args:     cli.Arguments{OutWriter: &out, ErrWriter: &errOut},
	})
	root.SetIn(strings.NewReader("diff --git a/y b/y\n"))
	root.SetArgs([]string{"review", "--diff-file", "-", "--stdout", "--target", "topic"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "diff --git a/y b/y\n", reviewer.gotDiff)
	assert.Equal(t, "topic", reviewer.gotTarget)
}

func TestReviewCommandRequiresTarget(t *testing.T) {
	reviewer := &fakeReviewer{result: sampleResult(), branchErr: errors.New("detached HEAD")}
	_, _, err := execute(t, cli.Dependencies{Reviewer: reviewer}, "review", "--stdout")
	require.Error(t, err)
}

func TestReviewCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	reviewer := &fakeReviewer{result: sampleResult()}
	out, _, err := execute(t, cli.Dependencies{Reviewer: reviewer},
		"review", "feature", "--output", dir)

	require.NoError(t, err)
	assert.Contains(t, out, dir)
	assert.Contains(t, out, ".md")
}

func TestReviewCommandJSONFormat(t *testing.T) {
	reviewer := &fakeReviewer{result: sampleResult()}
	out, _, err := execute(t, cli.Dependencies{Reviewer: reviewer},
		"review", "feature", "--format", "json", "--stdout")

	require.NoError(t, err)
	assert.Contains(t, out, "\"repository\": \"acme/api\"")
}

func TestReviewCommandRejectsUnknownFormat(t *testing.T) {
	reviewer := &fakeReviewer{result: sampleResult()}
	_, _, err := execute(t, cli.Dependencies{Reviewer: reviewer},
		"review", "feature", "--format", "xml", "--stdout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestReviewCommandWarnsOnDegraded(t *testing.T) {
	result := sampleResult()
	result.Assessment = nil
	result.Degraded = true
	result.ProviderError = "provider temporarily unavailable"

	reviewer := &fakeReviewer{result: result}
	_, errOut, err := execute(t, cli.Dependencies{Reviewer: reviewer},
		"review", "feature", "--stdout")

	require.NoError(t, err, "degraded reviews still succeed")
	assert.Contains(t, errOut, "degraded")
}

func TestToolsCommandListsTools(t *testing.T) {
	tools := func() []tool.Descriptor {
		return []tool.Descriptor{
			{Name: "secret-scan", Version: "1.1.0", Category: domain.CategorySecurity},
			{Name: "go-print-debug", Version: "1.0.0", Category: domain.CategoryMaintainability, Languages: []string{"go"}},
		}
	}
	out, _, err := execute(t, cli.Dependencies{Reviewer: &fakeReviewer{}, Tools: tools}, "tools")

	require.NoError(t, err)
	assert.Contains(t, out, "secret-scan@1.1.0")
	assert.Contains(t, out, "all languages")
	assert.Contains(t, out, "go-print-debug@1.0.0")
	assert.Contains(t, out, "go")
}

func TestHistoryCommand(t *testing.T) {
	history := &fakeHistory{runs: []review.RunRecord{
		{
			RunID: "run-2", CreatedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
			Repository: "acme/api", BaseRef: "main", TargetRef: "feature", Degraded: true,
		},
		{
			RunID: "run-1", CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			Repository: "acme/api", BaseRef: "main", TargetRef: "fix",
		},
	}}

	out, _, err := execute(t, cli.Dependencies{Reviewer: &fakeReviewer{}, History: history}, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "main..fix")
}

func TestHistoryCommandWithoutStore(t *testing.T) {
	_, _, err := execute(t, cli.Dependencies{Reviewer: &fakeReviewer{}}, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, cli.Dependencies{Reviewer: &fakeReviewer{}, Version: "v1.2.3"}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "v1.2.3")
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, cli.Dependencies{Reviewer: &fakeReviewer{}, Version: "v1.2.3"}, "--version")
	require.ErrorIs(t, err, cli.ErrVersionRequested)
	assert.Contains(t, out, "v1.2.3")
}
