// Package git produces unified diffs between refs of a local
// repository, backed by go-git.
package git

import (
	"context"
	"fmt"
	"path/filepath"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/evanmcb/autoreview/internal/adapter/diff"
	"github.com/evanmcb/autoreview/internal/domain"
)

// Engine reads a local repository and builds review contexts from it.
type Engine struct {
	repoDir string
}

// NewEngine constructs an engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// Diff returns the unified diff text between the two refs.
func (e *Engine) Diff(ctx context.Context, baseRef, targetRef string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return "", fmt.Errorf("resolve base ref: %w", err)
	}

	targetCommit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return "", fmt.Errorf("resolve target ref: %w", err)
	}

	patch, err := baseCommit.PatchContext(ctx, targetCommit)
	if err != nil {
		return "", fmt.Errorf("compute patch: %w", err)
	}
	return patch.String(), nil
}

// Context builds a ReviewContext for the change between the two refs.
// The repository name is the directory's base name.
func (e *Engine) Context(ctx context.Context, baseRef, targetRef string) (*domain.ReviewContext, error) {
	raw, err := e.Diff(ctx, baseRef, targetRef)
	if err != nil {
		return nil, err
	}

	return diff.NewContext(e.RepositoryName(), baseRef, targetRef, raw)
}

// RepositoryName returns the directory base name used to label
// review contexts.
func (e *Engine) RepositoryName() string {
	abs, err := filepath.Abs(e.repoDir)
	if err != nil {
		abs = e.repoDir
	}
	return filepath.Base(abs)
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// resolveCommit resolves a ref, trying local branch and origin-remote
// forms before giving up.
func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	return nil, fmt.Errorf("unable to resolve ref %s: %w", ref, lastErr)
}
