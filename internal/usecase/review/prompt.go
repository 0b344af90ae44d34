package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/language"
)

// PromptOptions bounds the prompt fed to the provider.
type PromptOptions struct {
	// MaxFindings caps how many tool findings are included. The cap
	// keeps the prompt bounded even for very noisy diffs; truncation
	// is noted in the prompt so the model knows the list is partial.
	MaxFindings int

	// MaxPromptTokens bounds the estimated size of the whole prompt.
	// Diff content is trimmed first to stay under it.
	MaxPromptTokens int

	// EstimateTokens estimates token usage for budget checks. Falls
	// back to a characters/4 heuristic when nil.
	EstimateTokens func(string) int
}

// DefaultPromptOptions returns the default prompt bounds.
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		MaxFindings:     200,
		MaxPromptTokens: 100_000,
	}
}

// NewPromptBuilder returns the standard PromptBuilder: a language
// summary, the tool findings (capped), and as much of the diff as the
// token budget allows.
func NewPromptBuilder(opts PromptOptions) PromptBuilder {
	estimate := opts.EstimateTokens
	if estimate == nil {
		estimate = func(s string) int { return len(s) / 4 }
	}

	return func(rctx *domain.ReviewContext, profile language.Profile, findings []domain.Finding) (ProviderRequest, error) {
		var b strings.Builder

		b.WriteString("You are reviewing a code change. Synthesize a concise review ")
		b.WriteString("from the diff and the static-analysis findings below. ")
		b.WriteString("Note risks, praise what is sound, and keep it actionable.\n\n")

		fmt.Fprintf(&b, "Repository: %s\nChange: %s..%s\n", rctx.Repository, rctx.BaseRef, rctx.TargetRef)
		writeLanguages(&b, profile)

		writeFindings(&b, findings, opts.MaxFindings)

		b.WriteString("\n## Diff\n")
		budget := opts.MaxPromptTokens - estimate(b.String())
		writeDiff(&b, rctx, budget, estimate)

		return ProviderRequest{Prompt: b.String()}, nil
	}
}

func writeLanguages(b *strings.Builder, profile language.Profile) {
	langs := profile.Languages()
	if len(langs) == 0 {
		return
	}
	b.WriteString("Languages: ")
	for i, lang := range langs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s (%.0f%%)", lang, profile[lang]*100)
	}
	b.WriteString("\n")
}

func writeFindings(b *strings.Builder, findings []domain.Finding, maxFindings int) {
	if len(findings) == 0 {
		b.WriteString("\n## Tool findings\nNone.\n")
		return
	}

	truncated := 0
	if maxFindings > 0 && len(findings) > maxFindings {
		truncated = len(findings) - maxFindings
		findings = findings[:maxFindings]
	}

	fmt.Fprintf(b, "\n## Tool findings (%d)\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(b, "- [%s/%s] %s:%d %s\n", f.Severity, f.Category, f.File, f.LineStart, f.Message)
	}
	if truncated > 0 {
		fmt.Fprintf(b, "(%d further findings omitted)\n", truncated)
	}
}

// writeDiff appends file patches until the token budget runs out.
// Files are taken in path order so truncation is deterministic.
func writeDiff(b *strings.Builder, rctx *domain.ReviewContext, budget int, estimate func(string) int) {
	files := make([]domain.FileChange, len(rctx.Files))
	copy(files, rctx.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	omitted := 0
	for _, f := range files {
		if f.Binary {
			continue
		}
		section := fmt.Sprintf("### %s (%s)\n%s\n", f.Path, f.Status, f.Patch)
		cost := estimate(section)
		if cost > budget {
			omitted++
			continue
		}
		budget -= cost
		b.WriteString(section)
	}
	if omitted > 0 {
		fmt.Fprintf(b, "(%d file patches omitted for size)\n", omitted)
	}
}
