// Package markdown renders review results into Markdown files.
package markdown

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/evanmcb/autoreview/internal/domain"
)

type clock func() string

// Writer renders review results into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
// The timestamp becomes part of the output filename.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Write persists the result as a Markdown file under outputDir and
// returns the path.
func (w *Writer) Write(result *domain.ReviewResult, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.md",
		sanitise(result.Repository),
		sanitise(result.TargetRef),
		w.now(),
	)
	path := filepath.Join(outputDir, filename)

	if err := os.WriteFile(path, []byte(Render(result)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

// WriteTo renders the result to the given writer, for stdout output.
func WriteTo(out io.Writer, result *domain.ReviewResult) error {
	_, err := io.WriteString(out, Render(result))
	return err
}

// Render builds the Markdown report for a review result.
func Render(result *domain.ReviewResult) string {
	var b strings.Builder
	caser := cases.Title(language.English)

	b.WriteString("# Code Review Report\n\n")
	fmt.Fprintf(&b, "- Repository: %s\n", result.Repository)
	fmt.Fprintf(&b, "- Change: %s..%s\n", result.BaseRef, result.TargetRef)
	writeLanguages(&b, result.Languages)
	if result.Degraded {
		fmt.Fprintf(&b, "- Status: degraded (%s)\n", result.ProviderError)
	}
	b.WriteString("\n")

	b.WriteString("## Summary\n\n")
	if result.Assessment != nil {
		fmt.Fprintf(&b, "_%s (%s)_\n\n", result.Assessment.Provider, result.Assessment.Model)
		b.WriteString(result.Assessment.Summary)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No model assessment is available for this run.\n\n")
	}

	writeToolResults(&b, result.ToolResults)

	if len(result.Findings) == 0 {
		b.WriteString("No findings reported.\n")
		return b.String()
	}

	b.WriteString("## Findings\n\n")
	for _, finding := range result.Findings {
		fmt.Fprintf(&b, "### %s (%s)\n", finding.Message, caser.String(finding.Severity))
		fmt.Fprintf(&b, "- File: %s:%d-%d\n", finding.File, finding.LineStart, finding.LineEnd)
		fmt.Fprintf(&b, "- Tool: %s\n", finding.Tool)
		fmt.Fprintf(&b, "- Category: %s\n", finding.Category)
		if finding.Suggestion != "" {
			fmt.Fprintf(&b, "- Suggestion: %s\n", finding.Suggestion)
		}
		if finding.Evidence != "" {
			fmt.Fprintf(&b, "- Evidence: `%s`\n", finding.Evidence)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeLanguages(b *strings.Builder, languages map[string]float64) {
	if len(languages) == 0 {
		return
	}
	names := make([]string, 0, len(languages))
	for name, weight := range languages {
		if weight > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s (%.0f%%)", name, languages[name]*100)
	}
	fmt.Fprintf(b, "- Languages: %s\n", strings.Join(parts, ", "))
}

func writeToolResults(b *strings.Builder, results []domain.ToolResult) {
	if len(results) == 0 {
		return
	}
	b.WriteString("## Tools\n\n")
	for _, r := range results {
		status := fmt.Sprintf("%d finding(s)", len(r.Findings))
		if r.Err != nil {
			status = "failed: " + r.Err.Message
		}
		cached := ""
		if r.Metrics.Cached {
			cached = ", cached"
		}
		fmt.Fprintf(b, "- %s@%s: %s (%s%s)\n", r.Tool, r.Version, status, r.Metrics.Duration.Round(time.Millisecond), cached)
	}
	b.WriteString("\n")
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
