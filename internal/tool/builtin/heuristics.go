package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/tool"
)

var todoMarker = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX)\b`)

// TodoTracker flags work markers introduced by the change. Applies to
// every language.
func TodoTracker() tool.Descriptor {
	const name = "todo-tracker"
	return tool.Descriptor{
		Name:     name,
		Version:  "1.0.0",
		Category: domain.CategoryMaintainability,
		Analyze: func(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error) {
			var findings []domain.Finding
			for _, file := range rctx.Files {
				for _, span := range file.Added {
					for i, line := range span.Lines {
						if m := todoMarker.FindString(line); m != "" {
							findings = append(findings, domain.NewFinding(domain.FindingInput{
								Tool:      name,
								File:      file.Path,
								LineStart: span.Start + i,
								LineEnd:   span.Start + i,
								Severity:  domain.SeverityInfo,
								Category:  domain.CategoryMaintainability,
								Message:   fmt.Sprintf("%s marker added", m),
								Evidence:  strings.TrimSpace(line),
							}))
						}
					}
				}
			}
			return domain.ToolResult{Findings: findings}, nil
		},
	}
}

// longAdditionThreshold is the added-span length above which a change
// is flagged as a candidate oversized function or block.
const longAdditionThreshold = 60

// LongAddition flags single contiguous additions large enough to
// suggest an oversized function or block.
func LongAddition() tool.Descriptor {
	const name = "long-addition"
	return tool.Descriptor{
		Name:      name,
		Version:   "1.0.0",
		Category:  domain.CategoryMaintainability,
		Languages: []string{"go", "python", "javascript", "typescript", "java"},
		Analyze: func(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error) {
			var findings []domain.Finding
			for _, file := range rctx.Files {
				for _, span := range file.Added {
					if len(span.Lines) < longAdditionThreshold {
						continue
					}
					findings = append(findings, domain.NewFinding(domain.FindingInput{
						Tool:       name,
						File:       file.Path,
						LineStart:  span.Start,
						LineEnd:    span.End(),
						Severity:   domain.SeverityLow,
						Category:   domain.CategoryMaintainability,
						Message:    fmt.Sprintf("%d lines added in one block; consider splitting into smaller functions", len(span.Lines)),
						Suggestion: "Extract cohesive pieces into named helpers.",
					}))
				}
			}
			return domain.ToolResult{Findings: findings}, nil
		},
	}
}

var goPrintDebug = regexp.MustCompile(`\bfmt\.Print(ln|f)?\(`)

// GoPrintDebug flags fmt.Print* debugging left in added Go lines.
func GoPrintDebug() tool.Descriptor {
	const name = "go-print-debug"
	return tool.Descriptor{
		Name:      name,
		Version:   "1.0.0",
		Category:  domain.CategoryCorrectness,
		Languages: []string{"go"},
		Analyze: func(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error) {
			var findings []domain.Finding
			for _, file := range rctx.Files {
				if !strings.HasSuffix(file.Path, ".go") || strings.HasSuffix(file.Path, "_test.go") {
					continue
				}
				for _, span := range file.Added {
					for i, line := range span.Lines {
						if goPrintDebug.MatchString(line) {
							findings = append(findings, domain.NewFinding(domain.FindingInput{
								Tool:       name,
								File:       file.Path,
								LineStart:  span.Start + i,
								LineEnd:    span.Start + i,
								Severity:   domain.SeverityLow,
								Category:   domain.CategoryCorrectness,
								Message:    "fmt.Print call added outside tests",
								Suggestion: "Use the structured logger instead of printing to stdout.",
								Evidence:   strings.TrimSpace(line),
							}))
						}
					}
				}
			}
			return domain.ToolResult{Findings: findings}, nil
		},
	}
}
