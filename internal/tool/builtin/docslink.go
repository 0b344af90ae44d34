package builtin

import (
	"context"
	"regexp"
	"strings"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/resilience"
	"github.com/evanmcb/autoreview/internal/tool"
)

// LookupFunc validates that a documentation URL resolves. Supplied by
// the caller; typically an HTTP HEAD against the URL.
type LookupFunc func(ctx context.Context, url string) error

var docURL = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// DocsLink validates documentation URLs referenced in added lines. The
// lookup dependency is guarded by its own circuit breaker and retried
// on transient failures.
func DocsLink(lookup LookupFunc, breaker *resilience.Breaker, retry resilience.RetryConfig, retryable resilience.Classifier) tool.Descriptor {
	const name = "docs-link"
	return tool.Descriptor{
		Name:     name,
		Version:  "1.0.0",
		Category: domain.CategoryDocumentation,
		Analyze: func(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error) {
			var findings []domain.Finding
			checked := make(map[string]bool)

			for _, file := range rctx.Files {
				for _, span := range file.Added {
					for i, line := range span.Lines {
						for _, url := range docURL.FindAllString(line, -1) {
							url = strings.TrimRight(url, ".,;")
							if checked[url] {
								continue
							}
							checked[url] = true

							_, err := resilience.Do(ctx, breaker, retry, retryable,
								func(ctx context.Context) (struct{}, error) {
									return struct{}{}, lookup(ctx, url)
								})
							if err == nil {
								continue
							}
							if resilience.IsBreakerOpen(err) {
								// The lookup service is unhealthy; stop
								// checking rather than flagging every
								// remaining link as broken.
								return domain.ToolResult{Findings: findings}, nil
							}
							findings = append(findings, domain.NewFinding(domain.FindingInput{
								Tool:      name,
								File:      file.Path,
								LineStart: span.Start + i,
								LineEnd:   span.Start + i,
								Severity:  domain.SeverityLow,
								Category:  domain.CategoryDocumentation,
								Message:   "referenced documentation URL did not resolve: " + url,
							}))
						}
					}
				}
			}
			return domain.ToolResult{Findings: findings}, nil
		},
	}
}
