// Package builtin provides the analysis tools registered at process
// start: heuristic scanners over the changed lines of a review context.
package builtin

import (
	"context"
	"regexp"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/tool"
)

const secretScanName = "secret-scan"

// secretPatterns detect credentials committed into the diff.
var secretPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"OpenAI API key", regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)},
	{"Anthropic API key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`)},
	{"AWS access key ID", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"GitHub token", regexp.MustCompile(`gh[posr]_[a-zA-Z0-9]{20,}`)},
	{"Google API key", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{"JWT token", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)},
	{"private key", regexp.MustCompile(`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`)},
	{"Slack token", regexp.MustCompile(`xox[baprs]-[a-zA-Z0-9\-]{10,}`)},
}

// SecretScan detects credentials and tokens introduced by the change.
// Applies to every language.
func SecretScan() tool.Descriptor {
	return tool.Descriptor{
		Name:     secretScanName,
		Version:  "1.1.0",
		Category: domain.CategorySecurity,
		Analyze: func(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error) {
			var findings []domain.Finding
			for _, file := range rctx.Files {
				for _, span := range file.Added {
					for i, line := range span.Lines {
						for _, p := range secretPatterns {
							if p.re.MatchString(line) {
								findings = append(findings, domain.NewFinding(domain.FindingInput{
									Tool:       secretScanName,
									File:       file.Path,
									LineStart:  span.Start + i,
									LineEnd:    span.Start + i,
									Severity:   domain.SeverityCritical,
									Category:   domain.CategorySecurity,
									Message:    p.label + " committed in diff",
									Suggestion: "Remove the credential and rotate it; load secrets from the environment instead.",
								}))
							}
						}
					}
				}
			}
			return domain.ToolResult{Findings: findings}, nil
		},
	}
}
