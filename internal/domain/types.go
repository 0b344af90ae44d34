package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusDeleted  = "deleted"
	FileStatusRenamed  = "renamed"
)

// Severity levels for findings, ordered from least to most severe.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Category classifies what aspect of the code a tool or finding addresses.
type Category string

const (
	CategoryDocumentation   Category = "documentation"
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryCorrectness     Category = "correctness"
	CategoryMaintainability Category = "maintainability"
)

// Categories lists all valid tool categories.
func Categories() []Category {
	return []Category{
		CategoryDocumentation,
		CategorySecurity,
		CategoryPerformance,
		CategoryCorrectness,
		CategoryMaintainability,
	}
}

// LineSpan is a contiguous run of added lines with their line numbers
// in the new version of the file.
type LineSpan struct {
	Start int
	Lines []string
}

// End returns the line number of the last line in the span.
func (s LineSpan) End() int {
	if len(s.Lines) == 0 {
		return s.Start
	}
	return s.Start + len(s.Lines) - 1
}

// LineRange is an inclusive range of line numbers.
type LineRange struct {
	Start int
	End   int
}

// FileChange captures the change for a single file in a review request.
type FileChange struct {
	Path    string
	OldPath string
	Status  string
	Patch   string
	Binary  bool

	// Added holds the added-line content grouped into contiguous spans.
	// Removed holds only line number ranges in the old file.
	Added   []LineSpan
	Removed []LineRange
}

// AddedLineCount returns the total number of added lines.
func (f FileChange) AddedLineCount() int {
	n := 0
	for _, s := range f.Added {
		n += len(s.Lines)
	}
	return n
}

// ReviewContext is the read-only input for one review request.
type ReviewContext struct {
	ID         string
	Repository string
	BaseRef    string
	TargetRef  string
	Files      []FileChange
}

// Paths returns the changed file paths in order.
func (rc *ReviewContext) Paths() []string {
	paths := make([]string, 0, len(rc.Files))
	for _, f := range rc.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Fingerprint returns a deterministic digest of the changed content.
// Two contexts with byte-identical file changes share a fingerprint.
func (rc *ReviewContext) Fingerprint() string {
	h := sha256.New()
	for _, f := range rc.Files {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", f.Path, f.Status, f.Patch)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Finding represents a single issue detected by a tool or provider.
type Finding struct {
	ID         string   `json:"id"`
	Tool       string   `json:"tool"`
	File       string   `json:"file"`
	LineStart  int      `json:"lineStart"`
	LineEnd    int      `json:"lineEnd"`
	Severity   string   `json:"severity"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Evidence   string   `json:"evidence,omitempty"`
}

// FindingInput captures the information required to create a Finding.
type FindingInput struct {
	Tool       string
	File       string
	LineStart  int
	LineEnd    int
	Severity   string
	Category   Category
	Message    string
	Suggestion string
	Evidence   string
}

// NewFinding constructs a Finding with a deterministic ID.
func NewFinding(input FindingInput) Finding {
	id := hashFinding(input)
	return Finding{
		ID:         id,
		Tool:       input.Tool,
		File:       input.File,
		LineStart:  input.LineStart,
		LineEnd:    input.LineEnd,
		Severity:   input.Severity,
		Category:   input.Category,
		Message:    input.Message,
		Suggestion: input.Suggestion,
		Evidence:   input.Evidence,
	}
}

func hashFinding(input FindingInput) string {
	payload := fmt.Sprintf("%s|%s|%d|%d|%s|%s|%s",
		input.Tool,
		input.File,
		input.LineStart,
		input.LineEnd,
		input.Severity,
		input.Category,
		input.Message,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// SortFindings orders findings deterministically by file, line, then tool.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.Tool < b.Tool
	})
}

// ToolError describes the failure of a single tool invocation. It is
// attached to that tool's result slot and never aborts sibling tools.
type ToolError struct {
	Tool     string `json:"tool"`
	Message  string `json:"message"`
	TimedOut bool   `json:"timedOut"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("tool %s timed out: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// ToolMetrics holds per-invocation measurements.
type ToolMetrics struct {
	Duration     time.Duration `json:"duration"`
	FilesScanned int           `json:"filesScanned"`
	Cached       bool          `json:"cached"`
}

// ToolResult is the outcome of one tool invocation. Err is set when the
// tool failed or timed out; Findings may still be partially populated.
type ToolResult struct {
	Tool     string      `json:"tool"`
	Version  string      `json:"version"`
	Category Category    `json:"category"`
	Findings []Finding   `json:"findings"`
	Metrics  ToolMetrics `json:"metrics"`
	Err      *ToolError  `json:"error,omitempty"`
}

// Assessment is the synthesized review produced by an LLM provider.
type Assessment struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Summary  string `json:"summary"`
}

// ReviewResult combines tool findings with the provider assessment.
// Degraded is set when the provider call ultimately failed; the tool
// findings computed before the failure are preserved.
type ReviewResult struct {
	ID            string             `json:"id"`
	Repository    string             `json:"repository"`
	BaseRef       string             `json:"baseRef"`
	TargetRef     string             `json:"targetRef"`
	Languages     map[string]float64 `json:"languages"`
	ToolResults   []ToolResult       `json:"toolResults"`
	Findings      []Finding          `json:"findings"`
	Assessment    *Assessment        `json:"assessment,omitempty"`
	Degraded      bool               `json:"degraded"`
	ProviderError string             `json:"providerError,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}
