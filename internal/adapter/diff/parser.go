// Package diff parses unified diff text into the domain's file change
// representation.
package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/evanmcb/autoreview/internal/domain"
)

// Parse reads a unified diff and returns one FileChange per file. Line
// content for added lines is retained (grouped into contiguous spans);
// removed lines keep only their old-file line ranges.
func Parse(raw string) ([]domain.FileChange, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	changes := make([]domain.FileChange, 0, len(parsed))
	for _, f := range parsed {
		fc := domain.FileChange{
			Path:   f.NewName,
			Status: fileStatus(f),
			Binary: f.IsBinary,
		}
		if f.IsDelete {
			fc.Path = f.OldName
		}
		if f.IsRename {
			fc.OldPath = f.OldName
		}

		var patch strings.Builder
		for _, frag := range f.TextFragments {
			writeFragment(&patch, frag)
			fc.Added = append(fc.Added, addedSpans(frag)...)
			fc.Removed = append(fc.Removed, removedRanges(frag)...)
		}
		fc.Patch = patch.String()

		changes = append(changes, fc)
	}
	return changes, nil
}

// NewContext parses a raw diff into a ReviewContext for the given
// change. The context ID is left empty; the orchestrator assigns one.
func NewContext(repository, baseRef, targetRef, raw string) (*domain.ReviewContext, error) {
	files, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &domain.ReviewContext{
		Repository: repository,
		BaseRef:    baseRef,
		TargetRef:  targetRef,
		Files:      files,
	}, nil
}

func fileStatus(f *gitdiff.File) string {
	switch {
	case f.IsNew:
		return domain.FileStatusAdded
	case f.IsDelete:
		return domain.FileStatusDeleted
	case f.IsRename:
		return domain.FileStatusRenamed
	default:
		return domain.FileStatusModified
	}
}

// writeFragment reproduces the fragment as unified diff text. It is
// kept per file so prompts can include a single file's patch.
func writeFragment(b *strings.Builder, frag *gitdiff.TextFragment) {
	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines)
	if frag.Comment != "" {
		b.WriteString(" " + frag.Comment)
	}
	b.WriteString("\n")

	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpContext:
			b.WriteString(" " + line.Line)
		case gitdiff.OpDelete:
			b.WriteString("-" + line.Line)
		case gitdiff.OpAdd:
			b.WriteString("+" + line.Line)
		}
		if !strings.HasSuffix(line.Line, "\n") {
			b.WriteString("\n")
		}
	}
}

// addedSpans walks the fragment tracking new-file positions and groups
// consecutive added lines into spans.
func addedSpans(frag *gitdiff.TextFragment) []domain.LineSpan {
	var spans []domain.LineSpan
	var current *domain.LineSpan

	newLine := int(frag.NewPosition)
	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpAdd:
			text := strings.TrimRight(line.Line, "\n\r")
			if current == nil {
				spans = append(spans, domain.LineSpan{Start: newLine})
				current = &spans[len(spans)-1]
			}
			current.Lines = append(current.Lines, text)
			newLine++
		case gitdiff.OpContext:
			current = nil
			newLine++
		case gitdiff.OpDelete:
			current = nil
		}
	}
	return spans
}

// removedRanges walks the fragment tracking old-file positions and
// groups consecutive removed lines into ranges.
func removedRanges(frag *gitdiff.TextFragment) []domain.LineRange {
	var ranges []domain.LineRange
	var current *domain.LineRange

	oldLine := int(frag.OldPosition)
	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpDelete:
			if current == nil {
				ranges = append(ranges, domain.LineRange{Start: oldLine, End: oldLine})
				current = &ranges[len(ranges)-1]
			} else {
				current.End = oldLine
			}
			oldLine++
		case gitdiff.OpContext:
			current = nil
			oldLine++
		case gitdiff.OpAdd:
			current = nil
		}
	}
	return ranges
}
