// Package json renders review results as machine-readable JSON, for
// piping into other tooling.
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/evanmcb/autoreview/internal/domain"
)

// Writer renders review results into JSON files.
type Writer struct {
	now func() string
}

// NewWriter constructs a JSON writer with a timestamp supplier.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Write persists the result as a JSON file under outputDir and returns
// the path.
func (w *Writer) Write(result *domain.ReviewResult, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("review_%s.json", w.now()))
	data, err := Render(result)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write json: %w", err)
	}
	return path, nil
}

// WriteTo renders the result to the given writer, for stdout output.
func WriteTo(out io.Writer, result *domain.ReviewResult) error {
	data, err := Render(result)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}

// Render marshals the result with stable, indented formatting.
func Render(result *domain.ReviewResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}
