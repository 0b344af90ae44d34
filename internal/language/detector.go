// Package language classifies changed files into a weighted language
// distribution from filename heuristics.
package language

import (
	"path/filepath"
	"sort"
	"strings"
)

// Profile maps a language name to the fraction of changed files
// attributed to it. Files with unrecognized extensions count toward
// the denominator, so recognized weights sum to at most 1.
type Profile map[string]float64

// Languages returns the names with non-zero weight, sorted.
func (p Profile) Languages() []string {
	names := make([]string, 0, len(p))
	for name, weight := range p {
		if weight > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Has reports whether the profile contains lang with non-zero weight.
func (p Profile) Has(lang string) bool {
	return p[lang] > 0
}

// extensions is the fixed classification table. Lookup keys are
// lowercase extensions including the leading dot.
var extensions = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".tf":    "terraform",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".proto": "protobuf",
	".md":    "markdown",
	".rst":   "markdown",
}

// special maps exact basenames that carry no useful extension.
var special = map[string]string{
	"dockerfile": "dockerfile",
	"makefile":   "makefile",
	"go.mod":     "go",
	"go.sum":     "go",
}

// Classify returns the language for a single path, or "" when the
// path is unrecognized.
func Classify(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if lang, ok := special[base]; ok {
		return lang
	}
	if lang, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return ""
}

// Detect classifies a set of changed file paths into a Profile.
// Deterministic: identical input always yields an identical profile.
// An empty input yields an empty profile.
func Detect(paths []string) Profile {
	profile := Profile{}
	if len(paths) == 0 {
		return profile
	}

	counts := make(map[string]int)
	for _, path := range paths {
		if lang := Classify(path); lang != "" {
			counts[lang]++
		}
	}

	total := float64(len(paths))
	for lang, n := range counts {
		profile[lang] = float64(n) / total
	}
	return profile
}
