package language_test

import (
	"testing"

	"github.com/evanmcb/autoreview/internal/language"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"internal/server/main.go", "go"},
		{"scripts/deploy.PY", "python"},
		{"web/app.tsx", "typescript"},
		{"web/app.jsx", "javascript"},
		{"Dockerfile", "dockerfile"},
		{"deep/path/Makefile", "makefile"},
		{"go.mod", "go"},
		{"README.md", "markdown"},
		{"LICENSE", ""},
		{"bin/tool.exe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, language.Classify(tt.path))
		})
	}
}

func TestDetectWeights(t *testing.T) {
	paths := []string{
		"a.go", "b.go", "c.go",
		"script.py",
	}

	profile := language.Detect(paths)

	assert.InDelta(t, 0.75, profile["go"], 1e-9)
	assert.InDelta(t, 0.25, profile["python"], 1e-9)
	assert.Equal(t, []string{"go", "python"}, profile.Languages())
}

func TestDetectUnrecognizedCountTowardTotal(t *testing.T) {
	// 2 of 4 files are recognized, so weights sum to 0.5, not 1.
	paths := []string{"a.go", "b.go", "LICENSE", "data.bin"}

	profile := language.Detect(paths)

	assert.InDelta(t, 0.5, profile["go"], 1e-9)
	sum := 0.0
	for _, w := range profile {
		sum += w
	}
	assert.LessOrEqual(t, sum, 1.0)
}

func TestDetectDeterministic(t *testing.T) {
	paths := []string{"a.go", "b.py", "c.ts", "d.rs", "e.unknown"}

	first := language.Detect(paths)
	second := language.Detect(paths)

	assert.Equal(t, first, second)
}

func TestDetectEmptyInput(t *testing.T) {
	profile := language.Detect(nil)
	assert.Empty(t, profile)
	assert.Empty(t, profile.Languages())
}

func TestProfileHas(t *testing.T) {
	profile := language.Detect([]string{"a.go", "b.py"})

	assert.True(t, profile.Has("go"))
	assert.True(t, profile.Has("python"))
	assert.False(t, profile.Has("rust"))
}
