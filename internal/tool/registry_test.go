package tool_test

import (
	"context"
	"testing"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/language"
	"github.com/evanmcb/autoreview/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopAnalyze(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error) {
	return domain.ToolResult{}, nil
}

func descriptor(name string, category domain.Category, langs ...string) tool.Descriptor {
	return tool.Descriptor{
		Name:      name,
		Version:   "1.0.0",
		Category:  category,
		Languages: langs,
		Analyze:   noopAnalyze,
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := tool.NewRegistry(tool.Options{})

	require.NoError(t, r.Register(descriptor("secret-scan", domain.CategorySecurity)))
	err := r.Register(descriptor("secret-scan", domain.CategorySecurity))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// A different version of the same tool is a distinct registration.
	v2 := descriptor("secret-scan", domain.CategorySecurity)
	v2.Version = "2.0.0"
	assert.NoError(t, r.Register(v2))
}

func TestRegisterValidatesDescriptor(t *testing.T) {
	r := tool.NewRegistry(tool.Options{})

	assert.Error(t, r.Register(tool.Descriptor{Version: "1.0.0", Analyze: noopAnalyze}))
	assert.Error(t, r.Register(tool.Descriptor{Name: "x", Analyze: noopAnalyze}))
	assert.Error(t, r.Register(tool.Descriptor{Name: "x", Version: "1.0.0"}))
}

func TestApplicableFiltersByLanguage(t *testing.T) {
	r := tool.NewRegistry(tool.Options{})

	// Five tools for language A (go), three for language B (python).
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5"} {
		require.NoError(t, r.Register(descriptor(name, domain.CategoryCorrectness, "go")))
	}
	for _, name := range []string{"b1", "b2", "b3"} {
		require.NoError(t, r.Register(descriptor(name, domain.CategoryCorrectness, "python")))
	}

	// Profile from 10 files: 8 go, 2 unrecognized, so only go present.
	profile := language.Detect([]string{
		"a.go", "b.go", "c.go", "d.go", "e.go", "f.go", "g.go", "h.go",
		"x.unknown", "y.unknown",
	})

	applicable := r.Applicable(profile)
	require.Len(t, applicable, 5)
	for _, d := range applicable {
		assert.Contains(t, d.Languages, "go")
	}
}

func TestApplicableEmptyLanguageSetMeansAll(t *testing.T) {
	r := tool.NewRegistry(tool.Options{})
	require.NoError(t, r.Register(descriptor("todo-tracker", domain.CategoryMaintainability)))

	applicable := r.Applicable(language.Detect([]string{"a.rs"}))
	require.Len(t, applicable, 1)
	assert.Equal(t, "todo-tracker", applicable[0].Name)

	// But nothing applies to an empty profile.
	assert.Empty(t, r.Applicable(language.Profile{}))
}

func TestApplicableOrderedByName(t *testing.T) {
	r := tool.NewRegistry(tool.Options{})
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(descriptor(name, domain.CategorySecurity, "go")))
	}

	applicable := r.Applicable(language.Detect([]string{"a.go"}))
	require.Len(t, applicable, 3)
	assert.Equal(t, "alpha", applicable[0].Name)
	assert.Equal(t, "mid", applicable[1].Name)
	assert.Equal(t, "zeta", applicable[2].Name)
}

func TestApplicableHonorsDisabledSets(t *testing.T) {
	r := tool.NewRegistry(tool.Options{
		DisabledTools:      []string{"secret-scan"},
		DisabledCategories: []string{"documentation"},
	})
	require.NoError(t, r.Register(descriptor("secret-scan", domain.CategorySecurity, "go")))
	require.NoError(t, r.Register(descriptor("docs-link", domain.CategoryDocumentation, "go")))
	require.NoError(t, r.Register(descriptor("todo-tracker", domain.CategoryMaintainability, "go")))

	applicable := r.Applicable(language.Detect([]string{"a.go"}))
	require.Len(t, applicable, 1)
	assert.Equal(t, "todo-tracker", applicable[0].Name)
}

func TestApplicableHonorsEnabledAllowlist(t *testing.T) {
	r := tool.NewRegistry(tool.Options{
		EnabledTools: []string{"secret-scan"},
	})
	require.NoError(t, r.Register(descriptor("secret-scan", domain.CategorySecurity, "go")))
	require.NoError(t, r.Register(descriptor("todo-tracker", domain.CategoryMaintainability, "go")))

	applicable := r.Applicable(language.Detect([]string{"a.go"}))
	require.Len(t, applicable, 1)
	assert.Equal(t, "secret-scan", applicable[0].Name)
}

func TestAllSorted(t *testing.T) {
	r := tool.NewRegistry(tool.Options{})
	require.NoError(t, r.Register(descriptor("b", domain.CategorySecurity, "go")))
	require.NoError(t, r.Register(descriptor("a", domain.CategorySecurity, "go")))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
}
