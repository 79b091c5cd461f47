package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

func TestParsePreprocessor_Defaults(t *testing.T) {
	p, err := ParsePreprocessor(map[string]any{"rev": "deadbeef"})
	require.NoError(t, err)
	require.Equal(t, Revision("deadbeef"), p.Reference)
	require.Equal(t, DefaultGitURL, p.Git)
	require.Equal(t, []string{"webgl", "fira-sans"}, p.Features)
	require.Empty(t, p.Height)
	require.False(t, p.Resolve)
}

func TestParsePreprocessor_Options(t *testing.T) {
	p, err := ParsePreprocessor(map[string]any{
		"branch":   "master",
		"git":      "https://example.com/fork/iced.git",
		"features": []any{"wgpu"},
		"height":   "320px",
		"resolve":  true,
		"command":  "mdbook-iced",
	})
	require.NoError(t, err)
	require.Equal(t, Branch("master"), p.Reference)
	require.Equal(t, "https://example.com/fork/iced.git", p.Git)
	require.Equal(t, []string{"wgpu"}, p.Features)
	require.Equal(t, "320px", p.Height)
	require.True(t, p.Resolve)
}

func TestParsePreprocessor_DefaultFeaturesNotShared(t *testing.T) {
	p, err := ParsePreprocessor(map[string]any{"tag": "t"})
	require.NoError(t, err)
	p.Features[0] = "changed"
	require.Equal(t, "webgl", DefaultFeatures[0])
}

func TestParsePreprocessor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		table map[string]any
	}{
		{"missing table", nil},
		{"no reference", map[string]any{}},
		{"git not a string", map[string]any{"rev": "r", "git": 1}},
		{"features not a list", map[string]any{"rev": "r", "features": "webgl"}},
		{"features with non-string", map[string]any{"rev": "r", "features": []any{"webgl", 3}}},
		{"height empty", map[string]any{"rev": "r", "height": ""}},
		{"height not a length", map[string]any{"rev": "r", "height": "tall; background:red"}},
		{"height not a string", map[string]any{"rev": "r", "height": 300}},
		{"resolve not bool", map[string]any{"rev": "r", "resolve": "yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePreprocessor(tt.table)
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}
