package book

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), `
[book]
title = "Guide"

[preprocessor.iced]
tag = "0.13.1"
features = ["webgl"]
height = "300px"
`)

	b, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "Guide", b.Title)
	require.Equal(t, filepath.Join(root, "src"), b.SourceDir)
	require.Equal(t, "0.13.1", b.Preprocessor["tag"])

	p, err := config.ParsePreprocessor(b.Preprocessor)
	require.NoError(t, err)
	require.Equal(t, []string{"webgl"}, p.Features)
	require.Equal(t, "300px", p.Height)
}

func TestLoad_CustomSourceAndNoPreprocessor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "[book]\nsrc = \"pages\"\n")

	b, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "pages"), b.SourceDir)
	require.Nil(t, b.Preprocessor)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(t.TempDir())
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "[book\n")
	_, err = Load(root)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "[book]\n")
	src := filepath.Join(root, "src")
	writeFile(t, filepath.Join(src, "SUMMARY.md"), "# Summary\n")
	writeFile(t, filepath.Join(src, "b.md"), "b")
	writeFile(t, filepath.Join(src, "a", "z.md"), "z")
	writeFile(t, filepath.Join(src, "image.png"), "png")
	writeFile(t, filepath.Join(src, ".icebergs", "abc", "iceberg.js"), "js")
	writeFile(t, filepath.Join(src, ".hidden", "page.md"), "hidden")

	b, err := Load(root)
	require.NoError(t, err)
	pages, err := b.Discover()
	require.NoError(t, err)
	require.Equal(t, []string{"SUMMARY.md", "a/z.md", "b.md"}, pages)

	content, err := b.ReadPage("a/z.md")
	require.NoError(t, err)
	require.Equal(t, "z", content)
}
