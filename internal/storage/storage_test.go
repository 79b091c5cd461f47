package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iced-rs/mdbook-iced/internal/compiler"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

func live(hashes ...string) compiler.Set {
	s := compiler.NewSet()
	for _, h := range hashes {
		s.Add(compiler.IcebergFromHash(h))
	}
	return s
}

func writeArtifact(t *testing.T, dir, hash string) {
	t.Helper()
	root := filepath.Join(dir, hash)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snippets", "iced-web"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "iceberg.js"), []byte("js "+hash), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "iceberg_bg.wasm"), []byte("wasm "+hash), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "snippets", "iced-web", "inline0.js"), []byte("snippet"), 0o600))
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// snapshot maps every file below dir to its contents.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		rel, _ := filepath.Rel(dir, path)
		files[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestRetain(t *testing.T) {
	dir := t.TempDir()
	for _, h := range []string{"aaa", "bbb", "ccc", ".staging-123"} {
		writeArtifact(t, dir, h)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o600))

	removed, err := Retain(dir, live("aaa", "ccc", "ddd"))
	require.NoError(t, err)
	require.Equal(t, 3, removed)
	require.Equal(t, []string{"aaa", "ccc"}, names(t, dir))

	removed, err = Retain(dir, live("aaa", "ccc", "ddd"))
	require.NoError(t, err)
	require.Zero(t, removed)
	require.Equal(t, []string{"aaa", "ccc"}, names(t, dir))
}

func TestRetain_EmptyLiveSetClearsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "aaa")

	removed, err := Retain(dir, live())
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Empty(t, names(t, dir))
}

func TestRetain_MissingDirectory(t *testing.T) {
	_, err := Retain(filepath.Join(t.TempDir(), "missing"), live("aaa"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	cache := t.TempDir()
	writeArtifact(t, cache, "aaa")
	writeArtifact(t, cache, "bbb")
	writeArtifact(t, cache, "old")

	target := filepath.Join(t.TempDir(), "src", ".icebergs")
	writeArtifact(t, target, "gone")

	set := live("aaa", "bbb")
	result, err := Release(ctx, cache, target, set, WithConcurrency(2))
	require.NoError(t, err)
	require.Equal(t, ReleaseResult{Pruned: 1, Copied: 2}, result)
	require.Equal(t, set.Hashes(), names(t, target))
	require.Equal(t, snapshot(t, filepath.Join(cache, "aaa")), snapshot(t, filepath.Join(target, "aaa")))
	require.Equal(t, snapshot(t, filepath.Join(cache, "bbb")), snapshot(t, filepath.Join(target, "bbb")))
}

func TestRelease_DirectoriesReadableByGroup(t *testing.T) {
	cache := t.TempDir()
	writeArtifact(t, cache, "aaa")
	target := filepath.Join(t.TempDir(), ".icebergs")

	_, err := Release(context.Background(), cache, target, live("aaa"))
	require.NoError(t, err)

	st, err := os.Stat(filepath.Join(target, "aaa"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o750), st.Mode().Perm())
}

func TestRelease_Idempotent(t *testing.T) {
	ctx := context.Background()
	cache := t.TempDir()
	writeArtifact(t, cache, "aaa")
	writeArtifact(t, cache, "bbb")
	target := filepath.Join(t.TempDir(), ".icebergs")
	set := live("aaa", "bbb")

	_, err := Release(ctx, cache, target, set)
	require.NoError(t, err)
	before := snapshot(t, target)

	result, err := Release(ctx, cache, target, set)
	require.NoError(t, err)
	require.Equal(t, ReleaseResult{}, result)
	require.Equal(t, before, snapshot(t, target))
}

func TestRelease_ShrinkingLiveSet(t *testing.T) {
	ctx := context.Background()
	cache := t.TempDir()
	writeArtifact(t, cache, "aaa")
	writeArtifact(t, cache, "bbb")
	target := filepath.Join(t.TempDir(), ".icebergs")

	_, err := Release(ctx, cache, target, live("aaa", "bbb"))
	require.NoError(t, err)

	result, err := Release(ctx, cache, target, live("bbb"))
	require.NoError(t, err)
	require.Equal(t, ReleaseResult{Pruned: 1}, result)
	require.Equal(t, []string{"bbb"}, names(t, target))
}

func TestRelease_MissingCacheEntry(t *testing.T) {
	cache := t.TempDir()
	target := filepath.Join(t.TempDir(), ".icebergs")

	_, err := Release(context.Background(), cache, target, live("nope"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	require.Empty(t, names(t, target))
}

func TestCopyTree_SkipsExistingFiles(t *testing.T) {
	src := t.TempDir()
	writeArtifact(t, src, "aaa")
	dst := filepath.Join(t.TempDir(), "aaa")
	require.NoError(t, os.MkdirAll(dst, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "iceberg.js"), []byte("partial"), 0o600))

	require.NoError(t, CopyTree(context.Background(), filepath.Join(src, "aaa"), dst))

	files := snapshot(t, dst)
	require.Equal(t, "partial", files["iceberg.js"])
	require.Equal(t, "wasm aaa", files["iceberg_bg.wasm"])
	require.Equal(t, "snippet", files[filepath.Join("snippets", "iced-web", "inline0.js")])
}

func TestCopyTree_Canceled(t *testing.T) {
	src := t.TempDir()
	writeArtifact(t, src, "aaa")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := CopyTree(ctx, filepath.Join(src, "aaa"), filepath.Join(t.TempDir(), "out"))
	require.ErrorIs(t, err, context.Canceled)
}
