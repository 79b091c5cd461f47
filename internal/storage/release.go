package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
)

// DefaultReleaseConcurrency bounds parallel artifact copies.
const DefaultReleaseConcurrency = 4

const releaseStagingPrefix = ".release-"

// ReleaseResult summarizes a Release call.
type ReleaseResult struct {
	Pruned int
	Copied int
}

type releaseOptions struct {
	concurrency int
}

// ReleaseOption customizes Release.
type ReleaseOption func(*releaseOptions)

// WithConcurrency sets how many artifacts are copied at once.
func WithConcurrency(n int) ReleaseOption {
	return func(o *releaseOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// Release makes targetDir hold exactly the live artifacts of cacheDir. Stale
// entries are removed and missing ones are copied from the cache. Entries
// already present are left alone, so a second call with the same live set
// changes nothing.
func Release(ctx context.Context, cacheDir, targetDir string, live LiveSet, opts ...ReleaseOption) (ReleaseResult, error) {
	o := &releaseOptions{concurrency: DefaultReleaseConcurrency}
	for _, opt := range opts {
		opt(o)
	}

	var result ReleaseResult
	if err := os.MkdirAll(targetDir, 0o750); err != nil {
		return result, errors.WrapError(err, errors.CategoryFileSystem, "failed to create release directory").
			Fatal().
			WithContext("path", targetDir).
			Build()
	}

	pruned, err := Retain(targetDir, live)
	result.Pruned = pruned
	if err != nil {
		return result, err
	}

	var missing []string
	for _, hash := range live.Hashes() {
		if _, statErr := os.Stat(filepath.Join(targetDir, hash)); statErr == nil {
			continue
		}
		missing = append(missing, hash)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, hash := range missing {
		g.Go(func() error {
			return releaseOne(gctx, filepath.Join(cacheDir, hash), targetDir, hash)
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	result.Copied = len(missing)

	slog.Debug("Released artifacts",
		logfields.Path(targetDir),
		logfields.Count(result.Copied),
		slog.Int("pruned", result.Pruned))
	return result, nil
}

// releaseOne copies one cache entry into a staging directory and renames it
// into place, so targetDir only ever holds complete artifacts.
func releaseOne(ctx context.Context, src, targetDir, hash string) error {
	if st, err := os.Stat(src); err != nil || !st.IsDir() {
		return errors.FileSystemError("live artifact missing from cache").
			WithCause(err).
			WithContext("hash", hash).
			WithContext("path", src).
			Build()
	}

	staging, err := os.MkdirTemp(targetDir, releaseStagingPrefix)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create release staging directory").
			Fatal().
			WithContext("path", targetDir).
			Build()
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := CopyTree(ctx, src, staging); err != nil {
		return err
	}

	dst := filepath.Join(targetDir, hash)
	// MkdirTemp creates owner-only directories; match the copied tree.
	if err := os.Chmod(staging, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to set artifact permissions").
			Fatal().
			WithContext("path", staging).
			Build()
	}
	if err := os.Rename(staging, dst); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to publish artifact").
			Fatal().
			WithContext("path", dst).
			Build()
	}
	slog.Debug("Released artifact", logfields.Hash(hash), logfields.Path(dst))
	return nil
}
