package compiler

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
	"github.com/iced-rs/mdbook-iced/internal/metrics"
	"github.com/iced-rs/mdbook-iced/internal/toolchain"
)

// SourceFile is the crate entry point every block is written to.
const SourceFile = "main.rs"

// stagingPrefix names in-progress artifact directories. Such directories never
// match a hash and are swept by retention.
const stagingPrefix = ".staging-"

// Environment is the part of a set-up build environment the compiler needs.
type Environment interface {
	BuildDir() string
	SourceDir() string
	ArtifactDir() string
	Hash() string
}

// Compiler compiles code blocks through a toolchain, caching artifacts by handle.
// Compile calls are serialized: all blocks share one source file and one
// toolchain target directory.
type Compiler struct {
	mu        sync.Mutex
	env       Environment
	toolchain toolchain.Toolchain
	timeout   time.Duration
	recorder  metrics.Recorder
	stats     Stats
}

// Stats counts compile outcomes since the compiler was created.
type Stats struct {
	Hits     int
	Compiled int
	Failures int
}

// Option customizes a Compiler.
type Option func(*Compiler)

// WithTimeout bounds each toolchain step. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) { c.timeout = d }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Compiler) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New returns a compiler for env using tc.
func New(env Environment, tc toolchain.Toolchain, opts ...Option) *Compiler {
	c := &Compiler{
		env:       env,
		toolchain: tc,
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle returns the handle source would compile to, without compiling.
func (c *Compiler) Handle(source string) Iceberg {
	return Key(Normalize(source), c.env.Hash())
}

// ArtifactPath is the cache directory of a handle.
func (c *Compiler) ArtifactPath(i Iceberg) string {
	return filepath.Join(c.env.ArtifactDir(), i.Hash())
}

// Stats returns a snapshot of the compile counters.
func (c *Compiler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Compile returns the handle of source, running the toolchain only when the
// artifact is not cached yet. Toolchain failures are compile errors and leave
// no cache entry behind, so the block is attempted again on the next run.
func (c *Compiler) Compile(ctx context.Context, source string) (Iceberg, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := Normalize(source)
	iceberg := Key(normalized, c.env.Hash())
	artifactDir := c.ArtifactPath(iceberg)

	if _, err := os.Stat(artifactDir); err == nil {
		c.stats.Hits++
		c.recorder.IncCacheResult(metrics.CacheHit)
		slog.Debug("Artifact cache hit", logfields.Hash(iceberg.Hash()))
		return iceberg, nil
	}
	c.recorder.IncCacheResult(metrics.CacheMiss)

	start := time.Now()
	err := c.compile(ctx, normalized, iceberg, artifactDir)
	c.recorder.ObserveCompileDuration(time.Since(start), err == nil)
	if err != nil {
		c.stats.Failures++
		c.recorder.IncCacheResult(metrics.CacheFailure)
		return Iceberg{}, err
	}
	c.stats.Compiled++

	slog.Info("Compiled artifact",
		logfields.Hash(iceberg.Hash()),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return iceberg, nil
}

func (c *Compiler) compile(ctx context.Context, normalized string, iceberg Iceberg, artifactDir string) error {
	sourcePath := filepath.Join(c.env.SourceDir(), SourceFile)
	if err := os.WriteFile(sourcePath, []byte(normalized), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write block source").
			Fatal().
			WithContext("path", sourcePath).
			Build()
	}

	slog.Info("Compiling code block", logfields.Hash(iceberg.Hash()))
	if err := c.step(ctx, func(ctx context.Context) error {
		return c.toolchain.Build(ctx, c.env.BuildDir())
	}); err != nil {
		return compileError(err, "build", iceberg)
	}

	staging, err := os.MkdirTemp(c.env.ArtifactDir(), stagingPrefix)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create staging directory").
			Fatal().
			WithContext("path", c.env.ArtifactDir()).
			Build()
	}
	// Clears the staging dir when anything below fails; a no-op after the rename.
	defer func() { _ = os.RemoveAll(staging) }()

	if err := c.step(ctx, func(ctx context.Context) error {
		return c.toolchain.Bind(ctx, c.env.BuildDir(), staging)
	}); err != nil {
		return compileError(err, "bind", iceberg)
	}

	if err := os.Chmod(staging, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to set artifact permissions").
			Fatal().
			WithContext("path", staging).
			Build()
	}
	if err := os.Rename(staging, artifactDir); err != nil {
		if _, statErr := os.Stat(artifactDir); statErr == nil {
			// Another process promoted the same artifact first.
			return nil
		}
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to promote artifact").
			Fatal().
			WithContext("path", artifactDir).
			Build()
	}
	return nil
}

func (c *Compiler) step(ctx context.Context, fn func(context.Context) error) error {
	if c.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(ctx)
}

func compileError(err error, stage string, iceberg Iceberg) error {
	b := errors.WrapError(err, errors.CategoryCompile, "failed to compile code block").
		Warning().
		NextRun().
		WithContext("stage", stage).
		WithContext("hash", iceberg.Hash())
	if stdErrors.Is(err, toolchain.ErrTimeout) {
		b.WithContext("timeout", true)
	}
	return b.Build()
}
