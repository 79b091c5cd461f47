package environment

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
	"github.com/iced-rs/mdbook-iced/internal/workspace"
)

// ManifestFile is the manifest name inside the build root.
const ManifestFile = "Cargo.toml"

// WorkspaceDir is the persistent build workspace of the book at root.
func WorkspaceDir(root string) string {
	return filepath.Join(root, "target", workspace.DefaultSubdir)
}

// Resolver pins a branch or tag reference to a commit.
type Resolver interface {
	Resolve(ctx context.Context, repoURL string, ref config.Reference) (string, error)
}

// Environment is an immutable, set-up build environment.
type Environment struct {
	reference   config.Reference
	workspace   *workspace.Manager
	buildDir    string
	sourceDir   string
	artifactDir string
	manifest    string
	hash        string
}

type options struct {
	gitURL   string
	features []string
	resolver Resolver
}

// Option customizes SetUp.
type Option func(*options)

// WithGit sets the iced repository URL.
func WithGit(url string) Option {
	return func(o *options) { o.gitURL = url }
}

// WithFeatures sets the iced crate features.
func WithFeatures(features []string) Option {
	return func(o *options) { o.features = append([]string(nil), features...) }
}

// WithResolver pins branch and tag references through r before rendering.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// FromPreprocessor applies the git and features options of a book table.
func FromPreprocessor(p *config.Preprocessor) Option {
	return func(o *options) {
		if p.Git != "" {
			o.gitURL = p.Git
		}
		o.features = append([]string(nil), p.Features...)
	}
}

// SetUp validates ref, creates the workspace directories below root, writes
// the manifest and derives the environment hash. It is idempotent.
func SetUp(ctx context.Context, root string, ref config.Reference, opts ...Option) (*Environment, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		gitURL:   config.DefaultGitURL,
		features: append([]string(nil), config.DefaultFeatures...),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gitURL == "" {
		return nil, errors.ConfigError("git repository URL must not be empty").Build()
	}

	pinned := ref
	if o.resolver != nil && ref.Kind != config.ReferenceRevision {
		commit, err := o.resolver.Resolve(ctx, o.gitURL, ref)
		if err != nil {
			return nil, err
		}
		pinned = config.Revision(commit)
		slog.Info("Pinned git reference", logfields.Reference(ref.String()), slog.String("commit", commit))
	}

	ws := workspace.NewPersistentManager(filepath.Join(root, "target"), workspace.DefaultSubdir)
	if err := ws.Create(); err != nil {
		return nil, err
	}
	sourceDir, err := ws.CreateSubdir("src")
	if err != nil {
		return nil, err
	}
	artifactDir, err := ws.CreateSubdir("target", "mdbook")
	if err != nil {
		return nil, err
	}

	manifest, err := NewManifest(o.gitURL, pinned, o.features).Render()
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(ws.Path(), ManifestFile)
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o600); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to write cargo manifest").
			Fatal().
			WithContext("path", manifestPath).
			Build()
	}

	env := &Environment{
		reference:   pinned,
		workspace:   ws,
		buildDir:    ws.Path(),
		sourceDir:   sourceDir,
		artifactDir: artifactDir,
		manifest:    manifest,
		hash:        HashManifest(manifest),
	}
	slog.Debug("Environment ready",
		logfields.Reference(pinned.String()),
		logfields.Path(env.buildDir),
		logfields.Hash(env.hash))
	return env, nil
}

// Reference is the reference the manifest pins, after any resolution.
func (e *Environment) Reference() config.Reference { return e.reference }

// BuildDir is the toolchain working directory holding the manifest.
func (e *Environment) BuildDir() string { return e.buildDir }

// SourceDir receives main.rs for each compilation.
func (e *Environment) SourceDir() string { return e.sourceDir }

// ArtifactDir is the cache store of compiled artifacts keyed by hash.
func (e *Environment) ArtifactDir() string { return e.artifactDir }

// Manifest is the rendered manifest text.
func (e *Environment) Manifest() string { return e.manifest }

// Hash is the hex digest of the manifest text.
func (e *Environment) Hash() string { return e.hash }

// Workspace exposes the workspace manager for the build root.
func (e *Environment) Workspace() *workspace.Manager { return e.workspace }
