package build

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/iced-rs/mdbook-iced/internal/compiler"
	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/environment"
	"github.com/iced-rs/mdbook-iced/internal/git"
	"github.com/iced-rs/mdbook-iced/internal/ledger"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
	"github.com/iced-rs/mdbook-iced/internal/markup"
	"github.com/iced-rs/mdbook-iced/internal/metrics"
	"github.com/iced-rs/mdbook-iced/internal/observability"
	"github.com/iced-rs/mdbook-iced/internal/storage"
	"github.com/iced-rs/mdbook-iced/internal/toolchain"
	"github.com/iced-rs/mdbook-iced/internal/transform"
	"github.com/iced-rs/mdbook-iced/internal/workspace"
)

// Service executes runs. It is safe to reuse across runs, as the watch
// command does, but runs must not overlap.
type Service struct {
	settings  *config.Settings
	toolchain toolchain.Toolchain
	resolver  environment.Resolver
	recorder  metrics.Recorder
	gatherer  prom.Gatherer
	renderer  *markup.Renderer
}

// Option customizes a Service.
type Option func(*Service)

// WithToolchain replaces the cargo toolchain derived from the settings.
func WithToolchain(tc toolchain.Toolchain) Option {
	return func(s *Service) { s.toolchain = tc }
}

// WithResolver replaces the remote reference resolver.
func WithResolver(r environment.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithGatherer sets the registry written to the metrics file after each run.
func WithGatherer(g prom.Gatherer) Option {
	return func(s *Service) { s.gatherer = g }
}

// NewService returns a Service configured by settings.
func NewService(settings *config.Settings, opts ...Option) (*Service, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	renderer, err := markup.NewRenderer()
	if err != nil {
		return nil, err
	}

	s := &Service{
		settings: settings,
		resolver: git.NewRemoteResolver(),
		recorder: metrics.NoopRecorder{},
		renderer: renderer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.toolchain == nil {
		s.toolchain = toolchain.NewCargo(settings.Cargo, settings.WasmBindgen, settings.Target, environment.CrateName)
	}
	return s, nil
}

// Run transforms req.Documents in place and releases the artifacts they
// embed. Compile failures degrade single blocks; every other failure aborts
// the run before any artifact is garbage collected.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	ctx = observability.WithRunID(ctx, result.RunID)

	store := s.openLedger(ctx, req.Root)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	err := s.run(ctx, req, result, store)
	result.Duration = time.Since(result.StartTime)
	s.recorder.ObserveRunDuration(result.Duration)

	if err != nil {
		result.Status = StatusFailed
		s.recorder.IncRunOutcome(metrics.OutcomeFailed)
		if store != nil {
			s.ledgerWarn(ctx, store.RecordFailed(context.WithoutCancel(ctx), result.RunID, ledger.RunFailed{
				Error:      err.Error(),
				DurationMS: result.Duration.Milliseconds(),
			}))
		}
		s.writeMetrics(ctx)
		return result, err
	}

	result.Status = StatusSuccess
	outcome := metrics.OutcomeSuccess
	if result.Failures > 0 {
		result.Status = StatusWarning
		outcome = metrics.OutcomeWarning
	}
	s.recorder.IncRunOutcome(outcome)
	if store != nil {
		s.ledgerWarn(ctx, store.RecordCompleted(ctx, result.RunID, ledger.RunCompleted{
			Documents:  result.Documents,
			Blocks:     result.Blocks,
			Embeds:     result.Embeds,
			Compiled:   result.Compiled,
			CacheHits:  result.CacheHits,
			Failures:   result.Failures,
			Pruned:     result.PrunedCache + result.PrunedRelease,
			Released:   result.Released,
			DurationMS: result.Duration.Milliseconds(),
		}))
	}
	s.writeMetrics(ctx)

	observability.InfoContext(ctx, "Run complete",
		slog.String("status", string(result.Status)),
		slog.Int("documents", result.Documents),
		slog.Int("embeds", result.Embeds),
		slog.Int("compiled", result.Compiled),
		slog.Int("failures", result.Failures),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

func (s *Service) run(ctx context.Context, req Request, result *Result, store *ledger.Store) error {
	preprocessor, err := config.ParsePreprocessor(req.Preprocessor)
	if err != nil {
		return err
	}
	if store != nil {
		s.ledgerWarn(ctx, store.RecordStarted(ctx, result.RunID, ledger.RunStarted{
			Mode:      string(req.Mode),
			Reference: preprocessor.Reference.String(),
		}))
	}

	// Stage 1: environment
	stageStart := time.Now()
	ctx = observability.WithStage(ctx, "environment")
	opts := []environment.Option{environment.FromPreprocessor(preprocessor)}
	if preprocessor.Resolve && s.resolver != nil {
		opts = append(opts, environment.WithResolver(s.resolver))
	}
	env, err := environment.SetUp(ctx, req.Root, preprocessor.Reference, opts...)
	if err != nil {
		return err
	}
	s.recorder.ObserveStageDuration("environment", time.Since(stageStart))
	observability.DebugContext(ctx, "Build environment ready",
		logfields.Reference(env.Reference().String()),
		logfields.Hash(env.Hash()))

	// Stage 2: transform
	stageStart = time.Now()
	ctx = observability.WithStage(ctx, "transform")
	comp := compiler.New(env, s.toolchain,
		compiler.WithTimeout(s.settings.CompileTimeout),
		compiler.WithRecorder(s.recorder))
	height := s.settings.DefaultHeight
	if preprocessor.Height != "" {
		height = preprocessor.Height
	}
	tr := transform.New(comp, s.renderer,
		transform.WithLanguage(s.settings.Language),
		transform.WithMarker(s.settings.Marker),
		transform.WithDefaultHeight(height))

	live := compiler.NewSet()
	for _, doc := range req.Documents {
		page, terr := tr.Transform(observability.WithDocument(ctx, doc.Name), doc.Name, doc.Content)
		if terr != nil {
			return terr
		}
		doc.Content = page.Content
		live.Merge(page.Icebergs)
		result.Documents++
		result.Blocks += page.Blocks
		result.Embeds += page.Embeds
		result.Failures += page.Failures
	}
	stats := comp.Stats()
	result.Compiled = stats.Compiled
	result.CacheHits = stats.Hits
	s.recorder.AddEmbeds(result.Embeds)
	s.recorder.ObserveStageDuration("transform", time.Since(stageStart))

	// Stage 3: garbage collection and release
	stageStart = time.Now()
	ctx = observability.WithStage(ctx, "release")
	pruned, err := storage.Retain(env.ArtifactDir(), live)
	if err != nil {
		return err
	}
	result.PrunedCache = pruned
	s.recorder.AddPruned(metrics.LocationCache, pruned)

	target := filepath.Join(req.SourceDir, ReleaseDirName)
	released, err := storage.Release(ctx, env.ArtifactDir(), target, live,
		storage.WithConcurrency(s.settings.ReleaseConcurrency))
	if err != nil {
		return err
	}
	result.PrunedRelease = released.Pruned
	result.Released = released.Copied
	s.recorder.AddPruned(metrics.LocationRelease, released.Pruned)
	s.recorder.AddReleased(released.Copied)
	s.recorder.ObserveStageDuration("release", time.Since(stageStart))
	observability.InfoContext(ctx, "Artifacts released",
		logfields.Path(target),
		logfields.Count(live.Len()),
		slog.Int("copied", released.Copied),
		slog.Int("pruned", pruned+released.Pruned))
	return nil
}

// openLedger opens the run ledger. The ledger is auxiliary: when it cannot be
// opened the run continues without it.
func (s *Service) openLedger(ctx context.Context, root string) *ledger.Store {
	dir := environment.WorkspaceDir(root)
	path, ok := s.settings.LedgerPath(dir)
	if !ok {
		return nil
	}
	if err := workspace.NewPersistentManager(filepath.Dir(dir), filepath.Base(dir)).Create(); err != nil {
		s.ledgerWarn(ctx, err)
		return nil
	}
	store, err := ledger.Open(path)
	if err != nil {
		s.ledgerWarn(ctx, err)
		return nil
	}
	return store
}

func (s *Service) ledgerWarn(ctx context.Context, err error) {
	if err == nil {
		return
	}
	observability.WarnContext(ctx, "Run ledger unavailable", logfields.Error(err))
}

func (s *Service) writeMetrics(ctx context.Context) {
	if s.settings.MetricsFile == "" || s.gatherer == nil {
		return
	}
	if err := metrics.WriteTextfile(s.settings.MetricsFile, s.gatherer); err != nil {
		observability.WarnContext(ctx, "Failed to write metrics file", logfields.Error(err))
	}
}

// Clean removes the build workspace and the released artifacts of the book
// at root. Missing directories are not errors.
func Clean(root, sourceDir string) error {
	dir := environment.WorkspaceDir(root)
	if err := workspace.NewPersistentManager(filepath.Dir(dir), filepath.Base(dir)).Remove(); err != nil {
		return err
	}
	release := filepath.Join(sourceDir, ReleaseDirName)
	if err := workspace.NewPersistentManager(filepath.Dir(release), filepath.Base(release)).Remove(); err != nil {
		return err
	}
	return nil
}
