package commands

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/iced-rs/mdbook-iced/internal/build"
	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/metrics"
	"github.com/iced-rs/mdbook-iced/internal/toolchain"
)

// Global carries process-wide state into commands.
type Global struct {
	Context context.Context
	Stdin   io.Reader
	Stdout  io.Writer
	// Toolchain overrides the cargo toolchain built from the settings.
	Toolchain toolchain.Toolchain
}

// NewGlobal wires the process standard streams.
func NewGlobal(ctx context.Context) *Global {
	return &Global{Context: ctx, Stdin: os.Stdin, Stdout: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Settings string           `short:"s" type:"path" help:"Tool settings file (default: iced.yaml in the book root)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Preprocess PreprocessCmd `cmd:"" default:"1" help:"Run as an mdBook preprocessor, reading [context, book] from stdin (default)"`
	Supports   SupportsCmd   `cmd:"" help:"Check whether a renderer is supported by this preprocessor"`
	Build      BuildCmd      `cmd:"" help:"Transform the pages of a book outside of mdBook"`
	Watch      WatchCmd      `cmd:"" help:"Rebuild a book whenever its sources change"`
	Clean      CleanCmd      `cmd:"" help:"Remove the artifacts and binaries produced for a book"`
	History    HistoryCmd    `cmd:"" help:"List recent runs recorded in the ledger"`

	level slog.LevelVar
}

// AfterApply runs after flag parsing; setup logging once. stdout is reserved
// for the mdBook protocol, so logs always go to stderr.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.level.Set(config.ResolveLogLevel(""))
	if c.Verbose {
		c.level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &c.level}))
	slog.SetDefault(logger)
	return nil
}

// loadSettings reads the tool settings for the book at root and applies
// their log level.
func (c *CLI) loadSettings(root string) (*config.Settings, error) {
	path, required := c.Settings, c.Settings != ""
	if !required {
		path = filepath.Join(root, config.DefaultSettingsFile)
	}
	settings, err := config.LoadSettings(path, required)
	if err != nil {
		return nil, err
	}
	c.level.Set(settings.Level(c.Verbose))
	return settings, nil
}

func newService(g *Global, settings *config.Settings) (*build.Service, error) {
	registry := prom.NewRegistry()
	opts := []build.Option{
		build.WithRecorder(metrics.NewPrometheusRecorder(registry)),
		build.WithGatherer(registry),
	}
	if g.Toolchain != nil {
		opts = append(opts, build.WithToolchain(g.Toolchain))
	}
	return build.NewService(settings, opts...)
}

// ExitError ends the process with Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode reports err through the CLI error adapter and returns the process
// exit code.
func ExitCode(err error, verbose bool, logger *slog.Logger) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if stdErrors.As(err, &exit) {
		return exit.Code
	}
	return errors.NewCLIErrorAdapter(verbose, logger).Handle(err)
}
