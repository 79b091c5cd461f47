package commands

import (
	"context"
	"log/slog"

	"github.com/iced-rs/mdbook-iced/internal/book"
	"github.com/iced-rs/mdbook-iced/internal/build"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
	"github.com/iced-rs/mdbook-iced/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Root   string `short:"r" type:"path" default:"." help:"Book root directory"`
	Output string `short:"o" type:"path" help:"Directory receiving transformed pages (default: <root>/target/iced-pages)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	bk, err := book.Load(w.Root)
	if err != nil {
		return err
	}
	settings, err := root.loadSettings(w.Root)
	if err != nil {
		return err
	}
	service, err := newService(g, settings)
	if err != nil {
		return err
	}
	out := outputDir(w.Root, w.Output)

	rebuild := func(ctx context.Context) error {
		result, err := buildBook(ctx, service, bk, out, build.ModeWatch)
		if err != nil {
			return err
		}
		printSummary(g.Stdout, result, out)
		return nil
	}

	watcher, err := watch.New(bk.SourceDir, rebuild, watch.WithIgnoredDirs(out))
	if err != nil {
		return err
	}
	if err := rebuild(g.Context); err != nil {
		slog.Warn("Initial build failed; waiting for changes", logfields.Error(err))
	}

	slog.Info("Watching for changes", logfields.Path(bk.SourceDir))
	return watcher.Run(g.Context)
}
