package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iced-rs/mdbook-iced/internal/book"
	"github.com/iced-rs/mdbook-iced/internal/build"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// DefaultOutputDir is where standalone builds write pages, relative to the
// book root.
const DefaultOutputDir = "target/iced-pages"

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Root   string `short:"r" type:"path" default:"." help:"Book root directory"`
	Output string `short:"o" type:"path" help:"Directory receiving transformed pages (default: <root>/target/iced-pages)"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	bk, err := book.Load(b.Root)
	if err != nil {
		return err
	}
	settings, err := root.loadSettings(b.Root)
	if err != nil {
		return err
	}
	service, err := newService(g, settings)
	if err != nil {
		return err
	}

	result, err := buildBook(g.Context, service, bk, outputDir(b.Root, b.Output), build.ModeBuild)
	if err != nil {
		return err
	}
	printSummary(g.Stdout, result, outputDir(b.Root, b.Output))
	return nil
}

func outputDir(root, output string) string {
	if output != "" {
		return output
	}
	return filepath.Join(root, DefaultOutputDir)
}

// buildBook transforms every page of bk and writes the results below out,
// mirroring the source layout.
func buildBook(ctx context.Context, service *build.Service, bk *book.Book, out string, mode build.Mode) (*build.Result, error) {
	pages, err := bk.Discover()
	if err != nil {
		return nil, err
	}
	docs := make([]*build.Document, 0, len(pages))
	for _, page := range pages {
		content, rerr := bk.ReadPage(page)
		if rerr != nil {
			return nil, rerr
		}
		docs = append(docs, &build.Document{Name: page, Content: content})
	}

	result, err := service.Run(ctx, build.Request{
		Root:         bk.Root,
		SourceDir:    bk.SourceDir,
		Preprocessor: bk.Preprocessor,
		Documents:    docs,
		Mode:         mode,
	})
	if err != nil {
		return result, err
	}

	for _, doc := range docs {
		path := filepath.Join(out, filepath.FromSlash(doc.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return result, writeError(err, path)
		}
		if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil { // #nosec G306 -- pages are public output
			return result, writeError(err, path)
		}
	}
	return result, nil
}

func writeError(err error, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
		Fatal().
		WithContext("path", path).
		Build()
}

func printSummary(w io.Writer, result *build.Result, out string) {
	_, _ = fmt.Fprintf(w, "Transformed %d pages into %s: %d embeds, %d compiled, %d cached, %d failed\n",
		result.Documents, out, result.Embeds, result.Compiled, result.CacheHits, result.Failures)
}
