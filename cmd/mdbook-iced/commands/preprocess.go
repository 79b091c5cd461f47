package commands

import (
	"log/slog"

	"github.com/iced-rs/mdbook-iced/internal/build"
	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/mdbook"
)

// PreprocessCmd implements the mdBook preprocessor protocol.
type PreprocessCmd struct{}

func (p *PreprocessCmd) Run(g *Global, root *CLI) error {
	bookCtx, book, err := mdbook.ParseInput(g.Stdin)
	if err != nil {
		return err
	}
	if err := mdbook.CheckVersion(bookCtx.MdbookVersion); err != nil {
		return err
	}
	if !mdbook.Supports(bookCtx.Renderer) {
		slog.Warn("Renderer not supported; passing book through unchanged", slog.String("renderer", bookCtx.Renderer))
		return mdbook.WriteBook(g.Stdout, book)
	}

	settings, err := root.loadSettings(bookCtx.Root)
	if err != nil {
		return err
	}
	service, err := newService(g, settings)
	if err != nil {
		return err
	}

	var chapters []*mdbook.Chapter
	var docs []*build.Document
	_ = book.Chapters(func(ch *mdbook.Chapter) error {
		name := ch.Path
		if name == "" {
			name = ch.Name
		}
		chapters = append(chapters, ch)
		docs = append(docs, &build.Document{Name: name, Content: ch.Content})
		return nil
	})

	if _, err := service.Run(g.Context, build.Request{
		Root:         bookCtx.Root,
		SourceDir:    bookCtx.SourceDir(),
		Preprocessor: bookCtx.PreprocessorTable(config.PreprocessorName),
		Documents:    docs,
		Mode:         build.ModePreprocess,
	}); err != nil {
		return err
	}

	for i, ch := range chapters {
		ch.Content = docs[i].Content
	}
	return mdbook.WriteBook(g.Stdout, book)
}
