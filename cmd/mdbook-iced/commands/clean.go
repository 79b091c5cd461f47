package commands

import (
	"path/filepath"

	"github.com/iced-rs/mdbook-iced/internal/book"
	"github.com/iced-rs/mdbook-iced/internal/build"
	"github.com/iced-rs/mdbook-iced/internal/mdbook"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Root string `short:"r" type:"path" default:"." help:"Book root directory"`
}

func (c *CleanCmd) Run(_ *Global, _ *CLI) error {
	src := filepath.Join(c.Root, mdbook.DefaultSourceDir)
	if bk, err := book.Load(c.Root); err == nil {
		src = bk.SourceDir
	}
	return build.Clean(c.Root, src)
}
