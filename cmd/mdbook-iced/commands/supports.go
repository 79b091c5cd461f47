package commands

import "github.com/iced-rs/mdbook-iced/internal/mdbook"

// SupportsCmd implements the 'supports' command mdBook runs before
// preprocessing. The exit status carries the answer.
type SupportsCmd struct {
	Renderer string `arg:"" help:"Renderer name"`
}

func (s *SupportsCmd) Run(_ *Global, _ *CLI) error {
	if mdbook.Supports(s.Renderer) {
		return nil
	}
	return &ExitError{Code: 1}
}
